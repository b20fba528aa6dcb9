// Package cryptopanic implements the crypto news provider against the
// CryptoPanic developer API.
package cryptopanic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/finlens/finlens/internal/core"
	"github.com/finlens/finlens/internal/provider"
)

const baseURL = "https://cryptopanic.com"

// CryptoPanic implements provider.CryptoNewsProvider. Without an API key
// it returns empty payloads rather than failing, so news degrades to
// "unknown" instead of blocking a build.
type CryptoPanic struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// New creates a new CryptoPanic provider.
func New(apiKey string) *CryptoPanic {
	return &CryptoPanic{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// NewWithBaseURL creates a CryptoPanic provider with a custom base URL (for testing).
func NewWithBaseURL(apiKey, url string) *CryptoPanic {
	c := New(apiKey)
	c.baseURL = url
	return c
}

func (c *CryptoPanic) Name() string {
	return "cryptopanic"
}

// baseCurrency extracts "BTC" from "BTC-USD" or "BTCUSDT".
func baseCurrency(symbol string) string {
	s := strings.ToUpper(symbol)
	if i := strings.Index(s, "-"); i > 0 {
		return s[:i]
	}
	s = strings.TrimSuffix(s, "USDT")
	return strings.TrimSuffix(s, "USD")
}

// FetchNews fetches hot news for the symbol's base currency.
func (c *CryptoPanic) FetchNews(ctx context.Context, symbol string, limit int) (provider.NewsPayload, error) {
	payload := provider.NewsPayload{Symbol: symbol}
	if c.apiKey == "" {
		return payload, nil
	}

	params := url.Values{}
	params.Set("auth_token", c.apiKey)
	params.Set("currencies", baseCurrency(symbol))
	params.Set("filter", "hot")
	params.Set("kind", "news")
	params.Set("public", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/developer/v2/posts/?"+params.Encode(), nil)
	if err != nil {
		return provider.NewsPayload{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return provider.NewsPayload{}, core.WrapError(core.ErrDataSourceTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return provider.NewsPayload{}, core.WrapError(core.ErrDataSourceTransient, fmt.Errorf("status %d", resp.StatusCode))
	default:
		return provider.NewsPayload{}, core.WrapError(core.ErrDataSourcePermanent, fmt.Errorf("status %d", resp.StatusCode))
	}

	var result postsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return provider.NewsPayload{}, core.WrapError(core.ErrDataSourcePermanent, fmt.Errorf("decoding response: %w", err))
	}

	for i, post := range result.Results {
		if limit > 0 && i >= limit {
			break
		}
		item := provider.RawNews{
			Title:  post.Title,
			Source: post.Source.Domain,
			URL:    post.URL,
		}
		if ts, err := time.Parse(time.RFC3339, post.PublishedAt); err == nil {
			item.PublishedAt = ts
		}
		payload.Items = append(payload.Items, item)
	}

	return payload, nil
}

// CryptoPanic API response types
type postsResponse struct {
	Results []struct {
		Title       string `json:"title"`
		URL         string `json:"url"`
		PublishedAt string `json:"published_at"`
		Source      struct {
			Domain string `json:"domain"`
		} `json:"source"`
	} `json:"results"`
}

// Package polygon implements the stock data provider against the
// Polygon.io REST API.
package polygon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/finlens/finlens/internal/core"
	"github.com/finlens/finlens/internal/provider"
)

const baseURL = "https://api.polygon.io"

// validSymbol matches tickers like AAPL, MSFT, BRK.B
var validSymbol = regexp.MustCompile(`^[A-Za-z]{1,6}(\.[A-Za-z]{1,2})?$`)

// Polygon implements provider.StockProvider.
type Polygon struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// New creates a new Polygon provider.
func New(apiKey string) *Polygon {
	return &Polygon{
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// NewWithBaseURL creates a Polygon provider with a custom base URL (for testing).
func NewWithBaseURL(apiKey, base string) *Polygon {
	p := New(apiKey)
	p.baseURL = base
	return p
}

func (p *Polygon) Name() string {
	return "polygon"
}

func validateSymbol(symbol string) error {
	if symbol == "" {
		return core.WrapError(core.ErrSymbolNotFound, fmt.Errorf("empty symbol"))
	}
	if !validSymbol.MatchString(symbol) {
		return core.WrapError(core.ErrSymbolNotFound, fmt.Errorf("invalid symbol format: %s", symbol))
	}
	return nil
}

// classifyStatus maps HTTP failures to transient vs permanent source errors.
func classifyStatus(status int) error {
	switch {
	case status == http.StatusTooManyRequests || status >= 500:
		return core.WrapError(core.ErrDataSourceTransient, fmt.Errorf("status %d", status))
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return core.WrapError(core.ErrDataSourcePermanent, fmt.Errorf("status %d", status))
	case status == http.StatusNotFound:
		return core.WrapError(core.ErrSymbolNotFound, fmt.Errorf("status %d", status))
	default:
		return core.WrapError(core.ErrDataSourcePermanent, fmt.Errorf("unexpected status %d", status))
	}
}

func (p *Polygon) get(ctx context.Context, path string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("apiKey", p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return core.WrapError(core.ErrDataSourceTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return classifyStatus(resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return core.WrapError(core.ErrDataSourcePermanent, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

// FetchBars fetches daily aggregates over the lookback window, plus the
// previous session close.
func (p *Polygon) FetchBars(ctx context.Context, symbol, interval string, lookback int) (provider.StockBarsPayload, error) {
	if err := validateSymbol(symbol); err != nil {
		return provider.StockBarsPayload{}, err
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -lookback)
	path := fmt.Sprintf("/v2/aggs/ticker/%s/range/1/%s/%s/%s",
		symbol, toTimespan(interval), start.Format("2006-01-02"), end.Format("2006-01-02"))

	params := url.Values{}
	params.Set("adjusted", "true")
	params.Set("limit", "50000")

	var result aggsResponse
	if err := p.get(ctx, path, params, &result); err != nil {
		return provider.StockBarsPayload{}, err
	}

	bars := make([]provider.RawBar, 0, len(result.Results))
	for _, b := range result.Results {
		bars = append(bars, provider.RawBar{
			Time: b.Time, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume,
		})
	}

	payload := provider.StockBarsPayload{Symbol: symbol, Interval: interval, Bars: bars}

	var prev prevCloseResponse
	if err := p.get(ctx, fmt.Sprintf("/v2/aggs/ticker/%s/prev", symbol), nil, &prev); err == nil && len(prev.Results) > 0 {
		c := prev.Results[0].Close
		payload.PrevClose = &c
	}

	return payload, nil
}

// FetchEvents fetches dividend records. Polygon's earnings coverage is
// plan-gated, so earnings stay empty and normalize treats them as unknown.
func (p *Polygon) FetchEvents(ctx context.Context, symbol string) (provider.StockEventsPayload, error) {
	if err := validateSymbol(symbol); err != nil {
		return provider.StockEventsPayload{}, err
	}

	params := url.Values{}
	params.Set("ticker", symbol)
	params.Set("limit", "50")

	var result dividendsResponse
	if err := p.get(ctx, "/v3/reference/dividends", params, &result); err != nil {
		return provider.StockEventsPayload{}, err
	}

	payload := provider.StockEventsPayload{Symbol: symbol}
	for _, d := range result.Results {
		payload.Dividends = append(payload.Dividends, provider.RawDividend{
			ExDate:     parseDate(d.ExDividendDate),
			CashAmount: d.CashAmount,
		})
	}
	return payload, nil
}

// FetchNews fetches recent news, newest first.
func (p *Polygon) FetchNews(ctx context.Context, symbol string, limit int) (provider.NewsPayload, error) {
	if err := validateSymbol(symbol); err != nil {
		return provider.NewsPayload{}, err
	}

	params := url.Values{}
	params.Set("ticker", symbol)
	params.Set("limit", fmt.Sprintf("%d", limit))
	params.Set("order", "desc")
	params.Set("sort", "published_utc")

	var result newsResponse
	if err := p.get(ctx, "/v2/reference/news", params, &result); err != nil {
		return provider.NewsPayload{}, err
	}

	payload := provider.NewsPayload{Symbol: symbol}
	for _, n := range result.Results {
		item := provider.RawNews{
			Title:  n.Title,
			Source: n.Publisher.Name,
			URL:    n.ArticleURL,
		}
		if ts, err := time.Parse(time.RFC3339, n.PublishedUTC); err == nil {
			item.PublishedAt = ts
		}
		payload.Items = append(payload.Items, item)
	}
	return payload, nil
}

// FetchOptionChain fetches the option snapshot for the nearest expiry, or
// the given one.
func (p *Polygon) FetchOptionChain(ctx context.Context, symbol string, expiry *time.Time) (provider.OptionChainPayload, error) {
	if err := validateSymbol(symbol); err != nil {
		return provider.OptionChainPayload{}, err
	}

	params := url.Values{}
	params.Set("limit", "250")
	if expiry != nil {
		params.Set("expiration_date", expiry.UTC().Format("2006-01-02"))
	}

	var result chainResponse
	if err := p.get(ctx, fmt.Sprintf("/v3/snapshot/options/%s", symbol), params, &result); err != nil {
		return provider.OptionChainPayload{}, err
	}

	payload := provider.OptionChainPayload{Symbol: symbol}
	for _, c := range result.Results {
		contract := provider.RawOptionContract{
			Strike:       c.Details.Strike,
			Type:         c.Details.ContractType,
			OpenInterest: c.OpenInterest,
			Volume:       c.Day.Volume,
		}
		if c.ImpliedVolatility > 0 {
			iv := c.ImpliedVolatility
			contract.ImpliedVol = &iv
		}
		if payload.Expiry.IsZero() {
			if d := parseDate(c.Details.ExpirationDate); d != nil {
				payload.Expiry = *d
			}
		}
		payload.Contracts = append(payload.Contracts, contract)
	}
	return payload, nil
}

func toTimespan(interval string) string {
	switch interval {
	case "1h":
		return "hour"
	case "1w":
		return "week"
	default:
		return "day"
	}
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// Polygon API response types
type aggsResponse struct {
	Results []aggBar `json:"results"`
	Status  string   `json:"status"`
}

type aggBar struct {
	Time   int64   `json:"t"`
	Open   float64 `json:"o"`
	High   float64 `json:"h"`
	Low    float64 `json:"l"`
	Close  float64 `json:"c"`
	Volume float64 `json:"v"`
}

type prevCloseResponse struct {
	Results []aggBar `json:"results"`
}

type dividendsResponse struct {
	Results []struct {
		CashAmount     float64 `json:"cash_amount"`
		ExDividendDate string  `json:"ex_dividend_date"`
	} `json:"results"`
}

type newsResponse struct {
	Results []struct {
		Title        string `json:"title"`
		ArticleURL   string `json:"article_url"`
		PublishedUTC string `json:"published_utc"`
		Publisher    struct {
			Name string `json:"name"`
		} `json:"publisher"`
	} `json:"results"`
}

type chainResponse struct {
	Results []struct {
		Details struct {
			Strike         float64 `json:"strike_price"`
			ContractType   string  `json:"contract_type"`
			ExpirationDate string  `json:"expiration_date"`
		} `json:"details"`
		Day struct {
			Volume float64 `json:"volume"`
		} `json:"day"`
		OpenInterest      float64 `json:"open_interest"`
		ImpliedVolatility float64 `json:"implied_volatility"`
	} `json:"results"`
}

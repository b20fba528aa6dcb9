// Package coinbase implements the crypto spot bar provider against the
// Coinbase Exchange public API.
package coinbase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/finlens/finlens/internal/core"
	"github.com/finlens/finlens/internal/provider"
)

const baseURL = "https://api.exchange.coinbase.com"

// Coinbase implements provider.CryptoBarProvider.
type Coinbase struct {
	client  *http.Client
	baseURL string
}

// New creates a new Coinbase provider.
func New() *Coinbase {
	return &Coinbase{
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseURL: baseURL,
	}
}

// NewWithBaseURL creates a Coinbase provider with a custom base URL (for testing).
func NewWithBaseURL(url string) *Coinbase {
	c := New()
	c.baseURL = url
	return c
}

func (c *Coinbase) Name() string {
	return "coinbase"
}

// FetchBars fetches spot candles for a product like "BTC-USD". Coinbase
// returns rows newest first as [time, low, high, open, close, volume];
// timestamps are seconds.
func (c *Coinbase) FetchBars(ctx context.Context, symbol, interval string, lookback int) (provider.CryptoBarsPayload, error) {
	url := fmt.Sprintf("%s/products/%s/candles?granularity=%d", c.baseURL, symbol, toGranularity(interval))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return provider.CryptoBarsPayload{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return provider.CryptoBarsPayload{}, core.WrapError(core.ErrDataSourceTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return provider.CryptoBarsPayload{}, core.WrapError(core.ErrSymbolNotFound, fmt.Errorf("unknown product %s", symbol))
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return provider.CryptoBarsPayload{}, core.WrapError(core.ErrDataSourceTransient, fmt.Errorf("status %d", resp.StatusCode))
	default:
		return provider.CryptoBarsPayload{}, core.WrapError(core.ErrDataSourcePermanent, fmt.Errorf("status %d", resp.StatusCode))
	}

	var rows [][]float64
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return provider.CryptoBarsPayload{}, core.WrapError(core.ErrDataSourcePermanent, fmt.Errorf("decoding response: %w", err))
	}

	// Short rows would blow up the sort comparator; drop them first.
	full := rows[:0]
	for _, row := range rows {
		if len(row) >= 6 {
			full = append(full, row)
		}
	}
	rows = full

	sort.Slice(rows, func(i, j int) bool { return rows[i][0] < rows[j][0] })
	if lookback > 0 && len(rows) > lookback {
		rows = rows[len(rows)-lookback:]
	}

	bars := make([]provider.RawBar, 0, len(rows))
	for _, row := range rows {
		bars = append(bars, provider.RawBar{
			Time:   int64(row[0]) * 1000,
			Low:    row[1],
			High:   row[2],
			Open:   row[3],
			Close:  row[4],
			Volume: row[5],
		})
	}

	return provider.CryptoBarsPayload{Symbol: symbol, Interval: interval, Bars: bars}, nil
}

func toGranularity(interval string) int {
	switch interval {
	case "1m":
		return 60
	case "5m":
		return 300
	case "15m":
		return 900
	case "1h":
		return 3600
	case "6h":
		return 21600
	case "1d":
		return 86400
	default:
		return 3600
	}
}

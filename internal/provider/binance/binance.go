// Package binance implements the crypto derivatives provider against the
// Binance USDT-M futures public API.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/finlens/finlens/internal/core"
	"github.com/finlens/finlens/internal/provider"
)

const baseURL = "https://fapi.binance.com"

// Binance implements provider.CryptoDerivativesProvider.
type Binance struct {
	client  *http.Client
	baseURL string
}

// New creates a new Binance derivatives provider.
func New() *Binance {
	return &Binance{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: baseURL,
	}
}

// NewWithBaseURL creates a Binance provider with a custom base URL (for testing).
func NewWithBaseURL(url string) *Binance {
	b := New()
	b.baseURL = url
	return b
}

func (b *Binance) Name() string {
	return "binance"
}

// ToPerpSymbol maps a spot product like "BTC-USD" to its USDT-M perp
// ("BTCUSDT"). Symbols already in perp form pass through.
func ToPerpSymbol(symbol string) string {
	s := strings.ToUpper(strings.ReplaceAll(symbol, "-", ""))
	if strings.HasSuffix(s, "USD") && !strings.HasSuffix(s, "USDT") {
		return s + "T"
	}
	return s
}

// FetchFundingOI fetches the current funding rate, open interest, and the
// open interest from ~24h ago for change computation.
func (b *Binance) FetchFundingOI(ctx context.Context, symbol string) (provider.DerivativesPayload, error) {
	perp := ToPerpSymbol(symbol)
	payload := provider.DerivativesPayload{Symbol: perp}

	var premium premiumIndex
	if err := b.get(ctx, "/fapi/v1/premiumIndex?symbol="+perp, &premium); err != nil {
		return provider.DerivativesPayload{}, err
	}
	if rate, err := strconv.ParseFloat(premium.LastFundingRate, 64); err == nil {
		payload.FundingRate = &rate
	}

	var oi openInterest
	if err := b.get(ctx, "/fapi/v1/openInterest?symbol="+perp, &oi); err != nil {
		return provider.DerivativesPayload{}, err
	}
	if amount, err := strconv.ParseFloat(oi.OpenInterest, 64); err == nil {
		payload.OpenInterest = &amount
	}

	// Best effort: the oldest record of the 24h history gives the prior
	// reading. Absence leaves the 24h change unknown.
	var hist []oiHistEntry
	if err := b.get(ctx, "/futures/data/openInterestHist?symbol="+perp+"&period=1h&limit=24", &hist); err == nil && len(hist) > 0 {
		if prev, err := strconv.ParseFloat(hist[0].SumOpenInterest, 64); err == nil {
			payload.OpenInterestPrev24h = &prev
		}
	}

	return payload, nil
}

func (b *Binance) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return core.WrapError(core.ErrDataSourceTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return core.WrapError(core.ErrDataSourceTransient, fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound:
		return core.WrapError(core.ErrSymbolNotFound, fmt.Errorf("status %d", resp.StatusCode))
	default:
		return core.WrapError(core.ErrDataSourcePermanent, fmt.Errorf("status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return core.WrapError(core.ErrDataSourcePermanent, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

// Binance API response types
type premiumIndex struct {
	Symbol          string `json:"symbol"`
	LastFundingRate string `json:"lastFundingRate"`
	NextFundingTime int64  `json:"nextFundingTime"`
}

type openInterest struct {
	Symbol       string `json:"symbol"`
	OpenInterest string `json:"openInterest"`
}

type oiHistEntry struct {
	SumOpenInterest string `json:"sumOpenInterest"`
	Timestamp       int64  `json:"timestamp"`
}

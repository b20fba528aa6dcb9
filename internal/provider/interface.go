// Package provider defines the data-source collaborator interfaces and the
// closed set of raw payload shapes they return. Normalization of these
// payloads into core types lives in internal/normalize.
package provider

import (
	"context"
	"time"
)

// RawBar is one uncleaned OHLCV record as sources deliver it. Time is
// milliseconds since epoch, matching the common wire convention.
type RawBar struct {
	Time   int64   `json:"t"`
	Open   float64 `json:"o"`
	High   float64 `json:"h"`
	Low    float64 `json:"l"`
	Close  float64 `json:"c"`
	Volume float64 `json:"v"`
}

// StockBarsPayload carries raw equity bars.
type StockBarsPayload struct {
	Symbol    string
	Interval  string
	Bars      []RawBar
	PrevClose *float64
}

// CryptoBarsPayload carries raw crypto bars.
type CryptoBarsPayload struct {
	Symbol    string
	Interval  string
	Bars      []RawBar
	PrevClose *float64
}

// RawEarnings is one reported or scheduled earnings record.
type RawEarnings struct {
	ReportDate   *time.Time
	EPS          *float64
	ConsensusEPS *float64
}

// RawDividend is one dividend record.
type RawDividend struct {
	ExDate     *time.Time
	CashAmount float64
}

// StockEventsPayload carries raw corporate event records.
type StockEventsPayload struct {
	Symbol    string
	Earnings  []RawEarnings
	Dividends []RawDividend
}

// DerivativesPayload carries raw perp/derivatives readings.
type DerivativesPayload struct {
	Symbol              string
	FundingRate         *float64
	OpenInterest        *float64
	OpenInterestPrev24h *float64
	ImpliedVolRank      *float64
}

// RawNews is one news record before bounding and ordering.
type RawNews struct {
	Title       string
	Source      string
	URL         string
	PublishedAt time.Time
}

// NewsPayload carries raw news records for one symbol.
type NewsPayload struct {
	Symbol string
	Items  []RawNews
}

// RawOptionContract is one option quote line.
type RawOptionContract struct {
	Strike       float64
	Type         string // "call" | "put"
	Bid          float64
	Ask          float64
	ImpliedVol   *float64
	OpenInterest float64
	Volume       float64
}

// OptionChainPayload carries one expiry's contracts.
type OptionChainPayload struct {
	Symbol    string
	Expiry    time.Time
	Contracts []RawOptionContract
}

// StockProvider is the equity data collaborator.
type StockProvider interface {
	Name() string
	FetchBars(ctx context.Context, symbol, interval string, lookback int) (StockBarsPayload, error)
	FetchEvents(ctx context.Context, symbol string) (StockEventsPayload, error)
	FetchNews(ctx context.Context, symbol string, limit int) (NewsPayload, error)
	FetchOptionChain(ctx context.Context, symbol string, expiry *time.Time) (OptionChainPayload, error)
}

// CryptoBarProvider supplies spot crypto bars.
type CryptoBarProvider interface {
	Name() string
	FetchBars(ctx context.Context, symbol, interval string, lookback int) (CryptoBarsPayload, error)
}

// CryptoDerivativesProvider supplies funding and open-interest readings.
type CryptoDerivativesProvider interface {
	Name() string
	FetchFundingOI(ctx context.Context, symbol string) (DerivativesPayload, error)
}

// CryptoNewsProvider supplies crypto news.
type CryptoNewsProvider interface {
	Name() string
	FetchNews(ctx context.Context, symbol string, limit int) (NewsPayload, error)
}

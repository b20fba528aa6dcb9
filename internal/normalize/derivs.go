package normalize

import (
	"github.com/finlens/finlens/internal/core"
	"github.com/finlens/finlens/internal/provider"
)

// Derivatives normalizes a funding/open-interest payload. lastClose prices
// the open-interest notional; the 24h change is derived when both current
// and prior readings exist. Missing fields stay nil.
func Derivatives(p provider.DerivativesPayload, lastClose float64) core.DerivativesInfo {
	info := core.DerivativesInfo{
		FundingRate:    p.FundingRate,
		OpenInterest:   p.OpenInterest,
		ImpliedVolRank: p.ImpliedVolRank,
	}

	if p.OpenInterest != nil && lastClose > 0 {
		notional := *p.OpenInterest * lastClose
		info.OpenInterestNotional = &notional
	}

	if p.OpenInterest != nil && p.OpenInterestPrev24h != nil && *p.OpenInterestPrev24h > 0 {
		chg := (*p.OpenInterest - *p.OpenInterestPrev24h) / *p.OpenInterestPrev24h
		info.OpenInterestChg24h = &chg
	}

	return info
}

package normalize

import (
	"github.com/finlens/finlens/internal/core"
	"github.com/finlens/finlens/internal/provider"
)

// OptionChain summarizes a raw option chain payload. Contracts without an
// implied vol are excluded from the average; a chain with no open interest
// on calls leaves the put/call ratio unknown.
func OptionChain(p provider.OptionChainPayload) core.OptionsInfo {
	info := core.OptionsInfo{
		Expiry:    p.Expiry.UTC().Format("2006-01-02"),
		Contracts: len(p.Contracts),
	}

	var ivSum float64
	var ivCount int
	var callOI, putOI float64
	for _, c := range p.Contracts {
		if c.ImpliedVol != nil {
			ivSum += *c.ImpliedVol
			ivCount++
		}
		switch c.Type {
		case "call":
			callOI += c.OpenInterest
		case "put":
			putOI += c.OpenInterest
		}
	}

	if ivCount > 0 {
		avg := ivSum / float64(ivCount)
		info.AvgImpliedVol = &avg
	}
	if callOI > 0 {
		ratio := putOI / callOI
		info.PutCallOIRatio = &ratio
	}

	return info
}

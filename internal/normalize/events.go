package normalize

import (
	"time"

	"github.com/finlens/finlens/internal/core"
	"github.com/finlens/finlens/internal/provider"
)

// Events reduces raw earnings/dividend records to the next upcoming dates
// relative to now. Records without dates or already in the past are
// ignored; missing data leaves the corresponding field nil (unknown).
func Events(p provider.StockEventsPayload, now time.Time) core.EventInfo {
	var info core.EventInfo

	for _, e := range p.Earnings {
		if e.ReportDate == nil || e.ReportDate.Before(now) {
			continue
		}
		if info.NextEarnings == nil || e.ReportDate.Before(*info.NextEarnings) {
			d := e.ReportDate.UTC()
			info.NextEarnings = &d
		}
	}

	for _, d := range p.Dividends {
		if d.ExDate == nil || d.ExDate.Before(now) {
			continue
		}
		if info.DividendExDate == nil || d.ExDate.Before(*info.DividendExDate) {
			x := d.ExDate.UTC()
			info.DividendExDate = &x
		}
	}

	return info
}

package normalize

import (
	"sort"
	"strings"

	"github.com/finlens/finlens/internal/core"
	"github.com/finlens/finlens/internal/provider"
)

// News orders raw news newest-first and caps the list at limit. Items
// without a headline are skipped; a missing source becomes "unknown".
func News(p provider.NewsPayload, limit int) []core.NewsItem {
	items := make([]core.NewsItem, 0, len(p.Items))
	for _, n := range p.Items {
		title := strings.TrimSpace(n.Title)
		if title == "" {
			continue
		}
		source := strings.TrimSpace(n.Source)
		if source == "" {
			source = "unknown"
		}
		items = append(items, core.NewsItem{
			Headline:    title,
			Source:      source,
			URL:         n.URL,
			PublishedAt: n.PublishedAt.UTC(),
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

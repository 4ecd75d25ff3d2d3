package cmd

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	apigateway "github.com/hadivarp/apigateway"
)

func rateLimitLabel(p *apigateway.RateLimitPolicy) string {
	if p == nil {
		return "unlimited"
	}
	return fmt.Sprintf("%d / %s", p.MaxRequests, p.Window)
}

func durationLabel(d time.Duration, zero string) string {
	if d <= 0 {
		return zero
	}
	return d.String()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func timeLabel(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format(time.RFC3339)
}

func renderStats(stats []apigateway.ProviderStats, cache apigateway.CacheStats) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Provider", "Active", "Requests", "Last Request", "Rate Limit", "Window Count", "Cached"})
	for _, st := range stats {
		t.AppendRow(table.Row{
			st.Provider,
			yesNo(st.Active),
			st.RequestsMade,
			timeLabel(st.LastRequest),
			rateLimitLabel(st.RateLimit),
			st.WindowCount,
			st.CacheEntries,
		})
	}
	t.AppendFooter(table.Row{
		"",
		"",
		"",
		"",
		"",
		"cache",
		fmt.Sprintf("%d entries / %d providers / ~%d B", cache.Entries, cache.Providers, cache.ApproxBytes),
	})
	return t.Render()
}

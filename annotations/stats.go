package annotations

import (
	"fmt"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

// StatRow is the subset of queryrt.Stat needed to render a summary table,
// duplicated here rather than imported so this package has no dependency
// on queryrt (the dependency runs the other way: queryrt.AnnotationSink is
// implemented by Collector, not referenced by it).
type StatRow struct {
	Kind   string
	Hits   int64
	Misses int64
	Size   int
}

// NewStatsTable renders per-kind cache statistics as a markdown table,
// sorted by query kind name for stable output across runs.
func NewStatsTable(rows []StatRow) string {
	sorted := make([]StatRow, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Kind < sorted[j].Kind })

	var sb strings.Builder
	alignment := make([]tw.Align, 4)
	for i := range alignment {
		alignment[i] = tw.AlignNone
	}

	table := tablewriter.NewTable(&sb,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header([]string{"Kind", "Hits", "Misses", "Cached"})

	var totalHits, totalMisses int64
	for _, r := range sorted {
		table.Append([]string{
			r.Kind,
			fmt.Sprintf("%d", r.Hits),
			fmt.Sprintf("%d", r.Misses),
			fmt.Sprintf("%d", r.Size),
		})
		totalHits += r.Hits
		totalMisses += r.Misses
	}
	table.Render()

	fmt.Fprintf(&sb, "\n_%d kinds, %d hits, %d misses_\n", len(sorted), totalHits, totalMisses)
	return sb.String()
}

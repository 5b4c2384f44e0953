package analytics

import (
	"math"
	"sort"

	"github.com/geekatyourspot/rankpilot/internal/model"
)

// Compare diffs a BEFORE and AFTER snapshot per path. The result covers
// the union of paths from both sides, sorted by descending absolute views
// change with ties kept in input order, so the biggest movers come first.
func Compare(before, after []model.AnalyticsRow) []model.ComparisonRow {
	beforeByPath := make(map[string]model.AnalyticsRow, len(before))
	for _, row := range before {
		beforeByPath[row.Path] = row
	}
	afterByPath := make(map[string]model.AnalyticsRow, len(after))
	for _, row := range after {
		afterByPath[row.Path] = row
	}

	// Union of paths, before-side input order first, then after-only paths.
	paths := make([]string, 0, len(beforeByPath)+len(afterByPath))
	seen := make(map[string]bool, len(beforeByPath)+len(afterByPath))
	for _, row := range before {
		if !seen[row.Path] {
			seen[row.Path] = true
			paths = append(paths, row.Path)
		}
	}
	for _, row := range after {
		if !seen[row.Path] {
			seen[row.Path] = true
			paths = append(paths, row.Path)
		}
	}

	rows := make([]model.ComparisonRow, 0, len(paths))
	for _, path := range paths {
		b := beforeByPath[path]
		a := afterByPath[path]

		viewsChange := a.Views - b.Views
		var viewsChangePct float64
		switch {
		case b.Views > 0:
			viewsChangePct = float64(viewsChange) / float64(b.Views) * 100
		case a.Views > 0:
			viewsChangePct = 100
		}

		rows = append(rows, model.ComparisonRow{
			Path:             path,
			BeforeViews:      b.Views,
			AfterViews:       a.Views,
			ViewsChange:      viewsChange,
			ViewsChangePct:   math.Round(viewsChangePct*10) / 10,
			BeforeUsers:      b.ActiveUsers,
			AfterUsers:       a.ActiveUsers,
			UsersChange:      a.ActiveUsers - b.ActiveUsers,
			BeforeEngagement: b.AvgEngagementTime,
			AfterEngagement:  a.AvgEngagementTime,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return abs(rows[i].ViewsChange) > abs(rows[j].ViewsChange)
	})

	return rows
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

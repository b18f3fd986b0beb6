package footprint

import (
	"regexp"
	"sort"
	"strconv"
	"time"

	"ghg-footprint-backend/internal/domain"
	"ghg-footprint-backend/internal/pkg/numeric"
)

var (
	periodYear    = regexp.MustCompile(`(?:^|\D)((?:19|20)\d{2})(?:\D|$)`)
	periodQuarter = regexp.MustCompile(`(?i)Q([1-4])`)
)

// ParsePeriod extracts the year and optional quarter (0 when absent) from a
// period label such as "2024-Q1", "Q3 2023" or "FY2022".
func ParsePeriod(label string) (year, quarter int, ok bool) {
	m := periodYear.FindStringSubmatch(label)
	if m == nil {
		return 0, 0, false
	}
	year, _ = strconv.Atoi(m[1])
	if q := periodQuarter.FindStringSubmatch(label); q != nil {
		quarter, _ = strconv.Atoi(q[1])
	}
	return year, quarter, true
}

// YearOf returns the calendar year of a period, or the year of now when the
// label has none.
func YearOf(period string, now time.Time) int {
	if y, _, ok := ParsePeriod(period); ok {
		return y
	}
	return now.Year()
}

func periodKey(label string) (int, bool) {
	y, q, ok := ParsePeriod(label)
	if !ok {
		return 0, false
	}
	return y*10 + q, true
}

// SortSnapshots orders snapshots chronologically in place. Periods that
// cannot be parsed go last, keeping their relative order.
func SortSnapshots(snapshots []domain.FootprintSnapshot) {
	sort.SliceStable(snapshots, func(i, j int) bool {
		ki, oki := periodKey(snapshots[i].Period)
		kj, okj := periodKey(snapshots[j].Period)
		if oki != okj {
			return oki
		}
		return oki && ki < kj
	})
}

// BuildTimeline orders snapshots chronologically and computes the change
// from each period to the next.
func BuildTimeline(snapshots []domain.FootprintSnapshot) []TimelineEntry {
	sorted := append([]domain.FootprintSnapshot(nil), snapshots...)
	SortSnapshots(sorted)

	out := make([]TimelineEntry, 0, len(sorted))
	for i, s := range sorted {
		e := TimelineEntry{
			Period: s.Period,
			Scope1: s.Scope1,
			Scope2: s.Scope2,
			Scope3: s.Scope3,
			Total:  s.Total,
		}
		if i > 0 {
			prev := sorted[i-1].Total
			change := numeric.Emissions(s.Total - prev)
			e.Change = &change
			if prev != 0 {
				pct := numeric.Percent((s.Total - prev) / prev * 100)
				e.ChangePercent = &pct
			}
		}
		out = append(out, e)
	}
	return out
}

package board

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Upstream reports wagers in minor units (cents).
const minorUnitExponent = -2

// FormatWager converts a minor-unit amount to a two-decimal major-unit
// string: 1 becomes "0.01", 100 becomes "1.00". Scaling by 10^-2 is exact for
// integer minor units; StringFixed rounds half away from zero if it ever has
// to round at all.
func FormatWager(minor int64) string {
	return decimal.New(minor, minorUnitExponent).StringFixed(2)
}

// Build ranks records descending by wager amount and renders each as a
// display entry. The sort is stable: records with equal wagers keep their
// input order, so identical input produces identical output run to run.
// Empty input yields a snapshot with an empty entry list.
func Build(boundaryEnd time.Time, records []WagerRecord) Snapshot {
	ranked := make([]WagerRecord, len(records))
	copy(ranked, records)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Wager > ranked[j].Wager
	})

	entries := make([]Entry, 0, len(ranked))
	for _, r := range ranked {
		entries = append(entries, Entry{
			Wager:  FormatWager(r.Wager),
			Fields: r.Fields,
		})
	}

	return Snapshot{BoundaryEnd: boundaryEnd, Entries: entries}
}

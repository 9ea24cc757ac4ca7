package alert

import (
	"math"
	"sort"

	"pricewatch/pkg/catalog"
)

// Rank filters a run's change records down to alertable drops and orders
// them largest-drop first. A drop qualifies when its percentage delta is at
// or beyond the threshold magnitude; rises never qualify, though callers can
// still read their sign from the change records. Ties keep encounter order.
func Rank(changes []catalog.Change, thresholdPct float64) []catalog.Change {
	threshold := math.Abs(thresholdPct)

	var drops []catalog.Change
	for _, c := range changes {
		if c.Kind == catalog.KindChanged && c.Pct <= -threshold {
			drops = append(drops, c)
		}
	}

	sort.SliceStable(drops, func(i, j int) bool {
		return math.Abs(drops[i].Pct) > math.Abs(drops[j].Pct)
	})
	return drops
}

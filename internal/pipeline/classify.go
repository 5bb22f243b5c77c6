package pipeline

import (
	"math"
	"sort"
	"time"

	"solpipe/internal"
)

// AgingBuckets are the ordered stage-duration bands used across reports.
// Boundaries are inclusive on the upper edge: 60 days is 31-60d, 61 is 61-90d.
var AgingBuckets = []struct {
	Label string
	Upper int // inclusive; -1 means unbounded
}{
	{Label: "0-14d", Upper: 14},
	{Label: "15-30d", Upper: 30},
	{Label: "31-60d", Upper: 60},
	{Label: "61-90d", Upper: 90},
	{Label: "90d+", Upper: -1},
}

// IsPastDue reports whether the close date exists and lies strictly before
// the supplied reference day.
func IsPastDue(o internal.Opportunity, today time.Time) bool {
	return o.CloseDate != nil && o.CloseDate.Before(today)
}

// AgingBucket maps a stage duration onto its band label.
func AgingBucket(durationDays int) string {
	for _, b := range AgingBuckets {
		if b.Upper < 0 || durationDays <= b.Upper {
			return b.Label
		}
	}
	return AgingBuckets[len(AgingBuckets)-1].Label
}

// RiskScore combines deal size and staleness: PAR * ln(1 + duration).
// Monotonic in both inputs; used only for ranking, never persisted.
func RiskScore(o internal.Opportunity) float64 {
	return o.PAR.InexactFloat64() * math.Log1p(float64(o.StageDuration))
}

// SolutionsCycleDays is the whole-day span from received-by-team to
// closed-by-team. The bool result is false when either date is absent.
func SolutionsCycleDays(o internal.Opportunity) (int, bool) {
	if o.ReceivedBySolutions == nil || o.ClosedBySolutions == nil {
		return 0, false
	}
	return int(o.ClosedBySolutions.Sub(*o.ReceivedBySolutions).Hours() / 24), true
}

// TopAtRisk returns the n highest-risk records, descending by score.
// Ties keep dataset order so repeated calls rank identically.
func TopAtRisk(records []internal.Opportunity, n int) []internal.Opportunity {
	ranked := append([]internal.Opportunity{}, records...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return RiskScore(ranked[i]) > RiskScore(ranked[j])
	})
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

package syncer

import (
	"math"

	"github.com/MoovFleet/MoovFleet/internal/fleet"
)

// ActivityScore converts activity minutes into a 0-100 score against the
// daily target. A target of zero or less means no meaningful target is
// configured and every driver scores 100.
func ActivityScore(minutes float64, targetMinutes int) float64 {
	if targetMinutes <= 0 {
		return 100
	}
	score := math.Round(100 * minutes / float64(targetMinutes))
	if score > 100 {
		return 100
	}
	return score
}

// Composite weights per sub-score. Missing sub-scores drop out of both the
// numerator and the denominator, so the weights renormalize over whatever
// is present.
var compositeWeights = []struct {
	weight float64
	pick   func(r *fleet.ActivityRecord) *float64
}{
	{0.20, func(r *fleet.ActivityRecord) *float64 { return r.ScoreSpeed }},
	{0.20, func(r *fleet.ActivityRecord) *float64 { return r.ScoreBraking }},
	{0.15, func(r *fleet.ActivityRecord) *float64 { return r.ScoreAcceleration }},
	{0.15, func(r *fleet.ActivityRecord) *float64 { return r.ScoreCornering }},
	{0.15, func(r *fleet.ActivityRecord) *float64 { return r.ScoreRegularity }},
	{0.15, func(r *fleet.ActivityRecord) *float64 { return r.ScoreActivity }},
}

// RecomputeComposite returns the weighted composite over the record's
// present sub-scores, or the previous composite unchanged when none is set.
func RecomputeComposite(rec *fleet.ActivityRecord) float64 {
	var sum, weightSum float64
	for _, c := range compositeWeights {
		if v := c.pick(rec); v != nil {
			sum += c.weight * *v
			weightSum += c.weight
		}
	}
	if weightSum == 0 {
		return rec.GlobalScore
	}
	return math.Round(sum/weightSum*100) / 100
}

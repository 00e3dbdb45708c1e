package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/roach88/morphic/internal/ir"
)

// Classification buckets event identifiers by score.
//
// The three sets are computed independently; an event may appear in more
// than one (a high-scoring recent event is both dominant and emerging).
// Each set lists events in order of first appearance, without duplicates.
type Classification struct {
	Dominant  []string `json:"dominant"`
	Recessive []string `json:"recessive"`
	Emerging  []string `json:"emerging"`
}

// Score is frequency × success_rate × resonance_impact.
func Score(p ir.UsagePattern) float64 {
	return p.Frequency * p.SuccessRate * p.ResonanceImpact
}

// Classify scores each pattern and buckets its event.
//
// Recency is now − timestamp in milliseconds. An empty sequence yields three
// empty sets. A pattern with a non-finite field fails the whole call with
// INVALID_INPUT; the input is never modified.
func Classify(patterns []ir.UsagePattern, now time.Time, th Thresholds) (Classification, error) {
	if err := th.Validate(); err != nil {
		return Classification{}, NewInvalidInputError("invalid thresholds", err)
	}
	c := Classification{
		Dominant:  []string{},
		Recessive: []string{},
		Emerging:  []string{},
	}

	nowMs := now.UnixMilli()
	window := th.EmergingWindow.Milliseconds()
	seen := [3]map[string]bool{{}, {}, {}}

	for i, p := range patterns {
		if err := p.Validate(); err != nil {
			return Classification{}, NewInvalidInputError(fmt.Sprintf("pattern %d", i), err)
		}

		score := Score(p)
		if math.IsInf(score, 0) || math.IsNaN(score) {
			return Classification{}, NewInvalidInputError(fmt.Sprintf("pattern %d: score overflows", i), nil)
		}
		recency := nowMs - p.Timestamp

		if score > th.DominantScore && !seen[0][p.Event] {
			seen[0][p.Event] = true
			c.Dominant = append(c.Dominant, p.Event)
		}
		if score < th.RecessiveScore && !seen[1][p.Event] {
			seen[1][p.Event] = true
			c.Recessive = append(c.Recessive, p.Event)
		}
		if score > th.EmergingScore && recency < window && !seen[2][p.Event] {
			seen[2][p.Event] = true
			c.Emerging = append(c.Emerging, p.Event)
		}
	}

	return c, nil
}

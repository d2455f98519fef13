package domain

import "time"

// Edge weight clamp bounds. No reinforcement or decay ever moves a weight
// outside this range, and no edge is ever deleted.
const (
	MinEdgeWeight = 0.1
	MaxEdgeWeight = 10.0
)

// GraphEdgeWeight is the learned salience of one graph edge. Created lazily
// on first reinforcement, mutated on every outcome that traverses it.
type GraphEdgeWeight struct {
	Key EdgeKey `json:"key"`

	Weight        float64 `json:"weight"`
	InitialWeight float64 `json:"initial_weight"`

	Successes  int       `json:"successes"`
	Failures   int       `json:"failures"`
	UsageCount int       `json:"usage_count"`
	LastUsed   time.Time `json:"last_used"`
}

func NewGraphEdgeWeight(key EdgeKey, initialWeight float64) *GraphEdgeWeight {
	return &GraphEdgeWeight{
		Key:           key,
		Weight:        clampWeight(initialWeight),
		InitialWeight: initialWeight,
		LastUsed:      time.Now(),
	}
}

// ApplyDelta moves the weight by delta, clamped to [MinEdgeWeight,
// MaxEdgeWeight], and touches LastUsed.
func (e *GraphEdgeWeight) ApplyDelta(delta float64) {
	e.Weight = clampWeight(e.Weight + delta)
	e.LastUsed = time.Now()
}

// EffectivenessRatio is successes over total observations, neutral 0.5 when
// the edge has never been scored.
func (e *GraphEdgeWeight) EffectivenessRatio() float64 {
	total := e.Successes + e.Failures
	if total == 0 {
		return 0.5
	}
	return float64(e.Successes) / float64(total)
}

func clampWeight(w float64) float64 {
	if w < MinEdgeWeight {
		return MinEdgeWeight
	}
	if w > MaxEdgeWeight {
		return MaxEdgeWeight
	}
	return w
}

package domain

// Latency smoothing: 0.8 of the old average, 0.2 of the new sample.
const (
	latencySmoothingOld = 0.8
	latencySmoothingNew = 0.2
)

// DefaultMinSamples is the sample count a method/query-type statistic needs
// before routing trusts it.
const DefaultMinSamples = 5

// MethodKey is the composite key for effectiveness statistics.
type MethodKey struct {
	Method    RetrievalMethod
	QueryType QueryType
}

// MethodEffectiveness tracks how well one retrieval method performs for one
// query type.
type MethodEffectiveness struct {
	Method    RetrievalMethod `json:"method"`
	QueryType QueryType       `json:"query_type"`

	SuccessRate    float64 `json:"success_rate"`
	AvgExecutionMs float64 `json:"average_execution_time_ms"`
	TotalUses      int     `json:"total_uses"`
	SuccessfulUses int     `json:"successful_uses"`

	// Confidence in the statistic itself, rising with sample count.
	Confidence float64 `json:"confidence"`
}

func NewMethodEffectiveness(method RetrievalMethod, queryType QueryType) *MethodEffectiveness {
	return &MethodEffectiveness{
		Method:      method,
		QueryType:   queryType,
		SuccessRate: 0.5,
	}
}

// Update folds one observation into the running statistics: counts, the
// exponentially smoothed latency, the success rate, and the sample-size
// confidence 1 - 1/(1 + uses*0.1).
func (m *MethodEffectiveness) Update(success bool, executionMs float64) {
	m.TotalUses++
	if success {
		m.SuccessfulUses++
	}

	if m.AvgExecutionMs == 0 {
		m.AvgExecutionMs = executionMs
	} else {
		m.AvgExecutionMs = latencySmoothingOld*m.AvgExecutionMs + latencySmoothingNew*executionMs
	}

	m.SuccessRate = float64(m.SuccessfulUses) / float64(m.TotalUses)
	m.Confidence = 1.0 - (1.0 / (1.0 + float64(m.TotalUses)*0.1))
}

// Reliable reports whether the statistic has enough samples and derived
// confidence to steer routing.
func (m *MethodEffectiveness) Reliable(minSamples int) bool {
	return m.TotalUses >= minSamples && m.Confidence > 0.5
}

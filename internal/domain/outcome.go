package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUnknownMethod    = errors.New("unknown retrieval method")
	ErrUnknownQueryType = errors.New("unknown query type")
	ErrScoreOutOfRange  = errors.New("score out of range [0,1]")
)

// Composite success score weights. The single blended number drives every
// downstream learning decision.
const (
	successWeight    = 0.4
	confidenceWeight = 0.3
	reasoningWeight  = 0.2
	coherenceWeight  = 0.1
)

// EdgeKey identifies one graph edge by its (source, target, relation) triple.
// It is both the wire representation of a traversed edge and the composite
// map key for learned edge weights.
type EdgeKey struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Relation string `json:"relation"`
}

func (k EdgeKey) String() string {
	return k.Source + " -[" + k.Relation + "]-> " + k.Target
}

// RetrievalOutcome records the result of a single retrieval execution.
// Immutable once appended to the learning state.
type RetrievalOutcome struct {
	ID        uuid.UUID       `json:"outcome_id"`
	Signature *QuerySignature `json:"query_signature"`
	Method    RetrievalMethod `json:"retrieval_method"`

	Success            bool    `json:"success"`
	Confidence         float64 `json:"confidence_score"`
	ReasoningValidity  float64 `json:"reasoning_validity"`
	EmbeddingCoherence float64 `json:"embedding_coherence"`

	RetrievedNodes []string  `json:"retrieved_nodes,omitempty"`
	RetrievedEdges []EdgeKey `json:"retrieved_edges,omitempty"`

	ExecutionMs float64   `json:"execution_time_ms"`
	CreatedAt   time.Time `json:"created_at"`

	// restoredScore carries the composite score of an outcome rebuilt from
	// an export snapshot, whose component scores are not part of the
	// export schema.
	restoredScore *float64
}

// CompositeSuccessScore blends the raw success flag with the three quality
// scores: 0.4*success + 0.3*confidence + 0.2*reasoning + 0.1*coherence,
// clamped to [0,1]. Non-decreasing in each input.
func (o *RetrievalOutcome) CompositeSuccessScore() float64 {
	if o.restoredScore != nil {
		return *o.restoredScore
	}

	s := 0.0
	if o.Success {
		s = 1.0
	}
	score := s*successWeight +
		o.Confidence*confidenceWeight +
		o.ReasoningValidity*reasoningWeight +
		o.EmbeddingCoherence*coherenceWeight

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// Validate checks the programming contract: a valid method and all score
// inputs within [0,1]. Violations fail fast rather than corrupting state.
func (o *RetrievalOutcome) Validate() error {
	if !o.Method.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownMethod, o.Method)
	}
	for name, v := range map[string]float64{
		"confidence_score":    o.Confidence,
		"reasoning_validity":  o.ReasoningValidity,
		"embedding_coherence": o.EmbeddingCoherence,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s=%v", ErrScoreOutOfRange, name, v)
		}
	}
	return nil
}

// RestoreOutcome rebuilds an outcome from an export snapshot. The restored
// outcome reports the recorded composite score verbatim so that
// export -> import -> export is lossless.
func RestoreOutcome(id uuid.UUID, sig *QuerySignature, method RetrievalMethod, success bool, compositeScore, executionMs float64, createdAt time.Time) *RetrievalOutcome {
	return &RetrievalOutcome{
		ID:            id,
		Signature:     sig,
		Method:        method,
		Success:       success,
		ExecutionMs:   executionMs,
		CreatedAt:     createdAt,
		restoredScore: &compositeScore,
	}
}

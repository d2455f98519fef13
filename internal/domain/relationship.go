package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidTransition = errors.New("invalid relationship status transition")

type RelationStatus string

const (
	RelationPending  RelationStatus = "pending"
	RelationApproved RelationStatus = "approved"
	RelationActive   RelationStatus = "active"
	RelationRejected RelationStatus = "rejected"
)

// CanTransition reports whether the status machine permits moving to next.
// Transitions only run forward: pending may become approved, active or
// rejected; every other state is terminal.
func (s RelationStatus) CanTransition(next RelationStatus) bool {
	if s != RelationPending {
		return false
	}
	switch next {
	case RelationApproved, RelationActive, RelationRejected:
		return true
	}
	return false
}

// LatentRelationship is a candidate entity-to-entity edge mined from the
// reasoning trace of a successful retrieval.
type LatentRelationship struct {
	ID       uuid.UUID `json:"relation_id"`
	Source   string    `json:"source_entity"`
	Target   string    `json:"target_entity"`
	Relation string    `json:"relationship_type"`

	Confidence   float64  `json:"confidence_score"`
	Observations int      `json:"observations"`
	Support      []string `json:"reasoning_chain"`

	Status       RelationStatus `json:"status"`
	DiscoveredAt time.Time      `json:"discovered_at"`
	ApprovedAt   *time.Time     `json:"approved_at,omitempty"`
}

func NewLatentRelationship(source, target, relation string, confidence float64, snippet string) *LatentRelationship {
	return &LatentRelationship{
		ID:           uuid.New(),
		Source:       source,
		Target:       target,
		Relation:     relation,
		Confidence:   confidence,
		Observations: 1,
		Support:      []string{snippet},
		Status:       RelationPending,
		DiscoveredAt: time.Now(),
	}
}

// Transition moves the relationship to next, enforcing the forward-only
// state machine and timestamping approval/activation.
func (r *LatentRelationship) Transition(next RelationStatus) error {
	if !r.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, next)
	}
	r.Status = next
	if next == RelationApproved || next == RelationActive {
		now := time.Now()
		r.ApprovedAt = &now
	}
	return nil
}

// Eligible reports whether the relationship may be persisted into the
// durable graph.
func (r *LatentRelationship) Eligible() bool {
	return r.Status == RelationApproved || r.Status == RelationActive
}

// Observe folds one more observation into the running confidence average
// and appends its supporting snippet.
func (r *LatentRelationship) Observe(confidence float64, snippet string) {
	n := float64(r.Observations)
	r.Confidence = (r.Confidence*n + confidence) / (n + 1)
	r.Observations++
	r.Support = append(r.Support, snippet)
}

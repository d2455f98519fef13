package domain

import (
	"errors"
	"testing"
)

func TestRelationshipTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    RelationStatus
		to      RelationStatus
		wantErr bool
	}{
		{"pending to approved", RelationPending, RelationApproved, false},
		{"pending to active", RelationPending, RelationActive, false},
		{"pending to rejected", RelationPending, RelationRejected, false},
		{"approved is terminal", RelationApproved, RelationActive, true},
		{"active is terminal", RelationActive, RelationApproved, true},
		{"rejected is terminal", RelationRejected, RelationApproved, true},
		{"pending to pending", RelationPending, RelationPending, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewLatentRelationship("a", "b", "causes", 0.8, "a causes b")
			r.Status = tt.from

			err := r.Transition(tt.to)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTransition) {
					t.Errorf("want ErrInvalidTransition, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.Status != tt.to {
				t.Errorf("status = %s, want %s", r.Status, tt.to)
			}
		})
	}
}

func TestTransition_TimestampsApproval(t *testing.T) {
	r := NewLatentRelationship("a", "b", "causes", 0.8, "a causes b")
	if r.ApprovedAt != nil {
		t.Fatal("new relationship should have no approval timestamp")
	}

	if err := r.Transition(RelationApproved); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.ApprovedAt == nil {
		t.Error("approval should set ApprovedAt")
	}
}

func TestTransition_RejectionHasNoTimestamp(t *testing.T) {
	r := NewLatentRelationship("a", "b", "causes", 0.8, "a causes b")
	if err := r.Transition(RelationRejected); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.ApprovedAt != nil {
		t.Error("rejection should not set ApprovedAt")
	}
}

func TestObserve_RunningAverage(t *testing.T) {
	r := NewLatentRelationship("a", "b", "similar_to", 0.6, "first sighting")

	r.Observe(0.8, "second sighting")

	if !almostEqual(r.Confidence, 0.7) {
		t.Errorf("confidence = %v, want 0.7", r.Confidence)
	}
	if r.Observations != 2 {
		t.Errorf("observations = %d, want 2", r.Observations)
	}
	if len(r.Support) != 2 {
		t.Errorf("support length = %d, want 2", len(r.Support))
	}

	r.Observe(0.9, "third sighting")
	// (0.7*2 + 0.9) / 3
	if !almostEqual(r.Confidence, 2.3/3) {
		t.Errorf("confidence = %v, want %v", r.Confidence, 2.3/3)
	}
}

func TestEligible(t *testing.T) {
	r := NewLatentRelationship("a", "b", "causes", 0.8, "snippet")
	if r.Eligible() {
		t.Error("pending relationship should not be eligible")
	}

	_ = r.Transition(RelationApproved)
	if !r.Eligible() {
		t.Error("approved relationship should be eligible")
	}

	rejected := NewLatentRelationship("c", "d", "causes", 0.8, "snippet")
	_ = rejected.Transition(RelationRejected)
	if rejected.Eligible() {
		t.Error("rejected relationship should not be eligible")
	}
}

package domain

import "testing"

func TestApplyDelta_Clamps(t *testing.T) {
	key := EdgeKey{Source: "a", Target: "b", Relation: "related_to"}

	t.Run("ceiling", func(t *testing.T) {
		e := NewGraphEdgeWeight(key, 1.0)
		for i := 0; i < 100; i++ {
			e.ApplyDelta(0.5)
		}
		if e.Weight != MaxEdgeWeight {
			t.Errorf("weight = %v, want clamped to %v", e.Weight, MaxEdgeWeight)
		}
	})

	t.Run("floor", func(t *testing.T) {
		e := NewGraphEdgeWeight(key, 1.0)
		for i := 0; i < 100; i++ {
			e.ApplyDelta(-0.5)
		}
		if e.Weight != MinEdgeWeight {
			t.Errorf("weight = %v, want clamped to %v", e.Weight, MinEdgeWeight)
		}
	})

	t.Run("in range", func(t *testing.T) {
		e := NewGraphEdgeWeight(key, 1.0)
		e.ApplyDelta(0.25)
		if !almostEqual(e.Weight, 1.25) {
			t.Errorf("weight = %v, want 1.25", e.Weight)
		}
	})
}

func TestNewGraphEdgeWeight_ClampsInitial(t *testing.T) {
	key := EdgeKey{Source: "a", Target: "b", Relation: "causes"}

	e := NewGraphEdgeWeight(key, 50.0)
	if e.Weight != MaxEdgeWeight {
		t.Errorf("weight = %v, want %v", e.Weight, MaxEdgeWeight)
	}

	e = NewGraphEdgeWeight(key, 0.0)
	if e.Weight != MinEdgeWeight {
		t.Errorf("weight = %v, want %v", e.Weight, MinEdgeWeight)
	}
}

func TestEffectivenessRatio(t *testing.T) {
	key := EdgeKey{Source: "a", Target: "b", Relation: "part_of"}
	e := NewGraphEdgeWeight(key, 1.0)

	if got := e.EffectivenessRatio(); got != 0.5 {
		t.Errorf("unscored edge ratio = %v, want neutral 0.5", got)
	}

	e.Successes = 3
	e.Failures = 1
	if got := e.EffectivenessRatio(); got != 0.75 {
		t.Errorf("ratio = %v, want 0.75", got)
	}
}

package service

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/adaptiverag/metagraph/internal/domain"
	"github.com/adaptiverag/metagraph/internal/metagraph"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func almostEqual(a, b float64) bool {
	diff := a - b
	return diff < 1e-9 && diff > -1e-9
}

func recordParams(method domain.RetrievalMethod, success bool, executionMs float64) RecordParams {
	return RecordParams{
		Signature:          domain.NewQuerySignature("what links training to deployment", nil, domain.QueryMultiHop),
		Method:             method,
		Success:            success,
		Confidence:         0.9,
		ReasoningValidity:  0.8,
		EmbeddingCoherence: 0.75,
		ExecutionMs:        executionMs,
	}
}

func appendAged(t *testing.T, state *metagraph.State, method domain.RetrievalMethod, success bool, ageDays int) {
	t.Helper()
	sig := domain.NewQuerySignature("aged query", nil, domain.QuerySemantic)
	err := state.AppendOutcome(&domain.RetrievalOutcome{
		ID:                 uuid.New(),
		Signature:          sig,
		Method:             method,
		Success:            success,
		Confidence:         0.6,
		ReasoningValidity:  0.4,
		EmbeddingCoherence: 0.5,
		CreatedAt:          time.Now().AddDate(0, 0, -ageDays),
	})
	if err != nil {
		t.Fatalf("append aged outcome: %v", err)
	}
}

func TestRecord(t *testing.T) {
	state := metagraph.New()
	tr := NewTracker(state, zap.NewNop())

	outcome, err := tr.Record(recordParams(domain.MethodVectorSearch, true, 42))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.ID == uuid.Nil {
		t.Error("outcome must get an identity")
	}
	if state.OutcomeCount() != 1 {
		t.Errorf("outcome count = %d, want 1", state.OutcomeCount())
	}
}

func TestRecord_RejectsInvalid(t *testing.T) {
	tr := NewTracker(metagraph.New(), zap.NewNop())

	p := recordParams(domain.MethodVectorSearch, true, 10)
	p.Confidence = 1.4
	if _, err := tr.Record(p); err == nil {
		t.Error("out-of-range confidence must be rejected")
	}
}

func TestSuccessRateAndLatency_Windowed(t *testing.T) {
	state := metagraph.New()
	tr := NewTracker(state, zap.NewNop())

	// One stale success outside the 30-day window, then fresh outcomes.
	appendAged(t, state, domain.MethodVectorSearch, true, 60)
	_, _ = tr.Record(recordParams(domain.MethodVectorSearch, true, 100))
	_, _ = tr.Record(recordParams(domain.MethodVectorSearch, false, 300))

	if got := tr.SuccessRate(domain.MethodVectorSearch, 30); got != 0.5 {
		t.Errorf("success rate = %v, want 0.5 (stale outcome excluded)", got)
	}
	if got := tr.AverageExecutionMs(domain.MethodVectorSearch, 30); got != 200 {
		t.Errorf("avg execution = %v, want 200", got)
	}
	if got := tr.SuccessRate(domain.MethodGraphTraversal, 30); got != 0 {
		t.Errorf("success rate with no data = %v, want 0", got)
	}
}

func TestOutcomesByQueryType(t *testing.T) {
	tr := NewTracker(metagraph.New(), zap.NewNop())

	_, _ = tr.Record(recordParams(domain.MethodVectorSearch, true, 10))

	p := recordParams(domain.MethodVectorSearch, true, 10)
	p.Signature = domain.NewQuerySignature("list everything", nil, domain.QueryStructured)
	_, _ = tr.Record(p)

	if got := tr.OutcomesByQueryType(domain.QueryMultiHop, 0); len(got) != 1 {
		t.Errorf("multi-hop outcomes = %d, want 1", len(got))
	}
	if got := tr.OutcomesByQueryType(domain.QueryConstraint, 0); len(got) != 0 {
		t.Errorf("constraint outcomes = %d, want 0", len(got))
	}
}

func TestFailedRetrievals_NewestFirstCapped(t *testing.T) {
	state := metagraph.New()
	tr := NewTracker(state, zap.NewNop())

	appendAged(t, state, domain.MethodVectorSearch, false, 3)
	appendAged(t, state, domain.MethodGraphTraversal, false, 2)
	appendAged(t, state, domain.MethodLogicalFiltering, false, 1)
	appendAged(t, state, domain.MethodVectorSearch, true, 1)

	failed := tr.FailedRetrievals(2, 30)
	if len(failed) != 2 {
		t.Fatalf("failures = %d, want 2", len(failed))
	}
	if failed[0].Method != domain.MethodLogicalFiltering {
		t.Errorf("newest failure method = %s, want logical_filtering", failed[0].Method)
	}
	if failed[0].CreatedAt.Before(failed[1].CreatedAt) {
		t.Error("failures must be ordered newest first")
	}
}

func TestEffectivenessFor(t *testing.T) {
	tr := NewTracker(metagraph.New(), zap.NewNop())

	_, _ = tr.Record(recordParams(domain.MethodVectorSearch, true, 100))

	p := recordParams(domain.MethodVectorSearch, false, 100)
	p.Confidence = 0.1
	p.ReasoningValidity = 0.2
	p.EmbeddingCoherence = 0.3
	_, _ = tr.Record(p)

	eff := tr.EffectivenessFor(domain.MethodVectorSearch, "", 30)
	if eff.TotalUses != 2 {
		t.Fatalf("total uses = %d, want 2", eff.TotalUses)
	}
	// The first outcome's composite clears 0.5, the second does not.
	if eff.SuccessfulUses != 1 {
		t.Errorf("successful uses = %d, want 1", eff.SuccessfulUses)
	}

	filtered := tr.EffectivenessFor(domain.MethodVectorSearch, domain.QueryStructured, 30)
	if filtered.TotalUses != 0 {
		t.Errorf("uses for unmatched query type = %d, want 0", filtered.TotalUses)
	}
}

func TestPerformanceSummary(t *testing.T) {
	tr := NewTracker(metagraph.New(), zap.NewNop())

	_, _ = tr.Record(recordParams(domain.MethodVectorSearch, true, 100))
	_, _ = tr.Record(recordParams(domain.MethodVectorSearch, false, 200))
	_, _ = tr.Record(recordParams(domain.MethodGraphTraversal, true, 50))

	summary := tr.PerformanceSummary(0)
	if summary.TimeWindowDays != DefaultWindowDays {
		t.Errorf("window = %d, want default %d", summary.TimeWindowDays, DefaultWindowDays)
	}
	if summary.TotalOutcomes != 3 {
		t.Errorf("total outcomes = %d, want 3", summary.TotalOutcomes)
	}
	if !almostEqual(summary.OverallSuccessRate, 2.0/3.0) {
		t.Errorf("overall success rate = %v, want 2/3", summary.OverallSuccessRate)
	}

	vector, ok := summary.Methods[domain.MethodVectorSearch]
	if !ok {
		t.Fatal("vector method summary missing")
	}
	if vector.Count != 2 || vector.SuccessRate != 0.5 || vector.AvgExecutionMs != 150 {
		t.Errorf("vector summary = %+v", vector)
	}
	if _, ok := summary.Methods[domain.MethodLogicalFiltering]; ok {
		t.Error("methods with no outcomes must be omitted")
	}
}

func TestExportImport_RoundTrip(t *testing.T) {
	tr := NewTracker(metagraph.New(), zap.NewNop())

	_, _ = tr.Record(recordParams(domain.MethodVectorSearch, true, 120))
	p := recordParams(domain.MethodGraphTraversal, false, 45)
	p.Confidence = 0.2
	p.ReasoningValidity = 0.4
	p.EmbeddingCoherence = 0.5
	_, _ = tr.Record(p)

	var first bytes.Buffer
	if err := tr.Export(&first); err != nil {
		t.Fatalf("export: %v", err)
	}

	restored := NewTracker(metagraph.New(), zap.NewNop())
	count, err := restored.Import(bytes.NewReader(first.Bytes()))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if count != 2 {
		t.Fatalf("imported = %d, want 2", count)
	}

	var second bytes.Buffer
	if err := restored.Export(&second); err != nil {
		t.Fatalf("re-export: %v", err)
	}

	var a, b exportEnvelope
	if err := json.Unmarshal(first.Bytes(), &a); err != nil {
		t.Fatalf("decode first: %v", err)
	}
	if err := json.Unmarshal(second.Bytes(), &b); err != nil {
		t.Fatalf("decode second: %v", err)
	}
	if a.TotalOutcomes != b.TotalOutcomes {
		t.Fatalf("totals differ: %d vs %d", a.TotalOutcomes, b.TotalOutcomes)
	}
	for i := range a.Outcomes {
		if a.Outcomes[i].OutcomeID != b.Outcomes[i].OutcomeID {
			t.Errorf("outcome %d identity changed", i)
		}
		if a.Outcomes[i].CompositeScore != b.Outcomes[i].CompositeScore {
			t.Errorf("outcome %d composite score %v != %v", i,
				a.Outcomes[i].CompositeScore, b.Outcomes[i].CompositeScore)
		}
	}
}

func TestImport_RejectsUnknownMethod(t *testing.T) {
	tr := NewTracker(metagraph.New(), zap.NewNop())

	payload := `{"exported_at":"2026-01-01T00:00:00Z","total_outcomes":1,"outcomes":[
		{"outcome_id":"` + uuid.NewString() + `","method":"divination","success":true,
		 "composite_score":0.5,"execution_time_ms":1,"created_at":"2026-01-01T00:00:00Z"}]}`

	if _, err := tr.Import(bytes.NewReader([]byte(payload))); err == nil {
		t.Error("unknown method in snapshot must fail")
	}
}

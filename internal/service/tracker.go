package service

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/adaptiverag/metagraph/internal/domain"
	"github.com/adaptiverag/metagraph/internal/metagraph"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultWindowDays is the trailing time window applied when a caller
// passes days <= 0.
const DefaultWindowDays = 30

// Tracker records every retrieval outcome into the shared learning state
// and answers time-windowed questions about them.
type Tracker struct {
	state  *metagraph.State
	logger *zap.Logger
}

func NewTracker(state *metagraph.State, logger *zap.Logger) *Tracker {
	return &Tracker{state: state, logger: logger}
}

// RecordParams carries the inputs for one outcome. Well-formed input is
// never rejected; out-of-range scores and unknown methods fail fast.
type RecordParams struct {
	Signature          *domain.QuerySignature
	Method             domain.RetrievalMethod
	Success            bool
	Confidence         float64
	ReasoningValidity  float64
	EmbeddingCoherence float64
	Nodes              []string
	Edges              []domain.EdgeKey
	ExecutionMs        float64
}

// Record appends one outcome to the append-only log.
func (t *Tracker) Record(p RecordParams) (*domain.RetrievalOutcome, error) {
	outcome := &domain.RetrievalOutcome{
		ID:                 uuid.New(),
		Signature:          p.Signature,
		Method:             p.Method,
		Success:            p.Success,
		Confidence:         p.Confidence,
		ReasoningValidity:  p.ReasoningValidity,
		EmbeddingCoherence: p.EmbeddingCoherence,
		RetrievedNodes:     p.Nodes,
		RetrievedEdges:     p.Edges,
		ExecutionMs:        p.ExecutionMs,
		CreatedAt:          time.Now(),
	}

	if err := t.state.AppendOutcome(outcome); err != nil {
		return nil, fmt.Errorf("record outcome: %w", err)
	}

	t.logger.Info("recorded outcome",
		zap.String("outcome_id", outcome.ID.String()),
		zap.String("method", string(p.Method)),
		zap.Bool("success", p.Success),
		zap.Float64("composite_score", outcome.CompositeSuccessScore()))

	return outcome, nil
}

func windowCutoff(days int) time.Time {
	if days <= 0 {
		days = DefaultWindowDays
	}
	return time.Now().AddDate(0, 0, -days)
}

// OutcomesByMethod returns outcomes for one method within the trailing
// window.
func (t *Tracker) OutcomesByMethod(method domain.RetrievalMethod, days int) []*domain.RetrievalOutcome {
	return t.state.OutcomesSince(windowCutoff(days), func(o *domain.RetrievalOutcome) bool {
		return o.Method == method
	})
}

// OutcomesByQueryType returns outcomes for one query type within the
// trailing window.
func (t *Tracker) OutcomesByQueryType(queryType domain.QueryType, days int) []*domain.RetrievalOutcome {
	return t.state.OutcomesSince(windowCutoff(days), func(o *domain.RetrievalOutcome) bool {
		return o.Signature != nil && o.Signature.QueryType == queryType
	})
}

// SuccessRate is the fraction of successful outcomes within the window,
// optionally restricted to one method ("" means all methods). No data
// yields 0.
func (t *Tracker) SuccessRate(method domain.RetrievalMethod, days int) float64 {
	outcomes := t.windowed(method, days)
	if len(outcomes) == 0 {
		return 0
	}
	successful := 0
	for _, o := range outcomes {
		if o.Success {
			successful++
		}
	}
	return float64(successful) / float64(len(outcomes))
}

// AverageExecutionMs is the mean latency within the window, optionally
// restricted to one method ("" means all methods).
func (t *Tracker) AverageExecutionMs(method domain.RetrievalMethod, days int) float64 {
	outcomes := t.windowed(method, days)
	if len(outcomes) == 0 {
		return 0
	}
	total := 0.0
	for _, o := range outcomes {
		total += o.ExecutionMs
	}
	return total / float64(len(outcomes))
}

func (t *Tracker) windowed(method domain.RetrievalMethod, days int) []*domain.RetrievalOutcome {
	return t.state.OutcomesSince(windowCutoff(days), func(o *domain.RetrievalOutcome) bool {
		return method == "" || o.Method == method
	})
}

// FailedRetrievals returns the most recent failures within the window,
// newest first, capped at limit.
func (t *Tracker) FailedRetrievals(limit, days int) []*domain.RetrievalOutcome {
	failed := t.state.OutcomesSince(windowCutoff(days), func(o *domain.RetrievalOutcome) bool {
		return !o.Success
	})

	sort.Slice(failed, func(i, j int) bool {
		return failed[i].CreatedAt.After(failed[j].CreatedAt)
	})
	if limit > 0 && len(failed) > limit {
		failed = failed[:limit]
	}
	return failed
}

// EffectivenessFor derives a fresh MethodEffectiveness from the windowed
// outcome log for one method, optionally restricted to a query type
// ("" means any). Success here means composite score above 0.5.
func (t *Tracker) EffectivenessFor(method domain.RetrievalMethod, queryType domain.QueryType, days int) *domain.MethodEffectiveness {
	outcomes := t.OutcomesByMethod(method, days)

	eff := domain.NewMethodEffectiveness(method, queryType)
	for _, o := range outcomes {
		if queryType != "" && (o.Signature == nil || o.Signature.QueryType != queryType) {
			continue
		}
		eff.Update(o.CompositeSuccessScore() > 0.5, o.ExecutionMs)
	}
	return eff
}

// MethodSummary is the per-method block of a performance summary.
type MethodSummary struct {
	Count          int     `json:"count"`
	SuccessRate    float64 `json:"success_rate"`
	AvgExecutionMs float64 `json:"avg_execution_time_ms"`
	AvgConfidence  float64 `json:"avg_confidence"`
}

// PerformanceSummary aggregates the windowed log: overall success rate and
// latency plus a per-method breakdown for methods with at least one outcome.
type PerformanceSummary struct {
	Timestamp             time.Time                                `json:"timestamp"`
	TimeWindowDays        int                                      `json:"time_window_days"`
	TotalOutcomes         int                                      `json:"total_outcomes"`
	OverallSuccessRate    float64                                  `json:"overall_success_rate"`
	OverallAvgExecutionMs float64                                  `json:"overall_avg_execution_time_ms"`
	Methods               map[domain.RetrievalMethod]MethodSummary `json:"methods"`
}

func (t *Tracker) PerformanceSummary(days int) PerformanceSummary {
	if days <= 0 {
		days = DefaultWindowDays
	}

	summary := PerformanceSummary{
		Timestamp:             time.Now(),
		TimeWindowDays:        days,
		TotalOutcomes:         t.state.OutcomeCount(),
		OverallSuccessRate:    t.SuccessRate("", days),
		OverallAvgExecutionMs: t.AverageExecutionMs("", days),
		Methods:               make(map[domain.RetrievalMethod]MethodSummary),
	}

	for _, method := range domain.Methods() {
		outcomes := t.OutcomesByMethod(method, days)
		if len(outcomes) == 0 {
			continue
		}
		confidence := 0.0
		for _, o := range outcomes {
			confidence += o.Confidence
		}
		summary.Methods[method] = MethodSummary{
			Count:          len(outcomes),
			SuccessRate:    t.SuccessRate(method, days),
			AvgExecutionMs: t.AverageExecutionMs(method, days),
			AvgConfidence:  confidence / float64(len(outcomes)),
		}
	}

	return summary
}

// ---- export / import ----

type exportedOutcome struct {
	OutcomeID      string  `json:"outcome_id"`
	QueryID        string  `json:"query_id"`
	QueryText      string  `json:"query_text"`
	Method         string  `json:"method"`
	Success        bool    `json:"success"`
	CompositeScore float64 `json:"composite_score"`
	ExecutionMs    float64 `json:"execution_time_ms"`
	CreatedAt      string  `json:"created_at"`
}

type exportEnvelope struct {
	ExportedAt    string            `json:"exported_at"`
	TotalOutcomes int               `json:"total_outcomes"`
	Outcomes      []exportedOutcome `json:"outcomes"`
}

// Export writes the flat outcome snapshot to w.
func (t *Tracker) Export(w io.Writer) error {
	outcomes := t.state.Outcomes()

	envelope := exportEnvelope{
		ExportedAt:    time.Now().Format(time.RFC3339Nano),
		TotalOutcomes: len(outcomes),
		Outcomes:      make([]exportedOutcome, 0, len(outcomes)),
	}
	for _, o := range outcomes {
		row := exportedOutcome{
			OutcomeID:      o.ID.String(),
			Method:         string(o.Method),
			Success:        o.Success,
			CompositeScore: o.CompositeSuccessScore(),
			ExecutionMs:    o.ExecutionMs,
			CreatedAt:      o.CreatedAt.Format(time.RFC3339Nano),
		}
		if o.Signature != nil {
			row.QueryID = o.Signature.ID.String()
			row.QueryText = o.Signature.Text
		}
		envelope.Outcomes = append(envelope.Outcomes, row)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(envelope)
}

// ExportToFile writes the snapshot to path, creating parent directories.
func (t *Tracker) ExportToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := t.Export(f); err != nil {
		return fmt.Errorf("export outcomes: %w", err)
	}
	t.logger.Info("exported outcomes", zap.String("path", path))
	return nil
}

// Import reads an export snapshot from r and appends the restored outcomes
// to the log. Re-exporting reproduces identical counts and composite
// scores. Returns the number of imported outcomes.
func (t *Tracker) Import(r io.Reader) (int, error) {
	var envelope exportEnvelope
	if err := json.NewDecoder(r).Decode(&envelope); err != nil {
		return 0, fmt.Errorf("decode outcome snapshot: %w", err)
	}

	imported := 0
	for _, row := range envelope.Outcomes {
		method, err := domain.ParseRetrievalMethod(row.Method)
		if err != nil {
			return imported, err
		}
		id, err := uuid.Parse(row.OutcomeID)
		if err != nil {
			return imported, fmt.Errorf("parse outcome_id %q: %w", row.OutcomeID, err)
		}
		createdAt, err := time.Parse(time.RFC3339Nano, row.CreatedAt)
		if err != nil {
			return imported, fmt.Errorf("parse created_at %q: %w", row.CreatedAt, err)
		}

		var sig *domain.QuerySignature
		if row.QueryID != "" {
			queryID, err := uuid.Parse(row.QueryID)
			if err != nil {
				return imported, fmt.Errorf("parse query_id %q: %w", row.QueryID, err)
			}
			sig = &domain.QuerySignature{ID: queryID, Text: row.QueryText, CreatedAt: createdAt}
		}

		outcome := domain.RestoreOutcome(id, sig, method, row.Success, row.CompositeScore, row.ExecutionMs, createdAt)
		if err := t.state.AppendOutcome(outcome); err != nil {
			return imported, err
		}
		imported++
	}

	t.logger.Info("imported outcomes", zap.Int("count", imported))
	return imported, nil
}

// LoadFromFile imports a snapshot previously written by ExportToFile.
// A missing file is not an error; there is simply nothing to load.
func (t *Tracker) LoadFromFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("open outcome snapshot: %w", err)
	}
	defer func() { _ = f.Close() }()
	return t.Import(f)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/adaptiverag/metagraph/internal/domain"
	"github.com/adaptiverag/metagraph/internal/metagraph"
	"go.uber.org/zap"
)

var ErrEmptyQuery = errors.New("query text is empty")
var ErrNoExecutor = errors.New("no executor registered for method")

// Heuristic quality scores fed into outcome recording. Real reasoning
// validation and embedding-coherence scoring are external concerns; these
// stand in for them the way the swappable executors stand in for real
// retrieval.
const (
	reasonedValidity   = 0.8
	unreasonedValidity = 0.4
	coherentEmbedding  = 0.75
	missingEmbedding   = 0.5
)

// Orchestrator drives the full adaptive loop for each query: route,
// execute, record the outcome, reweight the path, mine the reasoning
// trace, and feed the observation back into routing.
type Orchestrator struct {
	state      *metagraph.State
	tracker    *Tracker
	reweighter *Reweighter
	discovery  *Discovery
	router     *Router
	embedder   domain.EmbeddingClient
	executors  map[domain.RetrievalMethod]domain.Executor
	logger     *zap.Logger
}

func NewOrchestrator(
	state *metagraph.State,
	tracker *Tracker,
	reweighter *Reweighter,
	discovery *Discovery,
	router *Router,
	embedder domain.EmbeddingClient,
	executors []domain.Executor,
	logger *zap.Logger,
) *Orchestrator {
	byMethod := make(map[domain.RetrievalMethod]domain.Executor, len(executors))
	for _, ex := range executors {
		byMethod[ex.Method()] = ex
	}
	return &Orchestrator{
		state:      state,
		tracker:    tracker,
		reweighter: reweighter,
		discovery:  discovery,
		router:     router,
		embedder:   embedder,
		executors:  byMethod,
		logger:     logger,
	}
}

// QueryResult is the orchestrator's answer to one query, with the adaptive
// metadata a caller needs to understand the decision.
type QueryResult struct {
	Query      string   `json:"query"`
	Answer     string   `json:"answer"`
	Nodes      []string `json:"source_nodes"`
	Reasoning  []string `json:"reasoning_chain,omitempty"`
	Confidence float64  `json:"confidence_score"`

	Method       domain.RetrievalMethod             `json:"retrieval_method"`
	Weights      map[domain.RetrievalMethod]float64 `json:"ensemble_weights"`
	MethodsTried []string                           `json:"methods_tried"`
	ExecutionMs  float64                            `json:"execution_time_ms"`
}

// ProcessQuery runs one query end to end and updates every learning
// component from its outcome.
func (o *Orchestrator) ProcessQuery(ctx context.Context, queryText string) (*QueryResult, error) {
	if queryText == "" {
		return nil, ErrEmptyQuery
	}
	start := time.Now()

	sig, err := o.createSignature(ctx, queryText)
	if err != nil {
		return nil, err
	}

	method, weights := o.router.Route(sig)

	result, tried, err := o.execute(ctx, sig, method, weights)
	if err != nil {
		return nil, fmt.Errorf("execute %s retrieval: %w", method, err)
	}

	executionMs := float64(time.Since(start).Microseconds()) / 1000.0

	outcome, err := o.recordOutcome(sig, method, result, executionMs)
	if err != nil {
		return nil, err
	}

	o.learn(ctx, sig, method, outcome, result, executionMs)

	o.logger.Info("processed query",
		zap.String("query_id", sig.ID.String()),
		zap.String("method", string(method)),
		zap.Float64("confidence", result.Confidence),
		zap.Float64("execution_ms", executionMs))

	return &QueryResult{
		Query:        queryText,
		Answer:       result.Answer,
		Nodes:        result.Nodes,
		Reasoning:    result.Reasoning,
		Confidence:   result.Confidence,
		Method:       method,
		Weights:      weights,
		MethodsTried: tried,
		ExecutionMs:  executionMs,
	}, nil
}

func (o *Orchestrator) createSignature(ctx context.Context, queryText string) (*domain.QuerySignature, error) {
	var embedding []float32
	if o.embedder != nil {
		var err error
		embedding, err = o.embedder.Embed(ctx, queryText)
		if err != nil {
			// Routing works without an embedding; only coherence
			// scoring degrades.
			o.logger.Warn("embedding failed", zap.Error(err))
			embedding = nil
		}
	}

	sig := domain.NewQuerySignature(queryText, embedding, o.router.Classify(queryText))
	o.state.AddSignature(sig)
	return sig, nil
}

// execute runs the chosen method, or for hybrid runs the vector and graph
// executors and blends their confidences by the ensemble weights.
func (o *Orchestrator) execute(ctx context.Context, sig *domain.QuerySignature, method domain.RetrievalMethod, weights map[domain.RetrievalMethod]float64) (*domain.RetrievalResult, []string, error) {
	if method != domain.MethodHybrid {
		ex, ok := o.executors[method]
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrNoExecutor, method)
		}
		result, err := ex.Execute(ctx, sig)
		if err != nil {
			return nil, nil, err
		}
		return result, []string{string(method)}, nil
	}

	var (
		blended    domain.RetrievalResult
		tried      []string
		confidence float64
	)
	for _, m := range []domain.RetrievalMethod{domain.MethodVectorSearch, domain.MethodGraphTraversal} {
		ex, ok := o.executors[m]
		if !ok {
			continue
		}
		result, err := ex.Execute(ctx, sig)
		if err != nil {
			o.logger.Warn("ensemble member failed",
				zap.String("method", string(m)),
				zap.Error(err))
			continue
		}
		tried = append(tried, string(m))

		weight := weights[m]
		if weight == 0 {
			weight = 0.33
		}
		confidence += result.Confidence * weight

		if blended.Answer == "" {
			blended.Answer = result.Answer
		}
		blended.Nodes = append(blended.Nodes, result.Nodes...)
		blended.Edges = append(blended.Edges, result.Edges...)
		blended.Reasoning = append(blended.Reasoning, result.Reasoning...)
	}
	if len(tried) == 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoExecutor, method)
	}

	blended.Confidence = confidence
	return &blended, tried, nil
}

func (o *Orchestrator) recordOutcome(sig *domain.QuerySignature, method domain.RetrievalMethod, result *domain.RetrievalResult, executionMs float64) (*domain.RetrievalOutcome, error) {
	validity := unreasonedValidity
	if len(result.Reasoning) > 0 {
		validity = reasonedValidity
	}
	coherence := missingEmbedding
	if len(sig.Embedding) > 0 {
		coherence = coherentEmbedding
	}

	return o.tracker.Record(RecordParams{
		Signature:          sig,
		Method:             method,
		Success:            result.Confidence > 0.5,
		Confidence:         result.Confidence,
		ReasoningValidity:  validity,
		EmbeddingCoherence: coherence,
		Nodes:              result.Nodes,
		Edges:              result.Edges,
		ExecutionMs:        executionMs,
	})
}

func (o *Orchestrator) learn(ctx context.Context, sig *domain.QuerySignature, method domain.RetrievalMethod, outcome *domain.RetrievalOutcome, result *domain.RetrievalResult, executionMs float64) {
	if len(result.Edges) > 0 {
		o.reweighter.Reinforce(ctx, outcome, result.Nodes, result.Edges)
	}

	success := outcome.CompositeSuccessScore() > 0.5
	if success && len(result.Reasoning) > 0 {
		o.discovery.Discover(outcome, result.Reasoning)
	}

	if err := o.router.Update(method, sig.QueryType, success, executionMs); err != nil {
		o.logger.Warn("routing update failed", zap.Error(err))
	}
}

// SystemStatus is the aggregate view served by the status endpoint. Pure
// read, no side effects.
type SystemStatus struct {
	Timestamp     time.Time                   `json:"timestamp"`
	MetaGraph     metagraph.Snapshot          `json:"meta_graph"`
	Performance   PerformanceSummary          `json:"performance"`
	Reweighting   ReweightStats               `json:"reweighting"`
	Relationships metagraph.RelationshipStats `json:"relationships"`
	Routing       RouterStats                 `json:"routing"`
}

func (o *Orchestrator) Status() SystemStatus {
	return SystemStatus{
		Timestamp:     time.Now(),
		MetaGraph:     o.state.Snapshot(),
		Performance:   o.tracker.PerformanceSummary(DefaultWindowDays),
		Reweighting:   o.reweighter.Stats(),
		Relationships: o.discovery.Stats(),
		Routing:       o.router.Stats(),
	}
}

// SaveState exports the outcome log to path.
func (o *Orchestrator) SaveState(path string) error {
	return o.tracker.ExportToFile(path)
}

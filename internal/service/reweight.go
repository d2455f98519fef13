package service

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/adaptiverag/metagraph/internal/domain"
	"github.com/adaptiverag/metagraph/internal/metagraph"
	"go.uber.org/zap"
)

const (
	DefaultPositiveWeightDelta = 0.15
	DefaultNegativeWeightDelta = -0.10
	DefaultInitialEdgeWeight   = 1.0

	// Success threshold on the composite score: above it a path is
	// strengthened, at or below it the path is weakened.
	reinforceThreshold = 0.5

	hopBonusFactor = 0.05
)

// Reweighter adjusts learned edge weights along the path that answered a
// query. Successful paths are strengthened proportionally to the outcome's
// composite score plus a multi-hop bonus; failed paths are weakened by a
// fixed delta. Weights never leave [0.1, 10.0] and edges are never removed.
type Reweighter struct {
	state       *metagraph.State
	persistence domain.GraphPersistence
	logger      *zap.Logger

	PositiveDelta float64
	NegativeDelta float64
	InitialWeight float64

	totalUpdates    atomic.Int64
	positiveUpdates atomic.Int64
	negativeUpdates atomic.Int64
}

// NewReweighter creates the engine. persistence may be nil; weight updates
// are then kept in memory only.
func NewReweighter(state *metagraph.State, persistence domain.GraphPersistence, logger *zap.Logger) *Reweighter {
	return &Reweighter{
		state:         state,
		persistence:   persistence,
		logger:        logger,
		PositiveDelta: DefaultPositiveWeightDelta,
		NegativeDelta: DefaultNegativeWeightDelta,
		InitialWeight: DefaultInitialEdgeWeight,
	}
}

// Reinforce updates every edge on the path according to the outcome.
// pathNodes is accepted for symmetry with the retrieval result but only
// the edges drive weight updates.
func (r *Reweighter) Reinforce(ctx context.Context, outcome *domain.RetrievalOutcome, pathNodes []string, pathEdges []domain.EdgeKey) {
	if len(pathEdges) == 0 {
		return
	}

	score := outcome.CompositeSuccessScore()
	if score > reinforceThreshold {
		r.strengthenPath(ctx, pathEdges, score)
	} else {
		r.weakenPath(ctx, pathEdges)
	}
}

// hopBonus rewards longer successful paths: log10(hops+1) * 0.05.
func hopBonus(hopCount int) float64 {
	return math.Log10(float64(hopCount)+1) * hopBonusFactor
}

func (r *Reweighter) strengthenPath(ctx context.Context, pathEdges []domain.EdgeKey, score float64) {
	bonus := hopBonus(len(pathEdges))
	delta := r.PositiveDelta*score + bonus

	for _, key := range pathEdges {
		edge := r.state.ReinforceEdge(key, delta, r.InitialWeight, true)
		r.totalUpdates.Add(1)
		r.positiveUpdates.Add(1)
		r.push(ctx, edge)

		r.logger.Debug("strengthened edge",
			zap.String("edge", key.String()),
			zap.Float64("delta", delta),
			zap.Float64("weight", edge.Weight))
	}
}

func (r *Reweighter) weakenPath(ctx context.Context, pathEdges []domain.EdgeKey) {
	for _, key := range pathEdges {
		edge := r.state.ReinforceEdge(key, r.NegativeDelta, r.InitialWeight, false)
		r.totalUpdates.Add(1)
		r.negativeUpdates.Add(1)
		r.push(ctx, edge)

		r.logger.Debug("weakened edge",
			zap.String("edge", key.String()),
			zap.Float64("delta", r.NegativeDelta),
			zap.Float64("weight", edge.Weight))
	}
}

// push propagates the updated weight to the durable graph, best effort.
func (r *Reweighter) push(ctx context.Context, edge domain.GraphEdgeWeight) {
	if r.persistence == nil {
		return
	}
	if err := r.persistence.UpsertEdgeWeight(ctx, &edge); err != nil {
		r.logger.Warn("failed to persist edge weight",
			zap.String("edge", edge.Key.String()),
			zap.Error(err))
	}
}

// TopEdges returns the highest-weighted edges for inspection.
func (r *Reweighter) TopEdges(limit int) []domain.GraphEdgeWeight {
	return r.state.TopEdges(limit)
}

// ReweightStats summarizes engine activity.
type ReweightStats struct {
	TotalUpdates      int64   `json:"total_updates"`
	PositiveUpdates   int64   `json:"positive_updates"`
	NegativeUpdates   int64   `json:"negative_updates"`
	PositiveRatio     float64 `json:"positive_ratio"`
	TrackedEdges      int     `json:"tracked_edges"`
	AverageEdgeWeight float64 `json:"average_edge_weight"`
}

func (r *Reweighter) Stats() ReweightStats {
	total := r.totalUpdates.Load()
	positive := r.positiveUpdates.Load()

	stats := ReweightStats{
		TotalUpdates:      total,
		PositiveUpdates:   positive,
		NegativeUpdates:   r.negativeUpdates.Load(),
		TrackedEdges:      r.state.EdgeCount(),
		AverageEdgeWeight: r.state.AverageEdgeWeight(),
	}
	if total > 0 {
		stats.PositiveRatio = float64(positive) / float64(total)
	}
	return stats
}

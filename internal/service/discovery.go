package service

import (
	"context"
	"errors"

	"github.com/adaptiverag/metagraph/internal/domain"
	"github.com/adaptiverag/metagraph/internal/metagraph"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// Minimum composite score an outcome needs before its reasoning
	// trace is mined at all.
	discoveryScoreFloor = 0.6

	// Base confidence of a freshly extracted candidate, before scaling
	// by the outcome's composite score.
	baseCandidateConfidence = 0.7

	DefaultRelationThreshold = 0.7

	// Default floor for the high-confidence relationship view.
	DefaultHighConfidenceThreshold = 0.8

	// Scaled candidate confidences accumulate floating-point error (the
	// composite score sums four weighted terms), so the threshold cut
	// tolerates values within epsilon of the line.
	thresholdEpsilon = 1e-9
)

// Discovery mines candidate entity relationships out of the reasoning
// traces of successful retrievals and manages their approval lifecycle.
type Discovery struct {
	state       *metagraph.State
	extractor   domain.EntityExtractor
	matcher     domain.RelationMatcher
	persistence domain.GraphPersistence
	logger      *zap.Logger

	// Threshold below which scored candidates are dropped.
	Threshold float64
}

// NewDiscovery creates the miner. persistence may be nil; approved and
// activated relationships are then kept in memory only.
func NewDiscovery(state *metagraph.State, extractor domain.EntityExtractor, matcher domain.RelationMatcher, persistence domain.GraphPersistence, logger *zap.Logger) *Discovery {
	return &Discovery{
		state:       state,
		extractor:   extractor,
		matcher:     matcher,
		persistence: persistence,
		logger:      logger,
		Threshold:   DefaultRelationThreshold,
	}
}

type candidate struct {
	source, target, relation string
	confidence               float64
	snippet                  string
}

// Discover extracts candidate relationships from the reasoning chain of a
// sufficiently successful outcome, scores them against the outcome's
// composite score, and merges survivors into the relationship table.
// Returns the merged relationships (one per surviving candidate).
func (d *Discovery) Discover(outcome *domain.RetrievalOutcome, reasoningChain []string) []domain.LatentRelationship {
	score := outcome.CompositeSuccessScore()
	if score < discoveryScoreFloor {
		return nil
	}

	var candidates []candidate
	for _, step := range reasoningChain {
		candidates = append(candidates, d.extractFromStep(step)...)
	}

	var merged []domain.LatentRelationship
	for _, c := range candidates {
		// Scale base confidence by how well the retrieval actually went.
		c.confidence *= score
		if c.confidence < d.Threshold-thresholdEpsilon {
			continue
		}

		rel, existed := d.state.MergeRelationship(c.source, c.target, c.relation, c.confidence, c.snippet)
		merged = append(merged, rel)

		if existed {
			d.logger.Debug("updated relationship",
				zap.String("source", rel.Source),
				zap.String("relation", rel.Relation),
				zap.String("target", rel.Target),
				zap.Float64("confidence", rel.Confidence),
				zap.Int("observations", rel.Observations))
		} else {
			d.logger.Info("discovered relationship",
				zap.String("source", rel.Source),
				zap.String("relation", rel.Relation),
				zap.String("target", rel.Target),
				zap.Float64("confidence", rel.Confidence))
		}
	}

	return merged
}

// extractFromStep emits one candidate per matched relation pattern and
// unordered entity pair; the earlier entity in the text becomes the source.
func (d *Discovery) extractFromStep(step string) []candidate {
	entities := d.extractor.Entities(step)
	if len(entities) < 2 {
		return nil
	}

	relations := d.matcher.Match(step)
	if len(relations) == 0 {
		return nil
	}

	var out []candidate
	for _, relation := range relations {
		for i, source := range entities {
			for _, target := range entities[i+1:] {
				out = append(out, candidate{
					source:     source,
					target:     target,
					relation:   relation,
					confidence: baseCandidateConfidence,
					snippet:    step,
				})
			}
		}
	}
	return out
}

// Approve moves the given pending relationships to approved. Unknown ids
// are silently skipped. Returns the number approved.
func (d *Discovery) Approve(ctx context.Context, ids []uuid.UUID) int {
	approved := 0
	for _, id := range ids {
		rel, err := d.state.TransitionRelationship(id, domain.RelationApproved)
		if err != nil {
			if !errors.Is(err, metagraph.ErrRelationshipNotFound) {
				d.logger.Warn("cannot approve relationship",
					zap.String("relation_id", id.String()),
					zap.Error(err))
			}
			continue
		}
		approved++
		d.persist(ctx, rel)
	}

	d.logger.Info("approved relationships", zap.Int("count", approved))
	return approved
}

// Reject moves the given pending relationships to the terminal rejected
// state. Unknown ids are silently skipped.
func (d *Discovery) Reject(ids []uuid.UUID) int {
	rejected := 0
	for _, id := range ids {
		if _, err := d.state.TransitionRelationship(id, domain.RelationRejected); err == nil {
			rejected++
		}
	}
	return rejected
}

// Pending returns all relationships awaiting approval.
func (d *Discovery) Pending() []domain.LatentRelationship {
	return d.state.RelationshipsWhere(func(r *domain.LatentRelationship) bool {
		return r.Status == domain.RelationPending
	})
}

// HighConfidence returns relationships at or above threshold regardless of
// status.
func (d *Discovery) HighConfidence(threshold float64) []domain.LatentRelationship {
	return d.state.RelationshipsWhere(func(r *domain.LatentRelationship) bool {
		return r.Confidence >= threshold
	})
}

// AutoActivate moves every pending relationship at or above threshold
// straight to active. Idempotent: a second call activates zero.
func (d *Discovery) AutoActivate(ctx context.Context, threshold float64) int {
	if threshold <= 0 {
		threshold = d.Threshold
	}

	activated := d.state.ActivatePending(threshold)
	for _, rel := range activated {
		d.persist(ctx, rel)
	}

	if len(activated) > 0 {
		d.logger.Info("auto-activated relationships",
			zap.Int("count", len(activated)),
			zap.Float64("threshold", threshold))
	}
	return len(activated)
}

// persist hands an eligible relationship to the durable graph, best effort.
func (d *Discovery) persist(ctx context.Context, rel domain.LatentRelationship) {
	if d.persistence == nil {
		return
	}
	if err := d.persistence.SaveRelationship(ctx, &rel); err != nil {
		d.logger.Warn("failed to persist relationship",
			zap.String("relation_id", rel.ID.String()),
			zap.Error(err))
	}
}

// Stats returns counts by status and the mean confidence across all
// tracked relationships.
func (d *Discovery) Stats() metagraph.RelationshipStats {
	return d.state.RelationshipStats()
}

// Package metagraph holds the shared learning state: query signatures,
// outcome log, edge weights, method effectiveness and discovered
// relationships. All four learning components operate only through the
// methods here; a single RWMutex makes the aggregate safe under concurrent
// callers.
package metagraph

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/adaptiverag/metagraph/internal/domain"
	"github.com/google/uuid"
)

var ErrRelationshipNotFound = errors.New("relationship not found")

type State struct {
	mu sync.RWMutex

	signatures    map[uuid.UUID]*domain.QuerySignature
	outcomes      []*domain.RetrievalOutcome
	edges         map[domain.EdgeKey]*domain.GraphEdgeWeight
	effectiveness map[domain.MethodKey]*domain.MethodEffectiveness
	relations     map[uuid.UUID]*domain.LatentRelationship

	createdAt   time.Time
	lastUpdated time.Time
	version     int
}

func New() *State {
	now := time.Now()
	return &State{
		signatures:    make(map[uuid.UUID]*domain.QuerySignature),
		edges:         make(map[domain.EdgeKey]*domain.GraphEdgeWeight),
		effectiveness: make(map[domain.MethodKey]*domain.MethodEffectiveness),
		relations:     make(map[uuid.UUID]*domain.LatentRelationship),
		createdAt:     now,
		lastUpdated:   now,
		version:       1,
	}
}

// touch must be called with the write lock held.
func (s *State) touch() {
	s.lastUpdated = time.Now()
	s.version++
}

func (s *State) Version() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *State) LastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdated
}

// ---- signatures and outcomes ----

func (s *State) AddSignature(sig *domain.QuerySignature) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signatures[sig.ID] = sig
	s.touch()
}

func (s *State) Signature(id uuid.UUID) (*domain.QuerySignature, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sig, ok := s.signatures[id]
	return sig, ok
}

// AppendOutcome validates and appends one outcome to the append-only log,
// registering its signature.
func (s *State) AppendOutcome(o *domain.RetrievalOutcome) error {
	if err := o.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, o)
	if o.Signature != nil {
		s.signatures[o.Signature.ID] = o.Signature
	}
	s.touch()
	return nil
}

// Outcomes returns a copy of the outcome log.
func (s *State) Outcomes() []*domain.RetrievalOutcome {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.RetrievalOutcome, len(s.outcomes))
	copy(out, s.outcomes)
	return out
}

// OutcomesSince returns outcomes created at or after cutoff, optionally
// filtered by predicate (nil matches everything).
func (s *State) OutcomesSince(cutoff time.Time, match func(*domain.RetrievalOutcome) bool) []*domain.RetrievalOutcome {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.RetrievalOutcome
	for _, o := range s.outcomes {
		if o.CreatedAt.Before(cutoff) {
			continue
		}
		if match != nil && !match(o) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// CountByMethod returns the number of recorded outcomes per retrieval
// method, including methods with zero outcomes.
func (s *State) CountByMethod() map[domain.RetrievalMethod]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[domain.RetrievalMethod]int, len(domain.Methods()))
	for _, m := range domain.Methods() {
		counts[m] = 0
	}
	for _, o := range s.outcomes {
		counts[o.Method]++
	}
	return counts
}

func (s *State) OutcomeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.outcomes)
}

// ---- edge weights ----

// ReinforceEdge fetches or creates the edge for key and applies delta to
// its weight, updating the success/failure counters. Returns a copy of the
// edge after the update.
func (s *State) ReinforceEdge(key domain.EdgeKey, delta, initialWeight float64, success bool) domain.GraphEdgeWeight {
	s.mu.Lock()
	defer s.mu.Unlock()

	edge, ok := s.edges[key]
	if !ok {
		edge = domain.NewGraphEdgeWeight(key, initialWeight)
		s.edges[key] = edge
	}

	edge.ApplyDelta(delta)
	if success {
		edge.Successes++
	} else {
		edge.Failures++
	}
	edge.UsageCount++
	s.touch()

	return *edge
}

func (s *State) Edge(key domain.EdgeKey) (domain.GraphEdgeWeight, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	edge, ok := s.edges[key]
	if !ok {
		return domain.GraphEdgeWeight{}, false
	}
	return *edge, true
}

func (s *State) EdgeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.edges)
}

// AverageEdgeWeight returns the mean current weight across all tracked
// edges, zero when none exist.
func (s *State) AverageEdgeWeight() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.edges) == 0 {
		return 0
	}
	total := 0.0
	for _, e := range s.edges {
		total += e.Weight
	}
	return total / float64(len(s.edges))
}

// TopEdges returns up to limit edges ordered by descending weight.
func (s *State) TopEdges(limit int) []domain.GraphEdgeWeight {
	s.mu.RLock()
	edges := make([]domain.GraphEdgeWeight, 0, len(s.edges))
	for _, e := range s.edges {
		edges = append(edges, *e)
	}
	s.mu.RUnlock()

	sort.Slice(edges, func(i, j int) bool {
		return edges[i].Weight > edges[j].Weight
	})
	if limit > 0 && len(edges) > limit {
		edges = edges[:limit]
	}
	return edges
}

// ---- method effectiveness ----

// UpdateEffectiveness fetches or creates the statistic for key and folds in
// one observation. Returns a copy after the update.
func (s *State) UpdateEffectiveness(key domain.MethodKey, success bool, executionMs float64) domain.MethodEffectiveness {
	s.mu.Lock()
	defer s.mu.Unlock()

	eff, ok := s.effectiveness[key]
	if !ok {
		eff = domain.NewMethodEffectiveness(key.Method, key.QueryType)
		s.effectiveness[key] = eff
	}
	eff.Update(success, executionMs)
	s.touch()

	return *eff
}

func (s *State) Effectiveness(key domain.MethodKey) (domain.MethodEffectiveness, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	eff, ok := s.effectiveness[key]
	if !ok {
		return domain.MethodEffectiveness{}, false
	}
	return *eff, true
}

// EffectivenessTable returns a copy of every tracked statistic.
func (s *State) EffectivenessTable() map[domain.MethodKey]domain.MethodEffectiveness {
	s.mu.RLock()
	defer s.mu.RUnlock()

	table := make(map[domain.MethodKey]domain.MethodEffectiveness, len(s.effectiveness))
	for k, v := range s.effectiveness {
		table[k] = *v
	}
	return table
}

// ---- latent relationships ----

// MergeRelationship inserts a new pending relationship or, when one with
// the same (source, target, relation) identity exists, folds the new
// observation into its running confidence average and support list.
// Returns a copy and whether an existing record was merged into.
func (s *State) MergeRelationship(source, target, relation string, confidence float64, snippet string) (domain.LatentRelationship, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rel := range s.relations {
		if rel.Source == source && rel.Target == target && rel.Relation == relation {
			rel.Observe(confidence, snippet)
			s.touch()
			return *rel, true
		}
	}

	rel := domain.NewLatentRelationship(source, target, relation, confidence, snippet)
	s.relations[rel.ID] = rel
	s.touch()
	return *rel, false
}

// TransitionRelationship moves the relationship to next, enforcing the
// forward-only status machine.
func (s *State) TransitionRelationship(id uuid.UUID, next domain.RelationStatus) (domain.LatentRelationship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rel, ok := s.relations[id]
	if !ok {
		return domain.LatentRelationship{}, ErrRelationshipNotFound
	}
	if err := rel.Transition(next); err != nil {
		return domain.LatentRelationship{}, err
	}
	s.touch()
	return *rel, nil
}

// RelationshipsWhere returns copies of relationships matching the
// predicate (nil matches everything).
func (s *State) RelationshipsWhere(match func(*domain.LatentRelationship) bool) []domain.LatentRelationship {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.LatentRelationship
	for _, rel := range s.relations {
		if match == nil || match(rel) {
			out = append(out, *rel)
		}
	}
	return out
}

// ActivatePending moves every pending relationship at or above threshold to
// active. Returns copies of the activated relationships; calling it twice
// with the same threshold activates nothing the second time.
func (s *State) ActivatePending(threshold float64) []domain.LatentRelationship {
	s.mu.Lock()
	defer s.mu.Unlock()

	var activated []domain.LatentRelationship
	for _, rel := range s.relations {
		if rel.Status != domain.RelationPending || rel.Confidence < threshold {
			continue
		}
		if err := rel.Transition(domain.RelationActive); err != nil {
			continue
		}
		activated = append(activated, *rel)
	}
	if len(activated) > 0 {
		s.touch()
	}
	return activated
}

// RelationshipStats counts relationships by status and averages confidence
// across all of them.
func (s *State) RelationshipStats() RelationshipStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := RelationshipStats{ByStatus: make(map[domain.RelationStatus]int)}
	total := 0.0
	for _, rel := range s.relations {
		stats.Total++
		stats.ByStatus[rel.Status]++
		total += rel.Confidence
	}
	if stats.Total > 0 {
		stats.AverageConfidence = total / float64(stats.Total)
	}
	return stats
}

type RelationshipStats struct {
	Total             int                           `json:"total_discovered"`
	ByStatus          map[domain.RelationStatus]int `json:"by_status"`
	AverageConfidence float64                       `json:"average_confidence"`
}

// Snapshot is a point-in-time summary of the aggregate, suitable for a
// status endpoint.
type Snapshot struct {
	QueryOutcomes   int       `json:"query_outcomes"`
	QuerySignatures int       `json:"query_signatures"`
	EdgeWeights     int       `json:"edge_weights"`
	LatentRelations int       `json:"latent_relations"`
	Version         int       `json:"version"`
	LastUpdated     time.Time `json:"last_updated"`
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		QueryOutcomes:   len(s.outcomes),
		QuerySignatures: len(s.signatures),
		EdgeWeights:     len(s.edges),
		LatentRelations: len(s.relations),
		Version:         s.version,
		LastUpdated:     s.lastUpdated,
	}
}

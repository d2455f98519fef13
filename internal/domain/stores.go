package domain

import "context"

type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EntityExtractor pulls candidate entity mentions out of free text. The
// default implementation is a capitalization heuristic; a real NER component
// can be substituted without touching discovery logic.
type EntityExtractor interface {
	Entities(text string) []string
}

// RelationMatcher reports which relation types a piece of text expresses.
type RelationMatcher interface {
	Match(text string) []string
}

// RetrievalResult is what an executor returns for one query.
type RetrievalResult struct {
	Answer     string
	Nodes      []string
	Edges      []EdgeKey
	Confidence float64
	Reasoning  []string
}

// Executor runs one concrete retrieval strategy. Implementations are
// swappable black boxes; the core only consumes their results.
type Executor interface {
	Method() RetrievalMethod
	Execute(ctx context.Context, sig *QuerySignature) (*RetrievalResult, error)
}

// NodeHit is a scored node returned by the backing graph store.
type NodeHit struct {
	ID    string
	Label string
	Score float64
}

// GraphPersistence consumes the records the learning core produces: learned
// edge weights and approved/active relationships. The core never reads from
// it and tolerates its failure.
type GraphPersistence interface {
	UpsertEdgeWeight(ctx context.Context, e *GraphEdgeWeight) error
	SaveRelationship(ctx context.Context, r *LatentRelationship) error
}

// NodeStore backs the concrete retrieval executors.
type NodeStore interface {
	SearchNodes(ctx context.Context, embedding []float32, limit int) ([]NodeHit, error)
	FilterNodes(ctx context.Context, terms []string, limit int) ([]NodeHit, error)
	NeighborEdges(ctx context.Context, nodeID string) ([]GraphEdgeWeight, error)
}

package retrieval

import (
	"context"
	"fmt"

	"github.com/adaptiverag/metagraph/internal/domain"
)

const defaultTopK = 10

// VectorExecutor answers queries by nearest-neighbor search over node
// embeddings.
type VectorExecutor struct {
	nodes domain.NodeStore
	TopK  int
}

func NewVectorExecutor(nodes domain.NodeStore) *VectorExecutor {
	return &VectorExecutor{nodes: nodes, TopK: defaultTopK}
}

func (e *VectorExecutor) Method() domain.RetrievalMethod {
	return domain.MethodVectorSearch
}

func (e *VectorExecutor) Execute(ctx context.Context, sig *domain.QuerySignature) (*domain.RetrievalResult, error) {
	if len(sig.Embedding) == 0 {
		return &domain.RetrievalResult{
			Answer:     "no results: query has no embedding",
			Confidence: 0,
		}, nil
	}

	hits, err := e.nodes.SearchNodes(ctx, sig.Embedding, e.TopK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	if len(hits) == 0 {
		return &domain.RetrievalResult{
			Answer:     "no results found",
			Confidence: 0,
		}, nil
	}

	result := &domain.RetrievalResult{
		Answer: fmt.Sprintf("found %d semantically similar nodes, closest: %s", len(hits), hits[0].Label),
	}
	total := 0.0
	for _, h := range hits {
		result.Nodes = append(result.Nodes, h.ID)
		total += h.Score
		result.Reasoning = append(result.Reasoning,
			fmt.Sprintf("matched %s with similarity %.3f", h.Label, h.Score))
	}
	result.Confidence = total / float64(len(hits))
	return result, nil
}

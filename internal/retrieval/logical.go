package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/adaptiverag/metagraph/internal/domain"
)

const minFilterTermLength = 3

// LogicalExecutor answers queries by attribute filtering: query terms become
// label filters against the node store.
type LogicalExecutor struct {
	nodes domain.NodeStore
	Limit int
}

func NewLogicalExecutor(nodes domain.NodeStore) *LogicalExecutor {
	return &LogicalExecutor{nodes: nodes, Limit: defaultTopK}
}

func (e *LogicalExecutor) Method() domain.RetrievalMethod {
	return domain.MethodLogicalFiltering
}

func (e *LogicalExecutor) Execute(ctx context.Context, sig *domain.QuerySignature) (*domain.RetrievalResult, error) {
	terms := filterTerms(sig.Text)
	if len(terms) == 0 {
		return &domain.RetrievalResult{
			Answer:     "no filterable terms in query",
			Confidence: 0,
		}, nil
	}

	hits, err := e.nodes.FilterNodes(ctx, terms, e.Limit)
	if err != nil {
		return nil, fmt.Errorf("logical filter: %w", err)
	}
	if len(hits) == 0 {
		return &domain.RetrievalResult{
			Answer:     "no nodes matched the filter",
			Confidence: 0,
		}, nil
	}

	result := &domain.RetrievalResult{
		Answer: fmt.Sprintf("filter matched %d nodes", len(hits)),
		Reasoning: []string{
			fmt.Sprintf("filtered nodes by terms: %s", strings.Join(terms, ", ")),
		},
	}
	for _, h := range hits {
		result.Nodes = append(result.Nodes, h.ID)
	}

	// Filtering is exact; confidence reflects how much of the limit the
	// match filled.
	result.Confidence = 0.5 + 0.5*float64(len(hits))/float64(e.Limit)
	if result.Confidence > 1 {
		result.Confidence = 1
	}
	return result, nil
}

// filterTerms keeps words long enough to discriminate, lowercased.
func filterTerms(text string) []string {
	var terms []string
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ",.!?;:\"'")
		if len(word) >= minFilterTermLength {
			terms = append(terms, word)
		}
	}
	return terms
}

package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type RetrievalMethod string

const (
	MethodVectorSearch     RetrievalMethod = "vector_search"
	MethodGraphTraversal   RetrievalMethod = "graph_traversal"
	MethodLogicalFiltering RetrievalMethod = "logical_filtering"
	MethodHybrid           RetrievalMethod = "hybrid"
)

// Methods returns all retrieval methods in their canonical enumeration
// order. Tie-breaking during routing relies on this order being stable.
func Methods() []RetrievalMethod {
	return []RetrievalMethod{
		MethodVectorSearch,
		MethodGraphTraversal,
		MethodLogicalFiltering,
		MethodHybrid,
	}
}

// BaseMethods returns the three concrete retrieval methods, excluding the
// hybrid ensemble.
func BaseMethods() []RetrievalMethod {
	return []RetrievalMethod{
		MethodVectorSearch,
		MethodGraphTraversal,
		MethodLogicalFiltering,
	}
}

func (m RetrievalMethod) Valid() bool {
	switch m {
	case MethodVectorSearch, MethodGraphTraversal, MethodLogicalFiltering, MethodHybrid:
		return true
	}
	return false
}

func ParseRetrievalMethod(s string) (RetrievalMethod, error) {
	m := RetrievalMethod(s)
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
	}
	return m, nil
}

type QueryType string

const (
	QuerySemantic   QueryType = "semantic"
	QueryStructured QueryType = "structured"
	QueryMultiHop   QueryType = "multi_hop"
	QueryConstraint QueryType = "constraint"
	QueryHybrid     QueryType = "hybrid"
)

// QueryTypes returns all query types in canonical enumeration order.
// Classification ties resolve to the earliest type in this slice.
func QueryTypes() []QueryType {
	return []QueryType{
		QuerySemantic,
		QueryStructured,
		QueryMultiHop,
		QueryConstraint,
		QueryHybrid,
	}
}

func (t QueryType) Valid() bool {
	switch t {
	case QuerySemantic, QueryStructured, QueryMultiHop, QueryConstraint, QueryHybrid:
		return true
	}
	return false
}

func ParseQueryType(s string) (QueryType, error) {
	t := QueryType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownQueryType, s)
	}
	return t, nil
}

// QuerySignature is the immutable identity of one incoming query. It is
// created once by the orchestrator and owned by the learning state.
type QuerySignature struct {
	ID        uuid.UUID `json:"query_id"`
	Text      string    `json:"query_text"`
	Embedding []float32 `json:"embedding,omitempty"`
	QueryType QueryType `json:"query_type"`
	CreatedAt time.Time `json:"created_at"`
}

func NewQuerySignature(text string, embedding []float32, queryType QueryType) *QuerySignature {
	return &QuerySignature{
		ID:        uuid.New(),
		Text:      text,
		Embedding: embedding,
		QueryType: queryType,
		CreatedAt: time.Now(),
	}
}

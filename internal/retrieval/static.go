package retrieval

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/adaptiverag/metagraph/internal/domain"
)

// StaticGraph is an in-memory NodeStore for runs without a database. Nodes
// and edges are seeded up front; learned weights still flow through
// NeighborEdges when updated via SetEdgeWeight.
type StaticGraph struct {
	mu    sync.RWMutex
	nodes map[string]staticNode
	edges map[domain.EdgeKey]domain.GraphEdgeWeight
}

type staticNode struct {
	id        string
	label     string
	embedding []float32
}

func NewStaticGraph() *StaticGraph {
	return &StaticGraph{
		nodes: make(map[string]staticNode),
		edges: make(map[domain.EdgeKey]domain.GraphEdgeWeight),
	}
}

func (g *StaticGraph) AddNode(id, label string, embedding []float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes[id] = staticNode{id: id, label: label, embedding: embedding}
}

func (g *StaticGraph) AddEdge(source, target, relation string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := domain.EdgeKey{Source: source, Target: target, Relation: relation}
	if _, ok := g.edges[key]; !ok {
		g.edges[key] = *domain.NewGraphEdgeWeight(key, 1.0)
	}
}

// SetEdgeWeight mirrors a learned weight into the static graph so traversal
// sees reinforcement without a database.
func (g *StaticGraph) SetEdgeWeight(e domain.GraphEdgeWeight) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.edges[e.Key] = e
}

func (g *StaticGraph) SearchNodes(_ context.Context, embedding []float32, limit int) ([]domain.NodeHit, error) {
	if limit <= 0 {
		limit = defaultTopK
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	var hits []domain.NodeHit
	for _, n := range g.nodes {
		if len(n.embedding) == 0 {
			continue
		}
		hits = append(hits, domain.NodeHit{
			ID:    n.id,
			Label: n.label,
			Score: cosineSimilarity(embedding, n.embedding),
		})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (g *StaticGraph) FilterNodes(_ context.Context, terms []string, limit int) ([]domain.NodeHit, error) {
	if limit <= 0 {
		limit = defaultTopK
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	var hits []domain.NodeHit
	for _, n := range g.nodes {
		label := strings.ToLower(n.label)
		for _, term := range terms {
			if strings.Contains(label, strings.ToLower(term)) {
				hits = append(hits, domain.NodeHit{ID: n.id, Label: n.label, Score: 1.0})
				break
			}
		}
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Label < hits[j].Label })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (g *StaticGraph) NeighborEdges(_ context.Context, nodeID string) ([]domain.GraphEdgeWeight, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var edges []domain.GraphEdgeWeight
	for key, e := range g.edges {
		if key.Source == nodeID || key.Target == nodeID {
			edges = append(edges, e)
		}
	}

	sort.Slice(edges, func(i, j int) bool { return edges[i].Weight > edges[j].Weight })
	return edges, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

package retrieval

import (
	"context"
	"strings"
	"testing"

	"github.com/adaptiverag/metagraph/internal/domain"
)

// fixedExtractor returns a canned entity list.
type fixedExtractor struct {
	entities []string
}

func (f *fixedExtractor) Entities(string) []string { return f.entities }

func multiHopSig(text string) *domain.QuerySignature {
	return domain.NewQuerySignature(text, nil, domain.QueryMultiHop)
}

func TestVectorExecutor(t *testing.T) {
	g := NewStaticGraph()
	g.AddNode("a", "Alpha", []float32{1, 0})
	g.AddNode("b", "Beta", []float32{0, 1})

	e := NewVectorExecutor(g)
	if e.Method() != domain.MethodVectorSearch {
		t.Fatalf("method = %s", e.Method())
	}

	sig := domain.NewQuerySignature("find alpha", []float32{1, 0}, domain.QuerySemantic)
	result, err := e.Execute(context.Background(), sig)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Nodes[0] != "a" {
		t.Errorf("closest node = %s, want a", result.Nodes[0])
	}
	// Mean of similarities 1.0 and 0.0.
	if diff := result.Confidence - 0.5; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("confidence = %v, want 0.5", result.Confidence)
	}
	if !strings.Contains(result.Answer, "Alpha") {
		t.Errorf("answer should name the closest node: %q", result.Answer)
	}
	if len(result.Reasoning) != 2 {
		t.Errorf("reasoning steps = %d, want one per hit", len(result.Reasoning))
	}
}

func TestVectorExecutor_NoEmbedding(t *testing.T) {
	e := NewVectorExecutor(NewStaticGraph())

	result, err := e.Execute(context.Background(), multiHopSig("unembedded"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Confidence != 0 {
		t.Errorf("confidence = %v, want 0 without an embedding", result.Confidence)
	}
}

func TestTraversalExecutor_SpreadsActivation(t *testing.T) {
	g := NewStaticGraph()
	g.AddNode("a", "Alpha", nil)
	g.AddNode("b", "Beta", nil)
	g.AddNode("c", "Gamma", nil)
	g.AddEdge("a", "b", "causes")
	g.AddEdge("b", "c", "causes")

	e := NewTraversalExecutor(g, &fixedExtractor{entities: []string{"Alpha"}})
	if e.Method() != domain.MethodGraphTraversal {
		t.Fatalf("method = %s", e.Method())
	}

	result, err := e.Execute(context.Background(), multiHopSig("how does alpha reach gamma"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Seed score 1.0, neutral weight 1.0: hop 1 activation
	// 1.0 * 0.5 * 0.7 = 0.35, hop 2 0.35 * 0.5 * 0.7 = 0.1225.
	if len(result.Edges) != 2 {
		t.Fatalf("edges = %d, want the full two-hop path: %v", len(result.Edges), result.Reasoning)
	}
	if diff := result.Confidence - 0.35; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("confidence = %v, want best activation 0.35", result.Confidence)
	}
	if result.Nodes[0] != "a" {
		t.Errorf("first node = %s, want the seed", result.Nodes[0])
	}
}

func TestTraversalExecutor_ReinforcedEdgeWins(t *testing.T) {
	g := NewStaticGraph()
	g.AddNode("a", "Alpha", nil)
	g.AddNode("b", "Beta", nil)
	g.AddNode("c", "Gamma", nil)
	g.AddEdge("a", "b", "causes")
	g.AddEdge("a", "c", "causes")
	g.SetEdgeWeight(*domain.NewGraphEdgeWeight(domain.EdgeKey{Source: "a", Target: "c", Relation: "causes"}, 9.0))

	e := NewTraversalExecutor(g, &fixedExtractor{entities: []string{"Alpha"}})
	result, err := e.Execute(context.Background(), multiHopSig("where does alpha lead"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Heavy edge: 1.0 * (9/10) * 0.7 = 0.63; neutral edge: 0.35.
	if diff := result.Confidence - 0.63; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("confidence = %v, want 0.63 through the reinforced edge", result.Confidence)
	}
}

func TestTraversalExecutor_WeakEdgePruned(t *testing.T) {
	g := NewStaticGraph()
	g.AddNode("a", "Alpha", nil)
	g.AddNode("b", "Beta", nil)
	g.AddEdge("a", "b", "causes")
	g.SetEdgeWeight(*domain.NewGraphEdgeWeight(domain.EdgeKey{Source: "a", Target: "b", Relation: "causes"}, domain.MinEdgeWeight))

	e := NewTraversalExecutor(g, &fixedExtractor{entities: []string{"Alpha"}})
	result, err := e.Execute(context.Background(), multiHopSig("where does alpha lead"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Floor-weight edge: 1.0 * (0.1/1.1) * 0.7 = 0.064, under the
	// activation cutoff.
	if len(result.Edges) != 0 {
		t.Errorf("edges = %d, want 0 (weakened edge pruned)", len(result.Edges))
	}
	if result.Confidence != 0.3 {
		t.Errorf("confidence = %v, want the edgeless fallback 0.3", result.Confidence)
	}
}

func TestTraversalExecutor_NoSeeds(t *testing.T) {
	e := NewTraversalExecutor(NewStaticGraph(), &fixedExtractor{})

	result, err := e.Execute(context.Background(), multiHopSig("nothing matches"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Confidence != 0 || len(result.Nodes) != 0 {
		t.Errorf("result = %+v, want empty zero-confidence result", result)
	}
}

func TestLogicalExecutor(t *testing.T) {
	g := NewStaticGraph()
	g.AddNode("a", "Training Pipeline", nil)
	g.AddNode("b", "Model Registry", nil)

	e := NewLogicalExecutor(g)
	if e.Method() != domain.MethodLogicalFiltering {
		t.Fatalf("method = %s", e.Method())
	}

	sig := domain.NewQuerySignature("list pipeline components", nil, domain.QueryStructured)
	result, err := e.Execute(context.Background(), sig)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Nodes) != 1 || result.Nodes[0] != "a" {
		t.Errorf("nodes = %v, want [a]", result.Nodes)
	}
	// One hit against a limit of 10.
	if diff := result.Confidence - 0.55; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("confidence = %v, want 0.55", result.Confidence)
	}
}

func TestLogicalExecutor_NoFilterableTerms(t *testing.T) {
	e := NewLogicalExecutor(NewStaticGraph())

	sig := domain.NewQuerySignature("a of it", nil, domain.QueryStructured)
	result, err := e.Execute(context.Background(), sig)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Confidence != 0 {
		t.Errorf("confidence = %v, want 0 with no usable terms", result.Confidence)
	}
}

func TestFilterTerms(t *testing.T) {
	got := filterTerms(`List "Pipelines", now!`)
	want := []string{"list", "pipelines", "now"}
	if len(got) != len(want) {
		t.Fatalf("terms = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("term %d = %q, want %q", i, got[i], want[i])
		}
	}
}

package service

import (
	"fmt"
	"strings"
	"sync"

	"github.com/adaptiverag/metagraph/internal/domain"
	"github.com/adaptiverag/metagraph/internal/metagraph"
	"go.uber.org/zap"
)

const (
	DefaultMinHistoricalQueries = 5

	// Score used for a method whose statistics are missing or not yet
	// reliable.
	neutralMethodScore = 0.5

	routingHistorySize = 10
)

// Keyword lists per query type. Hybrid has no list and is never selected
// by keyword scoring.
var queryKeywords = map[domain.QueryType][]string{
	domain.QuerySemantic: {
		"what", "how", "why", "describe", "explain",
		"tell me", "find", "search", "similar",
	},
	domain.QueryStructured: {
		"who", "where", "when", "list", "count",
		"filter", "select", "by", "with",
	},
	domain.QueryMultiHop: {
		"relationship", "connect", "path", "between",
		"through", "via", "across", "chain",
	},
	domain.QueryConstraint: {
		"only", "exactly", "must", "should", "cannot",
		"not", "exclude", "restriction", "rule",
	},
}

// Router classifies queries and picks the retrieval method whose learned
// effectiveness is best for that query type, falling back to a fixed
// hybrid split until enough history exists.
type Router struct {
	state  *metagraph.State
	logger *zap.Logger

	// MinHistoricalQueries is the per-method outcome count below which
	// routing stays on the default hybrid split.
	MinHistoricalQueries int

	mu              sync.Mutex
	recentDecisions []RoutingDecision
	totalDecisions  int
}

func NewRouter(state *metagraph.State, logger *zap.Logger) *Router {
	return &Router{
		state:                state,
		logger:               logger,
		MinHistoricalQueries: DefaultMinHistoricalQueries,
	}
}

// classifyOrder is the tie-break order for classification. Semantic
// keywords are generic question words ("what", "how"), so the specific
// types win ties against semantic; semantic is the fallback.
var classifyOrder = []domain.QueryType{
	domain.QueryStructured,
	domain.QueryMultiHop,
	domain.QueryConstraint,
	domain.QuerySemantic,
}

// Classify scores each query type by keyword hits (case-insensitive
// substring match), normalizes to sum 1 and returns the arg-max. With no
// hits at all the query is semantic. Ties break by classifyOrder.
func (r *Router) Classify(text string) domain.QueryType {
	lower := strings.ToLower(text)

	scores := make(map[domain.QueryType]float64, len(domain.QueryTypes()))
	total := 0.0
	for queryType, keywords := range queryKeywords {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				scores[queryType]++
				total++
			}
		}
	}

	if total == 0 {
		return domain.QuerySemantic
	}
	for queryType := range scores {
		scores[queryType] /= total
	}

	best := domain.QuerySemantic
	bestScore := -1.0
	for _, queryType := range classifyOrder {
		if scores[queryType] > bestScore {
			best = queryType
			bestScore = scores[queryType]
		}
	}
	return best
}

// RoutingDecision records one routing choice.
type RoutingDecision struct {
	QueryType      domain.QueryType                   `json:"query_type"`
	SelectedMethod domain.RetrievalMethod             `json:"selected_method"`
	Weights        map[domain.RetrievalMethod]float64 `json:"weights"`
}

// sufficientHistory reports whether every retrieval method has at least
// MinHistoricalQueries recorded outcomes.
func (r *Router) sufficientHistory() bool {
	counts := r.state.CountByMethod()
	for _, method := range domain.Methods() {
		if counts[method] < r.MinHistoricalQueries {
			return false
		}
	}
	return true
}

// defaultWeights is the fixed split used while history is insufficient.
func defaultWeights() map[domain.RetrievalMethod]float64 {
	return map[domain.RetrievalMethod]float64{
		domain.MethodVectorSearch:     0.33,
		domain.MethodGraphTraversal:   0.33,
		domain.MethodLogicalFiltering: 0.34,
	}
}

// Route picks the primary retrieval method and ensemble weight vector for
// a query. With insufficient history it returns hybrid and the fixed
// default split; otherwise each method scores success_rate x confidence
// when its statistic is reliable (neutral 0.5 otherwise), scores normalize
// to the weight vector and the arg-max wins, ties resolving by method
// enumeration order.
func (r *Router) Route(sig *domain.QuerySignature) (domain.RetrievalMethod, map[domain.RetrievalMethod]float64) {
	queryType := r.Classify(sig.Text)

	var (
		best    domain.RetrievalMethod
		weights map[domain.RetrievalMethod]float64
	)

	if r.sufficientHistory() {
		scores := make(map[domain.RetrievalMethod]float64, len(domain.Methods()))
		total := 0.0
		for _, method := range domain.Methods() {
			score := neutralMethodScore
			if eff, ok := r.state.Effectiveness(domain.MethodKey{Method: method, QueryType: queryType}); ok {
				if eff.Reliable(domain.DefaultMinSamples) {
					score = eff.SuccessRate * eff.Confidence
				}
			}
			scores[method] = score
			total += score
		}

		weights = make(map[domain.RetrievalMethod]float64, len(scores))
		bestScore := -1.0
		for _, method := range domain.Methods() {
			if total > 0 {
				weights[method] = scores[method] / total
			} else {
				weights[method] = 1.0 / float64(len(domain.Methods()))
			}
			if scores[method] > bestScore {
				best = method
				bestScore = scores[method]
			}
		}
	} else {
		best = domain.MethodHybrid
		weights = defaultWeights()
	}

	r.recordDecision(RoutingDecision{
		QueryType:      queryType,
		SelectedMethod: best,
		Weights:        weights,
	})

	r.logger.Debug("routed query",
		zap.String("query_type", string(queryType)),
		zap.String("method", string(best)))

	return best, weights
}

// Update folds one observed outcome into the effectiveness statistic for
// (method, queryType). Unknown enum values fail fast.
func (r *Router) Update(method domain.RetrievalMethod, queryType domain.QueryType, success bool, executionMs float64) error {
	if !method.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownMethod, method)
	}
	if !queryType.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownQueryType, queryType)
	}

	eff := r.state.UpdateEffectiveness(domain.MethodKey{Method: method, QueryType: queryType}, success, executionMs)

	r.logger.Debug("updated method effectiveness",
		zap.String("method", string(method)),
		zap.String("query_type", string(queryType)),
		zap.Float64("success_rate", eff.SuccessRate),
		zap.Float64("confidence", eff.Confidence))

	return nil
}

func (r *Router) recordDecision(d RoutingDecision) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.totalDecisions++
	r.recentDecisions = append(r.recentDecisions, d)
	if len(r.recentDecisions) > routingHistorySize {
		r.recentDecisions = r.recentDecisions[len(r.recentDecisions)-routingHistorySize:]
	}
}

// Recommendation is the per-key view of learned routing performance.
type Recommendation struct {
	Method      domain.RetrievalMethod `json:"method"`
	QueryType   domain.QueryType       `json:"query_type"`
	SuccessRate float64                `json:"success_rate"`
	AvgTimeMs   float64                `json:"avg_time_ms"`
	Reliability float64                `json:"reliability"`
	IsReliable  bool                   `json:"is_reliable"`
}

// Recommendations summarizes every (method, query type) statistic with at
// least one observation.
func (r *Router) Recommendations() []Recommendation {
	table := r.state.EffectivenessTable()

	recs := make([]Recommendation, 0, len(table))
	for _, eff := range table {
		if eff.TotalUses == 0 {
			continue
		}
		recs = append(recs, Recommendation{
			Method:      eff.Method,
			QueryType:   eff.QueryType,
			SuccessRate: eff.SuccessRate,
			AvgTimeMs:   eff.AvgExecutionMs,
			Reliability: eff.Confidence,
			IsReliable:  eff.Reliable(domain.DefaultMinSamples),
		})
	}
	return recs
}

// RouterStats exposes the bounded decision history.
type RouterStats struct {
	TotalRoutingDecisions int               `json:"total_routing_decisions"`
	MethodsTracked        int               `json:"methods_tracked"`
	RecentDecisions       []RoutingDecision `json:"recent_decisions"`
}

func (r *Router) Stats() RouterStats {
	r.mu.Lock()
	recent := make([]RoutingDecision, len(r.recentDecisions))
	copy(recent, r.recentDecisions)
	total := r.totalDecisions
	r.mu.Unlock()

	return RouterStats{
		TotalRoutingDecisions: total,
		MethodsTracked:        len(r.state.EffectivenessTable()),
		RecentDecisions:       recent,
	}
}

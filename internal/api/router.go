package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/adaptiverag/metagraph/internal/api/handlers"
	mw "github.com/adaptiverag/metagraph/internal/api/middleware"
	"github.com/adaptiverag/metagraph/internal/config"
	"github.com/adaptiverag/metagraph/internal/domain"
	"github.com/adaptiverag/metagraph/internal/embedding"
	"github.com/adaptiverag/metagraph/internal/extract"
	"github.com/adaptiverag/metagraph/internal/metagraph"
	"github.com/adaptiverag/metagraph/internal/retrieval"
	"github.com/adaptiverag/metagraph/internal/service"
	"github.com/adaptiverag/metagraph/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// App holds the router and background services for lifecycle management.
type App struct {
	Router    *chi.Mux
	State     *metagraph.State
	Tracker   *service.Tracker
	Activator *service.Activator

	startTime time.Time
	metrics   *mw.MetricsCollector
}

// NewApp wires the learning core, retrieval executors and HTTP surface.
// db may be nil; the server then runs on an in-memory graph with no
// persistence.
func NewApp(db *pgxpool.Pool, logger *zap.Logger) *App {
	state := metagraph.New()
	extractor := extract.NewHeuristicExtractor()
	matcher := extract.NewPatternMatcher()

	embeddingClient, err := embedding.NewClient(config.EmbeddingProvider(), config.EmbeddingAPIKey(), config.EmbeddingModel())
	if err != nil {
		logger.Warn("embedding client initialization failed",
			zap.String("provider", config.EmbeddingProvider()), zap.Error(err))
	} else {
		logger.Info("embedding client initialized", zap.String("provider", config.EmbeddingProvider()))
	}

	// Backing graph: Postgres when configured, in-memory otherwise.
	var (
		nodes       domain.NodeStore
		persistence domain.GraphPersistence
	)
	if db != nil {
		graphStore := store.NewGraphStore(db)
		nodes = graphStore
		persistence = graphStore
	} else {
		logger.Info("no database configured, using in-memory graph")
		nodes = retrieval.NewStaticGraph()
	}

	// Services
	tracker := service.NewTracker(state, logger)
	reweighter := service.NewReweighter(state, persistence, logger)
	reweighter.PositiveDelta = config.PositiveWeightDelta()
	reweighter.NegativeDelta = config.NegativeWeightDelta()
	reweighter.InitialWeight = config.InitialEdgeWeight()

	discovery := service.NewDiscovery(state, extractor, matcher, persistence, logger)
	discovery.Threshold = config.RelationConfidenceThreshold()

	router := service.NewRouter(state, logger)
	router.MinHistoricalQueries = config.MinHistoricalQueries()

	executors := []domain.Executor{
		retrieval.NewVectorExecutor(nodes),
		retrieval.NewTraversalExecutor(nodes, extractor),
		retrieval.NewLogicalExecutor(nodes),
	}

	orchestrator := service.NewOrchestrator(state, tracker, reweighter, discovery, router, embeddingClient, executors, logger)

	activator := service.NewActivator(discovery, logger)
	activator.SetInterval(config.AutoActivateInterval())
	activator.SetThreshold(config.RelationConfidenceThreshold())

	// Handlers
	queryHandler := handlers.NewQueryHandler(orchestrator)
	relationshipHandler := handlers.NewRelationshipHandler(discovery)
	routingHandler := handlers.NewRoutingHandler(router)
	performanceHandler := handlers.NewPerformanceHandler(tracker, reweighter)
	outcomeHandler := handlers.NewOutcomeHandler(tracker, logger)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		State:     state,
		Tracker:   tracker,
		Activator: activator,
		startTime: time.Now(),
		metrics:   mw.NewMetricsCollector(),
	}

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(app.metrics.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	r.Get("/health", healthHandler(db))
	r.Get("/metrics", app.metricsHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/query", queryHandler.Process)
		r.Get("/status", queryHandler.Status)

		r.Route("/relationships", func(r chi.Router) {
			r.Get("/pending", relationshipHandler.Pending)
			r.Get("/high-confidence", relationshipHandler.HighConfidence)
			r.Get("/stats", relationshipHandler.Stats)
			r.Post("/approve", relationshipHandler.Approve)
			r.Post("/reject", relationshipHandler.Reject)
			r.Post("/auto-activate", relationshipHandler.AutoActivate)
		})

		r.Route("/routing", func(r chi.Router) {
			r.Get("/recommendations", routingHandler.Recommendations)
			r.Get("/stats", routingHandler.Stats)
		})

		r.Route("/performance", func(r chi.Router) {
			r.Get("/summary", performanceHandler.Summary)
			r.Get("/failures", performanceHandler.Failures)
		})

		r.Route("/edge-weights", func(r chi.Router) {
			r.Get("/top", performanceHandler.TopEdges)
			r.Get("/stats", performanceHandler.ReweightStats)
		})

		r.Route("/outcomes", func(r chi.Router) {
			r.Post("/export", outcomeHandler.Export)
			r.Post("/import", outcomeHandler.Import)
		})
	})

	return app
}

// NewRouter returns just the chi.Mux for callers that manage no lifecycle.
func NewRouter(db *pgxpool.Pool, logger *zap.Logger) *chi.Mux {
	return NewApp(db, logger).Router
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if db == nil {
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "persistence": "disabled"})
			return
		}

		if err := db.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)
		snap := app.metrics.Snapshot()

		response := map[string]any{
			"uptime_seconds":    uptime.Seconds(),
			"uptime_human":      uptime.Round(time.Second).String(),
			"request_count":     snap.Requests,
			"error_count":       snap.Errors,
			"queries_processed": snap.Queries,
			"avg_response_ms":   snap.AvgResponseMs,
			"goroutines":        runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores and clients satisfy interfaces at compile time.
var (
	_ domain.GraphPersistence = (*store.GraphStore)(nil)
	_ domain.NodeStore        = (*store.GraphStore)(nil)
	_ domain.NodeStore        = (*retrieval.StaticGraph)(nil)
	_ domain.EmbeddingClient  = (*embedding.OpenAIClient)(nil)
	_ domain.EmbeddingClient  = (*embedding.MockClient)(nil)
	_ domain.Executor         = (*retrieval.VectorExecutor)(nil)
	_ domain.Executor         = (*retrieval.TraversalExecutor)(nil)
	_ domain.Executor         = (*retrieval.LogicalExecutor)(nil)
	_ domain.EntityExtractor  = (*extract.HeuristicExtractor)(nil)
	_ domain.RelationMatcher  = (*extract.PatternMatcher)(nil)
)

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by METAGRAPH_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("METAGRAPH_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

// DatabaseURL returns the Postgres connection string. Empty means the
// server runs without graph persistence and uses the static executor.
func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

// EmbeddingProvider returns the configured embedding provider.
// Defaults to "mock" if not set. Valid values: openai, mock
func EmbeddingProvider() string {
	p := os.Getenv("EMBEDDING_PROVIDER")
	if p == "" {
		return "mock"
	}
	return p
}

// EmbeddingModel returns the model name used by the openai provider.
// Defaults to text-embedding-3-small; the client pins the requested
// vector width either way, so any model accepting a dimensions
// parameter works.
func EmbeddingModel() string {
	m := os.Getenv("EMBEDDING_MODEL")
	if m == "" {
		return "text-embedding-3-small"
	}
	return m
}

// EmbeddingAPIKey returns the API key for the configured embedding provider.
func EmbeddingAPIKey() string {
	switch EmbeddingProvider() {
	case "mock":
		return ""
	default:
		return OpenAIAPIKey()
	}
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// ---- learning tunables ----

// PositiveWeightDelta is the base per-edge increment applied along a
// successful retrieval path.
func PositiveWeightDelta() float64 {
	return envFloat("POSITIVE_WEIGHT_DELTA", 0.15)
}

// NegativeWeightDelta is the per-edge decrement applied along a failed
// retrieval path. Negative by convention.
func NegativeWeightDelta() float64 {
	return envFloat("NEGATIVE_WEIGHT_DELTA", -0.10)
}

// InitialEdgeWeight is the starting weight for edges created lazily on
// first reinforcement.
func InitialEdgeWeight() float64 {
	return envFloat("INITIAL_EDGE_WEIGHT", 1.0)
}

// TimeWindowDays is the default trailing window for outcome statistics.
func TimeWindowDays() int {
	return envInt("TIME_WINDOW_DAYS", 30)
}

// RelationConfidenceThreshold gates discovered relationships: candidates
// below it are dropped, pending ones at or above it are auto-activated.
func RelationConfidenceThreshold() float64 {
	return envFloat("RELATION_CONFIDENCE_THRESHOLD", 0.7)
}

// MinHistoricalQueries is the per-method outcome count required before the
// router trusts learned statistics over the default hybrid split.
func MinHistoricalQueries() int {
	return envInt("MIN_HISTORICAL_QUERIES", 5)
}

// AutoActivateEnabled toggles the periodic sweep that activates
// high-confidence pending relationships.
func AutoActivateEnabled() bool {
	return os.Getenv("AUTO_ACTIVATE") != "false"
}

// AutoActivateInterval is how often the sweep runs. Defaults to 10 minutes.
func AutoActivateInterval() time.Duration {
	d, err := time.ParseDuration(os.Getenv("AUTO_ACTIVATE_INTERVAL"))
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// OutcomeSnapshotPath is where the outcome log is exported on shutdown and
// loaded from on startup. Empty disables snapshotting.
func OutcomeSnapshotPath() string {
	return os.Getenv("OUTCOME_SNAPSHOT_PATH")
}

func envFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

package middleware

import (
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// MetricsCollector accumulates request counters for the metrics endpoint,
// including how many requests actually hit the learning loop.
type MetricsCollector struct {
	requests    atomic.Int64
	errors      atomic.Int64
	queries     atomic.Int64
	totalMicros atomic.Int64
}

// NewMetricsCollector creates an empty collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{}
}

// MetricsSnapshot is a point-in-time view of the collected counters.
type MetricsSnapshot struct {
	Requests      int64
	Errors        int64
	Queries       int64
	AvgResponseMs float64
}

// Snapshot reads all counters. The average is over every request seen,
// not just queries.
func (mc *MetricsCollector) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Requests: mc.requests.Load(),
		Errors:   mc.errors.Load(),
		Queries:  mc.queries.Load(),
	}
	if s.Requests > 0 {
		s.AvgResponseMs = float64(mc.totalMicros.Load()) / float64(s.Requests) / 1000
	}
	return s
}

// Middleware counts requests, errors (4xx and 5xx), query executions and
// accumulated handler time.
func (mc *MetricsCollector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		mc.requests.Add(1)
		if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/query") {
			mc.queries.Add(1)
		}

		// Wrap response writer to capture status
		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)

		if rw.statusCode >= 400 {
			mc.errors.Add(1)
		}
		mc.totalMicros.Add(time.Since(start).Microseconds())
	})
}

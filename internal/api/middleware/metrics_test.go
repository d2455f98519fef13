package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMetricsCollector_CountsRequestsAndErrors(t *testing.T) {
	mc := NewMetricsCollector()
	handler := mc.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	for _, path := range []string{"/v1/status", "/missing", "/v1/status"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	snap := mc.Snapshot()
	if snap.Requests != 3 {
		t.Errorf("requests = %d, want 3", snap.Requests)
	}
	if snap.Errors != 1 {
		t.Errorf("errors = %d, want 1", snap.Errors)
	}
	if snap.Queries != 0 {
		t.Errorf("queries = %d, want 0 for GETs", snap.Queries)
	}
	if snap.AvgResponseMs < 0 {
		t.Errorf("avg response = %v, want >= 0", snap.AvgResponseMs)
	}
}

func TestMetricsCollector_TracksQueryExecutions(t *testing.T) {
	mc := NewMetricsCollector()
	handler := mc.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Only POSTs to the query endpoint count as learning-loop traffic.
	requests := []struct {
		method, path string
	}{
		{http.MethodPost, "/v1/query"},
		{http.MethodPost, "/v1/query"},
		{http.MethodGet, "/v1/query"},
		{http.MethodPost, "/v1/relationships/approve"},
	}
	for _, req := range requests {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(req.method, req.path, nil))
	}

	snap := mc.Snapshot()
	if snap.Queries != 2 {
		t.Errorf("queries = %d, want 2", snap.Queries)
	}
	if snap.Requests != 4 {
		t.Errorf("requests = %d, want 4", snap.Requests)
	}
}

func TestMetricsCollector_EmptySnapshot(t *testing.T) {
	snap := NewMetricsCollector().Snapshot()
	if snap.Requests != 0 || snap.Errors != 0 || snap.Queries != 0 || snap.AvgResponseMs != 0 {
		t.Errorf("snapshot = %+v, want zero values", snap)
	}
}

package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func embeddingJSON(width int) string {
	vec := make([]float32, width)
	b, _ := json.Marshal(map[string]any{
		"data": []map[string]any{{"embedding": vec}},
	})
	return string(b)
}

func TestOpenAIClient_RequestsPinnedDimensions(t *testing.T) {
	var got embeddingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(embeddingJSON(Dimensions)))
	}))
	defer srv.Close()

	c := NewOpenAIClient("test-key", "")
	c.baseURL = srv.URL

	vec, err := c.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != Dimensions {
		t.Errorf("dimensions = %d, want %d", len(vec), Dimensions)
	}
	if got.Model != defaultModel {
		t.Errorf("model = %q, want %q", got.Model, defaultModel)
	}
	if got.Dimensions != Dimensions {
		t.Errorf("requested dimensions = %d, want %d", got.Dimensions, Dimensions)
	}
}

func TestOpenAIClient_ModelOverride(t *testing.T) {
	var got embeddingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(embeddingJSON(Dimensions)))
	}))
	defer srv.Close()

	c := NewOpenAIClient("test-key", "text-embedding-3-large")
	c.baseURL = srv.URL

	if _, err := c.Embed(context.Background(), "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Model != "text-embedding-3-large" {
		t.Errorf("model = %q, want override", got.Model)
	}
}

func TestOpenAIClient_RejectsWrongWidth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(embeddingJSON(8)))
	}))
	defer srv.Close()

	c := NewOpenAIClient("test-key", "")
	c.baseURL = srv.URL

	_, err := c.Embed(context.Background(), "hello")
	if err == nil || !strings.Contains(err.Error(), "dimensions") {
		t.Fatalf("err = %v, want dimension mismatch", err)
	}
}

func TestOpenAIClient_SurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("test-key", "")
	c.baseURL = srv.URL

	_, err := c.Embed(context.Background(), "hello")
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("err = %v, want status 429", err)
	}
}

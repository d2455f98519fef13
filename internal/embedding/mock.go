package embedding

import (
	"context"
	"hash/fnv"
	"math"
)

// MockClient produces deterministic embeddings derived from the input text.
// The same text always yields the same vector, so tests and offline runs get
// stable similarity behavior without a network call.
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (c *MockClient) Embed(_ context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, Dimensions)
	var norm float64
	for i := range vec {
		// xorshift64 keeps the sequence cheap and reproducible.
		seed ^= seed << 13
		seed ^= seed >> 7
		seed ^= seed << 17
		v := float64(int64(seed)) / math.MaxInt64 // in [-1, 1]
		vec[i] = float32(v)
		norm += v * v
	}

	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec, nil
}

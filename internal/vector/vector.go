// Package vector provides per-page embedding persistence and cosine
// similarity search. The contract guarantees ranked results in
// non-increasing similarity order with ties broken by insertion order;
// an efficient index is explicitly out of scope.
package vector

import (
	"context"
	"errors"
	"math"
)

// Errors returned by vector stores.
var (
	// ErrNotFound is returned when an embedding lookup misses.
	ErrNotFound = errors.New("embedding not found")
	// ErrDimensionMismatch is returned when vector dimensions disagree.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrEmptyVector is returned when a vector has no components.
	ErrEmptyVector = errors.New("empty vector")
)

// Match is one ranked similarity result.
type Match struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Store persists embeddings and answers nearest-neighbor queries.
type Store interface {
	// StoreEmbedding inserts or replaces the embedding under id.
	StoreEmbedding(ctx context.Context, id string, vec []float32, metadata map[string]any) error
	// UpdateEmbedding replaces the vector for an existing id.
	UpdateEmbedding(ctx context.Context, id string, vec []float32) error
	// DeleteEmbedding removes the embedding under id.
	DeleteEmbedding(ctx context.Context, id string) error
	// GetEmbedding returns the vector and metadata stored under id.
	GetEmbedding(ctx context.Context, id string) ([]float32, map[string]any, error)
	// SearchSimilar returns up to topK matches ranked by cosine similarity,
	// descending; equal scores rank by insertion order, earliest first.
	SearchSimilar(ctx context.Context, query []float32, topK int) ([]Match, error)
}

// CosineSimilarity computes the normalized dot product of two equal-length
// vectors. A zero vector has similarity 0 with everything.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, ErrEmptyVector
	}
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

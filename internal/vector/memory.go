package vector

import (
	"context"
	"sort"
	"sync"
)

// entry is one stored embedding with its insertion sequence number.
type entry struct {
	vec      []float32
	metadata map[string]any
	seq      int
}

// MemoryStore is the linear-scan in-memory vector store. Correctness
// reference for the contract; adequate for bounded crawls.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*entry
	nextSeq int
}

// NewMemoryStore creates an empty in-memory vector store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*entry)}
}

// StoreEmbedding inserts or replaces the embedding under id. A replaced
// entry keeps its original insertion position for tie-breaking.
func (s *MemoryStore) StoreEmbedding(ctx context.Context, id string, vec []float32, metadata map[string]any) error {
	if len(vec) == 0 {
		return ErrEmptyVector
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]float32, len(vec))
	copy(stored, vec)

	if existing, ok := s.entries[id]; ok {
		existing.vec = stored
		existing.metadata = metadata
		return nil
	}
	s.entries[id] = &entry{vec: stored, metadata: metadata, seq: s.nextSeq}
	s.nextSeq++
	return nil
}

// UpdateEmbedding replaces the vector for an existing id.
func (s *MemoryStore) UpdateEmbedding(ctx context.Context, id string, vec []float32) error {
	if len(vec) == 0 {
		return ErrEmptyVector
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.entries[id]
	if !ok {
		return ErrNotFound
	}
	stored := make([]float32, len(vec))
	copy(stored, vec)
	existing.vec = stored
	return nil
}

// DeleteEmbedding removes the embedding under id.
func (s *MemoryStore) DeleteEmbedding(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return ErrNotFound
	}
	delete(s.entries, id)
	return nil
}

// GetEmbedding returns the vector and metadata stored under id.
func (s *MemoryStore) GetEmbedding(ctx context.Context, id string) ([]float32, map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	existing, ok := s.entries[id]
	if !ok {
		return nil, nil, ErrNotFound
	}
	vec := make([]float32, len(existing.vec))
	copy(vec, existing.vec)
	return vec, existing.metadata, nil
}

// SearchSimilar linear-scans all embeddings and returns up to topK matches
// ranked by cosine similarity descending, ties by insertion order.
func (s *MemoryStore) SearchSimilar(ctx context.Context, query []float32, topK int) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		Match
		seq int
	}

	results := make([]scored, 0, len(s.entries))
	for id, e := range s.entries {
		score, err := CosineSimilarity(query, e.vec)
		if err != nil {
			return nil, err
		}
		results = append(results, scored{
			Match: Match{ID: id, Score: score, Metadata: e.metadata},
			seq:   e.seq,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].seq < results[j].seq
	})

	if len(results) > topK {
		results = results[:topK]
	}
	matches := make([]Match, len(results))
	for i := range results {
		matches[i] = results[i].Match
	}
	return matches, nil
}

package vector

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"
)

// PostgresStore persists embeddings in PostgreSQL. Vectors are stored as
// JSONB arrays and similarity search is a linear scan over the loaded rows;
// the contract is correctness, not index performance.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a PostgreSQL-backed vector store.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the embeddings table when missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS embeddings (
		id        TEXT PRIMARY KEY,
		vec       JSONB NOT NULL,
		metadata  JSONB NOT NULL DEFAULT '{}',
		seq       BIGSERIAL
	);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate vector store: %w", err)
	}
	return nil
}

// embeddingRow is the sqlx row shape for the embeddings table.
type embeddingRow struct {
	ID       string `db:"id"`
	Vec      []byte `db:"vec"`
	Metadata []byte `db:"metadata"`
	Seq      int64  `db:"seq"`
}

// StoreEmbedding inserts or replaces the embedding under id. A replaced row
// keeps its original seq so insertion-order tie-breaking is stable.
func (s *PostgresStore) StoreEmbedding(ctx context.Context, id string, vec []float32, metadata map[string]any) error {
	if len(vec) == 0 {
		return ErrEmptyVector
	}

	vecJSON, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("encode vector: %w", err)
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	query := `
		INSERT INTO embeddings (id, vec, metadata)
		VALUES ($1, $2, $3)
		ON CONFLICT (id)
		DO UPDATE SET vec = EXCLUDED.vec, metadata = EXCLUDED.metadata
	`
	if _, err = s.db.ExecContext(ctx, query, id, vecJSON, metaJSON); err != nil {
		return fmt.Errorf("failed to store embedding: %w", err)
	}
	return nil
}

// UpdateEmbedding replaces the vector for an existing id.
func (s *PostgresStore) UpdateEmbedding(ctx context.Context, id string, vec []float32) error {
	if len(vec) == 0 {
		return ErrEmptyVector
	}

	vecJSON, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("encode vector: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `UPDATE embeddings SET vec = $2 WHERE id = $1`, id, vecJSON)
	if err != nil {
		return fmt.Errorf("failed to update embedding: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update embedding: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteEmbedding removes the embedding under id.
func (s *PostgresStore) DeleteEmbedding(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM embeddings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete embedding: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete embedding: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetEmbedding returns the vector and metadata stored under id.
func (s *PostgresStore) GetEmbedding(ctx context.Context, id string) ([]float32, map[string]any, error) {
	var row embeddingRow
	if err := s.db.GetContext(ctx, &row, `SELECT * FROM embeddings WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to get embedding: %w", err)
	}
	return decodeRow(&row)
}

// decodeRow unmarshals an embedding row.
func decodeRow(row *embeddingRow) ([]float32, map[string]any, error) {
	var vec []float32
	if err := json.Unmarshal(row.Vec, &vec); err != nil {
		return nil, nil, fmt.Errorf("decode vector: %w", err)
	}
	var metadata map[string]any
	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &metadata); err != nil {
			return nil, nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return vec, metadata, nil
}

// SearchSimilar loads all embeddings ordered by insertion and linear-scans
// for the topK nearest by cosine similarity.
func (s *PostgresStore) SearchSimilar(ctx context.Context, query []float32, topK int) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}

	var rows []embeddingRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM embeddings ORDER BY seq`); err != nil {
		return nil, fmt.Errorf("failed to scan embeddings: %w", err)
	}

	type scored struct {
		Match
		seq int64
	}

	results := make([]scored, 0, len(rows))
	for i := range rows {
		vec, metadata, err := decodeRow(&rows[i])
		if err != nil {
			return nil, err
		}
		score, err := CosineSimilarity(query, vec)
		if err != nil {
			return nil, err
		}
		results = append(results, scored{
			Match: Match{ID: rows[i].ID, Score: score, Metadata: metadata},
			seq:   rows[i].Seq,
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

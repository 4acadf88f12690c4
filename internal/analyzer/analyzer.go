// Package analyzer defines the semantic-analyzer collaborator contract and
// a deterministic heuristic implementation. Extraction quality is a
// pluggable concern; only the contract shape matters to the pipeline.
package analyzer

import "github.com/jonesrussell/siteatlas/internal/domain"

// EmbeddingDim is the fixed dimension of generated embeddings.
const EmbeddingDim = 128

// Analyzer extracts semantic content, entities, topics, and embeddings
// from raw page content.
type Analyzer interface {
	// ExtractContent parses raw HTML into a content summary.
	ExtractContent(raw string) (domain.ContentSummary, error)
	// IdentifyEntities returns named entities found in text.
	IdentifyEntities(text string) []string
	// ExtractTopics derives keywords, main topics, and categories from a
	// content summary.
	ExtractTopics(summary domain.ContentSummary) domain.Topics
	// GenerateEmbedding maps text to a fixed-dimension vector.
	GenerateEmbedding(text string) []float32
}

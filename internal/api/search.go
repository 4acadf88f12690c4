package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SearchRequest is the POST /api/v1/search body. The query text is
// embedded with the same analyzer that embedded the stored pages.
type SearchRequest struct {
	Query string `json:"query" binding:"required"`
	TopK  int    `json:"top_k"`
}

// SearchResult is one ranked semantic-search hit.
type SearchResult struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	URL      string         `json:"url,omitempty"`
	Title    string         `json:"title,omitempty"`
	JobID    string         `json:"job_id,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (s *Server) handleSearch(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	topK := req.TopK
	if topK <= 0 {
		topK = s.searchTopK
	}

	query := s.analyzer.GenerateEmbedding(req.Query)
	matches, err := s.vectors.SearchSimilar(c.Request.Context(), query, topK)
	if err != nil {
		s.logger.Error("Vector search failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	results := make([]SearchResult, 0, len(matches))
	for _, match := range matches {
		result := SearchResult{
			ID:       match.ID,
			Score:    match.Score,
			Metadata: match.Metadata,
		}
		if url, ok := match.Metadata["url"].(string); ok {
			result.URL = url
		}
		if title, ok := match.Metadata["title"].(string); ok {
			result.Title = title
		}
		if jobID, ok := match.Metadata["job_id"].(string); ok {
			result.JobID = jobID
		}
		results = append(results, result)
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/siteatlas/internal/domain"
	"github.com/jonesrussell/siteatlas/internal/storage"
)

func (s *Server) handleJobResults(c *gin.Context) {
	jobID := c.Param("id")

	snapshot, err := s.jobs.Status(jobID)
	if err != nil {
		s.jobError(c, err)
		return
	}

	ctx := c.Request.Context()
	pages, err := s.store.ListPages(ctx, jobID)
	if err != nil {
		s.storageError(c, err)
		return
	}
	linkCount, err := s.store.CountLinks(ctx, jobID)
	if err != nil {
		s.storageError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job":        snapshot,
		"pages":      pages,
		"link_count": linkCount,
	})
}

func (s *Server) handleGetPage(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url query parameter is required"})
		return
	}

	page, err := s.store.GetPage(c.Request.Context(), c.Param("id"), url)
	if err != nil {
		s.storageError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) handleGetLinks(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url query parameter is required"})
		return
	}

	jobID := c.Param("id")
	ctx := c.Request.Context()

	var links []domain.Link
	var err error
	switch direction := c.DefaultQuery("direction", "from"); direction {
	case "from":
		links, err = s.store.GetLinksFrom(ctx, jobID, url)
	case "to":
		links, err = s.store.GetLinksTo(ctx, jobID, url)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "direction must be \"from\" or \"to\""})
		return
	}
	if err != nil {
		s.storageError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"links": links})
}

func (s *Server) handleSemanticSiteMap(c *gin.Context) {
	siteMap, err := s.sitemaps.Semantic(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.storageError(c, err)
		return
	}
	c.JSON(http.StatusOK, siteMap)
}

func (s *Server) handleFunctionalSiteMap(c *gin.Context) {
	mapper, err := s.jobs.Flow(c.Param("id"))
	if err != nil {
		s.jobError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.sitemaps.Functional(mapper))
}

// storageError maps knowledge-store errors to HTTP status codes.
func (s *Server) storageError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrPageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, storage.ErrInvalidKey):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.logger.Error("Storage read failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

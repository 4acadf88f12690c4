// Package api implements the HTTP API for the exploration service.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/siteatlas/internal/analyzer"
	"github.com/jonesrussell/siteatlas/internal/domain"
	"github.com/jonesrussell/siteatlas/internal/flow"
	"github.com/jonesrussell/siteatlas/internal/logger"
	"github.com/jonesrussell/siteatlas/internal/sitemap"
	"github.com/jonesrussell/siteatlas/internal/storage"
	"github.com/jonesrussell/siteatlas/internal/vector"
)

// JobService is the job-lifecycle surface the API exposes. Satisfied by
// pipeline.Manager.
type JobService interface {
	Start(ctx context.Context, cfg domain.JobConfig) (string, error)
	Pause(jobID string) error
	Resume(jobID string) error
	Cancel(jobID string) error
	Status(jobID string) (domain.ExplorationJob, error)
	List() []domain.ExplorationJob
	Flow(jobID string) (*flow.Mapper, error)
}

// DefaultSearchTopK is the result count used when a search request omits
// top_k.
const DefaultSearchTopK = 10

// JobDefaults fills exploration bounds omitted from a start request.
type JobDefaults struct {
	MaxDepth int
	MaxPages int
}

// Server holds the handler dependencies.
type Server struct {
	jobs        JobService
	store       storage.KnowledgeStore
	vectors     vector.Store
	analyzer    analyzer.Analyzer
	sitemaps    *sitemap.Generator
	jobDefaults JobDefaults
	searchTopK  int
	logger      logger.Interface
}

// NewServer creates an API server.
func NewServer(
	jobs JobService,
	store storage.KnowledgeStore,
	vectors vector.Store,
	contentAnalyzer analyzer.Analyzer,
	sitemaps *sitemap.Generator,
	jobDefaults JobDefaults,
	searchTopK int,
	log logger.Interface,
) *Server {
	if searchTopK <= 0 {
		searchTopK = DefaultSearchTopK
	}
	return &Server{
		jobs:        jobs,
		store:       store,
		vectors:     vectors,
		analyzer:    contentAnalyzer,
		sitemaps:    sitemaps,
		jobDefaults: jobDefaults,
		searchTopK:  searchTopK,
		logger:      log.WithComponent("api"),
	}
}

// SetupRouter creates and configures the Gin router with all routes.
func (s *Server) SetupRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(s.logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	v1.POST("/jobs", s.handleStartJob)
	v1.GET("/jobs", s.handleListJobs)
	v1.GET("/jobs/:id", s.handleJobStatus)
	v1.POST("/jobs/:id/pause", s.handlePauseJob)
	v1.POST("/jobs/:id/resume", s.handleResumeJob)
	v1.POST("/jobs/:id/cancel", s.handleCancelJob)

	v1.GET("/jobs/:id/results", s.handleJobResults)
	v1.GET("/jobs/:id/pages", s.handleGetPage)
	v1.GET("/jobs/:id/links", s.handleGetLinks)
	v1.GET("/jobs/:id/sitemap/semantic", s.handleSemanticSiteMap)
	v1.GET("/jobs/:id/sitemap/functional", s.handleFunctionalSiteMap)

	v1.POST("/search", s.handleSearch)

	return router
}

// loggingMiddleware logs HTTP requests through the structured logger.
func loggingMiddleware(log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		log.Info("HTTP Request",
			"method", c.Request.Method,
			"path", path,
			"query", query,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

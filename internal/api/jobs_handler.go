package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/siteatlas/internal/domain"
	"github.com/jonesrussell/siteatlas/internal/pipeline"
)

// StartJobRequest is the POST /api/v1/jobs body. Omitted bounds fall back
// to the server's configured defaults; pointers distinguish an omitted
// field from an explicit zero.
type StartJobRequest struct {
	SeedURL           string `json:"seed_url" binding:"required"`
	MaxDepth          *int   `json:"max_depth"`
	MaxPages          *int   `json:"max_pages"`
	Strategy          string `json:"strategy"`
	IncludeSubdomains bool   `json:"include_subdomains"`
}

func (s *Server) handleStartJob(c *gin.Context) {
	var req StartJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	strategy := domain.Strategy(req.Strategy)
	if req.Strategy == "" {
		strategy = domain.StrategyBFS
	}

	cfg := domain.JobConfig{
		SeedURL:           req.SeedURL,
		MaxDepth:          s.jobDefaults.MaxDepth,
		MaxPages:          s.jobDefaults.MaxPages,
		Strategy:          strategy,
		IncludeSubdomains: req.IncludeSubdomains,
	}
	if req.MaxDepth != nil {
		cfg.MaxDepth = *req.MaxDepth
	}
	if req.MaxPages != nil {
		cfg.MaxPages = *req.MaxPages
	}

	jobID, err := s.jobs.Start(c.Request.Context(), cfg)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"job_id": jobID,
		"status": domain.StatusRunning,
	})
}

func (s *Server) handleListJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": s.jobs.List()})
}

func (s *Server) handleJobStatus(c *gin.Context) {
	snapshot, err := s.jobs.Status(c.Param("id"))
	if err != nil {
		s.jobError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (s *Server) handlePauseJob(c *gin.Context) {
	s.controlJob(c, s.jobs.Pause)
}

func (s *Server) handleResumeJob(c *gin.Context) {
	s.controlJob(c, s.jobs.Resume)
}

func (s *Server) handleCancelJob(c *gin.Context) {
	s.controlJob(c, s.jobs.Cancel)
}

// controlJob runs a lifecycle operation and returns the fresh job status.
func (s *Server) controlJob(c *gin.Context, op func(string) error) {
	jobID := c.Param("id")
	if err := op(jobID); err != nil {
		s.jobError(c, err)
		return
	}

	snapshot, err := s.jobs.Status(jobID)
	if err != nil {
		s.jobError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// jobError maps job-lifecycle errors to HTTP status codes.
func (s *Server) jobError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pipeline.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, pipeline.ErrIllegalTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		s.logger.Error("Job operation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/resolverai/burnie-mindshare-sub002/processor"
	"github.com/resolverai/burnie-mindshare-sub002/timeline"
)

// JobRunner executes one edit job to completion.
type JobRunner interface {
	Process(ctx context.Context, req *timeline.EditRequest) (string, error)
}

// Server handles HTTP API requests for video edit jobs. Jobs are
// acknowledged immediately and rendered in the background; completion is
// reported through the request's callback URL and the status endpoint.
type Server struct {
	jobs   JobRunner
	status *processor.StatusStore
	logger zerolog.Logger
}

// NewServer creates a new API server instance.
func NewServer(jobs JobRunner, status *processor.StatusStore, logger zerolog.Logger) *Server {
	return &Server{
		jobs:   jobs,
		status: status,
		logger: logger.With().Str("component", "api").Logger(),
	}
}

// Router constructs a Gin engine with registered routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	// Minimal middleware: recovery; logger optional to reduce verbosity
	r.Use(gin.Recovery())

	r.POST("/api/video-edit", s.handleVideoEdit)
	r.GET("/api/video-edit/:edit_id/status", s.handleStatus)
	r.GET("/health", s.handleHealth)
	return r
}

// editResponse is the immediate acknowledgement payload.
type editResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	EditID  string `json:"edit_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// handleVideoEdit accepts an edit request, validates it and starts the
// render in the background.
// POST /api/video-edit
func (s *Server) handleVideoEdit(c *gin.Context) {
	var req timeline.EditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, editResponse{
			Success: false,
			Message: "invalid JSON payload",
			Error:   err.Error(),
		})
		return
	}

	if req.EditID == "" {
		req.EditID = uuid.NewString()
	}

	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, editResponse{
			Success: false,
			Message: "invalid edit request",
			EditID:  req.EditID,
			Error:   err.Error(),
		})
		return
	}

	s.logger.Info().
		Str("edit_id", req.EditID).
		Str("account_id", req.AccountID).
		Msg("accepted edit request")

	// The request context dies with the response; the job must not.
	go func(req timeline.EditRequest) {
		if _, err := s.jobs.Process(context.Background(), &req); err != nil {
			s.logger.Error().Err(err).Str("edit_id", req.EditID).Msg("edit job failed")
		}
	}(req)

	c.JSON(http.StatusAccepted, editResponse{
		Success: true,
		Message: "edit processing started",
		EditID:  req.EditID,
	})
}

// handleStatus reports the current state of an edit job.
// GET /api/video-edit/:edit_id/status
func (s *Server) handleStatus(c *gin.Context) {
	editID := c.Param("edit_id")

	status, found, err := s.status.Get(c.Request.Context(), editID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, editResponse{
			Success: false,
			Message: "status lookup failed",
			Error:   err.Error(),
		})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, editResponse{
			Success: false,
			Message: "unknown edit id",
			EditID:  editID,
		})
		return
	}

	c.JSON(http.StatusOK, status)
}

// handleHealth provides a health check endpoint.
// GET /health
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "video-edit",
	})
}

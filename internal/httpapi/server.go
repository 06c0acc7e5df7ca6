// Package httpapi exposes the governance pipeline over HTTP. The execute
// endpoints always answer with the persisted artifact id, whatever the
// outcome: 200 when output was produced, 409 when the safety gate blocked,
// 500 when generation failed. Clients audit by artifact id, never by
// response body alone.
package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"chamfer/internal/artifact"
	"chamfer/internal/drift"
	"chamfer/internal/eventlog"
	"chamfer/internal/logging"
	"chamfer/internal/pipeline"
	"chamfer/internal/store"
)

// Server routes HTTP requests into the pipeline service.
type Server struct {
	addr    string
	r       *gin.Engine
	service *pipeline.Service
	store   store.Store
	events  *eventlog.Log
	log     *slog.Logger
}

// New assembles the server. events may be nil; the events endpoint then
// returns an empty list.
func New(addr string, service *pipeline.Service, st store.Store, events *eventlog.Log) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		addr:    addr,
		r:       r,
		service: service,
		store:   st,
		events:  events,
		log:     logging.New("httpapi"),
	}
	s.routes()
	return s
}

// Run blocks serving HTTP until the listener fails.
func (s *Server) Run() error {
	s.log.Info("listening", "addr", s.addr)
	return s.r.Run(s.addr)
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler { return s.r }

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.r.Group("/api")
	{
		api.POST("/specs", s.handleCreateSpec)
		api.POST("/plans", s.handleCreatePlan)
		api.POST("/decisions", s.handleDecide)
		api.POST("/executions", s.handleExecute)
		api.POST("/executions/:id/retry", s.handleRetry)

		api.GET("/artifacts", s.handleQueryArtifacts)
		api.GET("/artifacts/:id", s.handleGetArtifact)
		api.PATCH("/artifacts/:id/meta", s.handlePatchMeta)

		api.GET("/diff", s.handleDiff)
		api.GET("/events", s.handleEvents)
	}
}

// writeError maps pipeline and store errors onto stable status codes.
func (s *Server) writeError(c *gin.Context, err error) {
	var verr *pipeline.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Msg})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		s.log.Error("request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// executionResponse is the shared wire shape for execute and retry.
type executionResponse struct {
	ArtifactID   string   `json:"artifact_id"`
	Status       string   `json:"status"`
	OKCount      int      `json:"ok_count"`
	BlockedCount int      `json:"blocked_count"`
	ErrorCount   int      `json:"error_count"`
	DriftPaths   []string `json:"drift_paths,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// writeExecution applies the 200/409/500 contract. The artifact id is
// present in every branch.
func (s *Server) writeExecution(c *gin.Context, res *pipeline.ExecuteResult, err error) {
	var gerr *pipeline.GenerationError
	switch {
	case err != nil && errors.As(err, &gerr) && res != nil:
		c.JSON(http.StatusInternalServerError, executionResponse{
			ArtifactID:   res.Artifact.ID,
			Status:       string(res.Artifact.Status),
			OKCount:      res.Payload.OKCount,
			BlockedCount: res.Payload.BlockedCount,
			ErrorCount:   res.Payload.ErrorCount,
			Error:        gerr.Error(),
		})
	case err != nil:
		s.writeError(c, err)
	default:
		code := http.StatusOK
		if res.Artifact.Status == artifact.StatusBlocked {
			code = http.StatusConflict
		}
		c.JSON(code, executionResponse{
			ArtifactID:   res.Artifact.ID,
			Status:       string(res.Artifact.Status),
			OKCount:      res.Payload.OKCount,
			BlockedCount: res.Payload.BlockedCount,
			ErrorCount:   res.Payload.ErrorCount,
			DriftPaths:   res.Payload.DriftPaths,
		})
	}
}

func (s *Server) handleDiff(c *gin.Context) {
	aID, bID := c.Query("a"), c.Query("b")
	if aID == "" || bID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query params a and b are required"})
		return
	}
	a, err := s.store.Get(aID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	b, err := s.store.Get(bID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, drift.Diff(a, b))
}

func (s *Server) handleEvents(c *gin.Context) {
	if s.events == nil {
		c.JSON(http.StatusOK, gin.H{"events": []eventlog.Event{}})
		return
	}
	n := s.events.Len()
	c.JSON(http.StatusOK, gin.H{"events": s.events.Recent(n)})
}

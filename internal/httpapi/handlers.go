package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"chamfer/internal/pipeline"
	"chamfer/internal/store"
)

func (s *Server) handleCreateSpec(c *gin.Context) {
	var req pipeline.SpecRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	a, err := s.service.CreateSpec(req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"artifact_id": a.ID, "status": a.Status})
}

func (s *Server) handleCreatePlan(c *gin.Context) {
	var req struct {
		SpecArtifactID string `json:"spec_artifact_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.SpecArtifactID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "spec_artifact_id is required"})
		return
	}
	a, err := s.service.CreatePlan(c.Request.Context(), req.SpecArtifactID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"artifact_id": a.ID, "status": a.Status, "payload": a.Payload})
}

func (s *Server) handleDecide(c *gin.Context) {
	var req pipeline.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	a, err := s.service.Decide(req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"artifact_id": a.ID, "status": a.Status})
}

func (s *Server) handleExecute(c *gin.Context) {
	var req struct {
		DecisionArtifactID string `json:"decision_artifact_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.DecisionArtifactID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "decision_artifact_id is required"})
		return
	}
	res, err := s.service.Execute(c.Request.Context(), req.DecisionArtifactID)
	s.writeExecution(c, res, err)
}

func (s *Server) handleRetry(c *gin.Context) {
	var req struct {
		OpIDs        []string `json:"op_ids,omitempty"`
		OverrideNote string   `json:"override_note,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	res, err := s.service.Retry(c.Request.Context(), c.Param("id"), req.OpIDs, req.OverrideNote)
	s.writeExecution(c, res, err)
}

func (s *Server) handleQueryArtifacts(c *gin.Context) {
	f := store.Filter{
		Kind:              strings.TrimSpace(c.Query("kind")),
		Status:            strings.TrimSpace(c.Query("status")),
		ToolID:            strings.TrimSpace(c.Query("tool_id")),
		MaterialID:        strings.TrimSpace(c.Query("material_id")),
		SessionID:         strings.TrimSpace(c.Query("session_id")),
		ParentSpecID:      strings.TrimSpace(c.Query("parent_spec")),
		ParentPlanID:      strings.TrimSpace(c.Query("parent_plan")),
		ParentDecisionID:  strings.TrimSpace(c.Query("parent_decision")),
		ParentExecutionID: strings.TrimSpace(c.Query("parent_execution")),
	}
	limit := store.DefaultLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	items, next, err := s.store.Query(f, strings.TrimSpace(c.Query("cursor")), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "next_cursor": next})
}

func (s *Server) handleGetArtifact(c *gin.Context) {
	a, err := s.store.Get(c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *Server) handlePatchMeta(c *gin.Context) {
	var updates map[string]any
	if err := c.ShouldBindJSON(&updates); err != nil || len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "non-empty meta object required"})
		return
	}
	a, err := s.store.PatchMeta(c.Param("id"), updates)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

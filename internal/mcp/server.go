// Package mcp exposes the artifact store to MCP clients over stdio. All
// tools are read-only: agents inspect governance history, they never write
// artifacts or trigger executions through this surface.
package mcp

import (
	"context"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"chamfer/internal/artifact"
	"chamfer/internal/drift"
	"chamfer/internal/eventlog"
	"chamfer/internal/store"
)

// Server wraps the MCP SDK server around the artifact store.
type Server struct {
	MCPServer *sdkmcp.Server

	store  store.Store
	events *eventlog.Log
}

// NewServer creates an MCP server with artifact query and diff tools.
// events may be nil; get_events then returns an empty list.
func NewServer(st store.Store, events *eventlog.Log) *Server {
	s := &Server{store: st, events: events}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "chamfer", Version: "dev"},
		nil,
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "query_artifacts",
		Description: "List governance artifacts filtered by kind, status, tool, material, session, or parent artifact. Paginated via cursor.",
	}, s.handleQueryArtifacts)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_artifact",
		Description: "Fetch one artifact by id, including its full payload and meta.",
	}, s.handleGetArtifact)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "diff_artifacts",
		Description: "Compare two artifacts and report changed paths with a drift severity (INFO, WARNING, CRITICAL).",
	}, s.handleDiffArtifacts)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_events",
		Description: "Read recent pipeline events (newest first) from the in-process event log.",
	}, s.handleGetEvents)
}

// --- Tool input/output types ---

type queryArtifactsInput struct {
	Kind              string `json:"kind,omitempty" jsonschema:"artifact kind (op_spec, op_plan, op_decision, op_execution, op_toolpaths)"`
	Status            string `json:"status,omitempty" jsonschema:"artifact status (CREATED, OK, BLOCKED, ERROR, APPROVED, REJECTED)"`
	ToolID            string `json:"tool_id,omitempty" jsonschema:"filter by tool id"`
	MaterialID        string `json:"material_id,omitempty" jsonschema:"filter by material id"`
	SessionID         string `json:"session_id,omitempty" jsonschema:"filter by session id"`
	ParentExecutionID string `json:"parent_execution_id,omitempty" jsonschema:"filter children of one execution"`
	Cursor            string `json:"cursor,omitempty" jsonschema:"pagination cursor from a previous call"`
	Limit             int    `json:"limit,omitempty" jsonschema:"page size (1-200, default 50)"`
}

type queryArtifactsOutput struct {
	Items      []*artifact.Artifact `json:"items"`
	NextCursor string               `json:"next_cursor,omitempty"`
}

type getArtifactInput struct {
	ID string `json:"id" jsonschema:"artifact id"`
}

type getArtifactOutput struct {
	Artifact *artifact.Artifact `json:"artifact"`
}

type diffArtifactsInput struct {
	A string `json:"a" jsonschema:"first artifact id"`
	B string `json:"b" jsonschema:"second artifact id"`
}

type diffArtifactsOutput struct {
	Report drift.Report `json:"report"`
}

type getEventsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"max events to return (default all retained)"`
}

type getEventsOutput struct {
	Events []eventlog.Event `json:"events"`
}

// --- Tool handlers ---

func (s *Server) handleQueryArtifacts(ctx context.Context, _ *sdkmcp.CallToolRequest, input queryArtifactsInput) (*sdkmcp.CallToolResult, queryArtifactsOutput, error) {
	f := store.Filter{
		Kind:              input.Kind,
		Status:            input.Status,
		ToolID:            input.ToolID,
		MaterialID:        input.MaterialID,
		SessionID:         input.SessionID,
		ParentExecutionID: input.ParentExecutionID,
	}
	limit := input.Limit
	if limit == 0 {
		limit = store.DefaultLimit
	}
	items, next, err := s.store.Query(f, input.Cursor, limit)
	if err != nil {
		return nil, queryArtifactsOutput{}, fmt.Errorf("query_artifacts: %w", err)
	}
	return nil, queryArtifactsOutput{Items: items, NextCursor: next}, nil
}

func (s *Server) handleGetArtifact(ctx context.Context, _ *sdkmcp.CallToolRequest, input getArtifactInput) (*sdkmcp.CallToolResult, getArtifactOutput, error) {
	if input.ID == "" {
		return nil, getArtifactOutput{}, fmt.Errorf("id is required")
	}
	a, err := s.store.Get(input.ID)
	if err != nil {
		return nil, getArtifactOutput{}, fmt.Errorf("get_artifact %s: %w", input.ID, err)
	}
	return nil, getArtifactOutput{Artifact: a}, nil
}

func (s *Server) handleDiffArtifacts(ctx context.Context, _ *sdkmcp.CallToolRequest, input diffArtifactsInput) (*sdkmcp.CallToolResult, diffArtifactsOutput, error) {
	if input.A == "" || input.B == "" {
		return nil, diffArtifactsOutput{}, fmt.Errorf("both a and b artifact ids are required")
	}
	a, err := s.store.Get(input.A)
	if err != nil {
		return nil, diffArtifactsOutput{}, fmt.Errorf("diff_artifacts a=%s: %w", input.A, err)
	}
	b, err := s.store.Get(input.B)
	if err != nil {
		return nil, diffArtifactsOutput{}, fmt.Errorf("diff_artifacts b=%s: %w", input.B, err)
	}
	return nil, diffArtifactsOutput{Report: drift.Diff(a, b)}, nil
}

func (s *Server) handleGetEvents(ctx context.Context, _ *sdkmcp.CallToolRequest, input getEventsInput) (*sdkmcp.CallToolResult, getEventsOutput, error) {
	if s.events == nil {
		return nil, getEventsOutput{Events: []eventlog.Event{}}, nil
	}
	n := input.Limit
	if n <= 0 {
		n = s.events.Len()
	}
	return nil, getEventsOutput{Events: s.events.Recent(n)}, nil
}

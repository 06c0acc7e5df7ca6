// Package pipeline drives the four-stage governance state machine:
// SPEC -> PLAN -> DECISION -> EXECUTE. Each transition persists exactly one
// immutable artifact; EXECUTE re-verifies feasibility from scratch and
// consults the safety gate before any output is produced, regardless of any
// earlier approval.
package pipeline

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"chamfer/internal/blob"
	"chamfer/internal/eventlog"
	"chamfer/internal/feasibility"
	"chamfer/internal/gate"
	"chamfer/internal/logging"
	"chamfer/internal/store"
	"chamfer/internal/toolpath"
)

// ValidationError rejects malformed stage input before any artifact is
// written.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// GenerationError wraps an output-generation failure. The failure is first
// captured into an ERROR artifact, then surfaced to the caller.
type GenerationError struct {
	OpID string
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate output for op %s: %v", e.OpID, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Service wires the store, the feasibility engine, the safety gate, the
// blob store, and the output generator into the state machine.
type Service struct {
	store  store.Store
	engine *feasibility.Engine
	policy gate.Policy
	gen    toolpath.Generator
	blobs  *blob.Store
	events *eventlog.Log
	log    *slog.Logger
}

// New assembles a Service. events may be nil (no event recording); blobs may
// be nil (outputs are hashed and embedded but not blob-stored).
func New(st store.Store, engine *feasibility.Engine, policy gate.Policy,
	gen toolpath.Generator, blobs *blob.Store, events *eventlog.Log) *Service {
	return &Service{
		store:  st,
		engine: engine,
		policy: policy,
		gen:    gen,
		blobs:  blobs,
		events: events,
		log:    logging.New("pipeline"),
	}
}

func (s *Service) event(eventType, artifactID, sessionID, detail string) {
	if s.events == nil {
		return
	}
	s.events.Append(eventlog.Event{
		Type:       eventType,
		ArtifactID: artifactID,
		SessionID:  sessionID,
		Detail:     detail,
	})
}

// toMap round-trips a typed value through JSON into the map form artifact
// payloads use. Keeps persisted payloads identical whether they were built
// in-process or read back from the store.
func toMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return m, nil
}

// fromPayload decodes an artifact payload (or a fragment of one) back into a
// typed value.
func fromPayload(m any, out any) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("re-encode payload: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

package mcp

import (
	"context"
	"testing"

	"chamfer/internal/artifact"
	"chamfer/internal/eventlog"
	"chamfer/internal/store"
)

func seedStore(t *testing.T) store.Store {
	t.Helper()
	st := store.NewMemStore()
	t.Cleanup(func() { _ = st.Close() })
	for _, w := range []store.WriteRequest{
		{Kind: artifact.KindOpSpec, Stage: artifact.StageSpec, Status: artifact.StatusOK,
			IndexMeta: map[string]string{artifact.MetaSessionID: "s1", artifact.MetaToolID: "T12"},
			Payload:   map[string]any{"session_id": "s1"}},
		{Kind: artifact.KindOpPlan, Stage: artifact.StagePlan, Status: artifact.StatusOK,
			IndexMeta: map[string]string{artifact.MetaSessionID: "s1"},
			Payload:   map[string]any{"session_id": "s1"}},
	} {
		if _, err := st.Write(w); err != nil {
			t.Fatal(err)
		}
	}
	return st
}

func TestQueryArtifactsTool(t *testing.T) {
	s := NewServer(seedStore(t), nil)

	_, out, err := s.handleQueryArtifacts(context.Background(), nil,
		queryArtifactsInput{Kind: artifact.KindOpSpec})
	if err != nil {
		t.Fatalf("query_artifacts: %v", err)
	}
	if len(out.Items) != 1 || out.Items[0].Kind != artifact.KindOpSpec {
		t.Errorf("items: %+v", out.Items)
	}

	_, out, err = s.handleQueryArtifacts(context.Background(), nil, queryArtifactsInput{})
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Items) != 2 {
		t.Errorf("unfiltered items: got %d, want 2", len(out.Items))
	}
}

func TestGetArtifactTool(t *testing.T) {
	st := seedStore(t)
	s := NewServer(st, nil)
	items, _, err := st.Query(store.Filter{}, "", 1)
	if err != nil || len(items) != 1 {
		t.Fatal(err)
	}

	_, out, err := s.handleGetArtifact(context.Background(), nil,
		getArtifactInput{ID: items[0].ID})
	if err != nil {
		t.Fatalf("get_artifact: %v", err)
	}
	if out.Artifact.ID != items[0].ID {
		t.Errorf("id: got %q, want %q", out.Artifact.ID, items[0].ID)
	}

	if _, _, err := s.handleGetArtifact(context.Background(), nil,
		getArtifactInput{ID: "a-nope"}); err == nil {
		t.Error("get_artifact accepted an unknown id")
	}
	if _, _, err := s.handleGetArtifact(context.Background(), nil,
		getArtifactInput{}); err == nil {
		t.Error("get_artifact accepted an empty id")
	}
}

func TestDiffArtifactsTool(t *testing.T) {
	st := seedStore(t)
	s := NewServer(st, nil)
	items, _, err := st.Query(store.Filter{}, "", 2)
	if err != nil || len(items) != 2 {
		t.Fatal(err)
	}

	_, out, err := s.handleDiffArtifacts(context.Background(), nil,
		diffArtifactsInput{A: items[0].ID, B: items[1].ID})
	if err != nil {
		t.Fatalf("diff_artifacts: %v", err)
	}
	if !out.Report.Drift() {
		t.Error("spec vs plan reported as identical")
	}

	if _, _, err := s.handleDiffArtifacts(context.Background(), nil,
		diffArtifactsInput{A: items[0].ID}); err == nil {
		t.Error("diff_artifacts accepted a missing b id")
	}
}

func TestGetEventsTool(t *testing.T) {
	events := eventlog.New(8)
	events.Append(eventlog.Event{Type: "spec_created", ArtifactID: "a-1"})
	events.Append(eventlog.Event{Type: "plan_created", ArtifactID: "a-2"})
	s := NewServer(seedStore(t), events)

	_, out, err := s.handleGetEvents(context.Background(), nil, getEventsInput{})
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Events) != 2 || out.Events[0].Type != "plan_created" {
		t.Errorf("events: %+v", out.Events)
	}

	_, out, err = s.handleGetEvents(context.Background(), nil, getEventsInput{Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Events) != 1 {
		t.Errorf("limited events: got %d, want 1", len(out.Events))
	}

	// No event log wired: empty result, not an error.
	bare := NewServer(seedStore(t), nil)
	_, out, err = bare.handleGetEvents(context.Background(), nil, getEventsInput{})
	if err != nil || len(out.Events) != 0 {
		t.Errorf("bare events: %v %v", out.Events, err)
	}
}

func TestWatchParentStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	WatchParent(ctx, cancel)
	cancel()
}

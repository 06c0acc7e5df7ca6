package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"chamfer/internal/eventlog"
	"chamfer/internal/feasibility"
	"chamfer/internal/gate"
	"chamfer/internal/machining"
	"chamfer/internal/pipeline"
	"chamfer/internal/store"
	"chamfer/internal/toolpath"
)

func testServer(t *testing.T) (*Server, store.Store) {
	t.Helper()
	st := store.NewMemStore()
	t.Cleanup(func() { _ = st.Close() })
	events := eventlog.New(64)
	svc := pipeline.New(st, feasibility.NewDefaultEngine(), gate.DefaultPolicy(),
		toolpath.NewGCodeGenerator(), nil, events)
	return New(":0", svc, st, events), st
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return m
}

func apiOp(id, material string, rpm, feed float64) machining.Operation {
	return machining.Operation{
		ID:   id,
		Type: "pocket",
		Design: machining.Design{
			MaterialID: material, StockLength: 100, StockWidth: 60, StockThickness: 12,
		},
		Context: machining.Context{
			ToolID: "T12", MachineID: "vmc-3", SessionID: "s1",
			ToolDiameter: 10, FluteCount: 3, Stickout: 25,
			SpindleRPM: rpm, FeedRate: feed,
			DepthOfCut: 2, WidthOfCut: 5,
			MachinePowerKW: 7.5, ClampForceN: 3000,
		},
	}
}

// driveToDecision walks spec -> plan -> approved decision over the API.
func driveToDecision(t *testing.T, s *Server, ops []machining.Operation, order []string) string {
	t.Helper()
	w := do(t, s, http.MethodPost, "/api/specs", pipeline.SpecRequest{
		SessionID: "s1", Operations: ops,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("POST /api/specs: %d %s", w.Code, w.Body.String())
	}
	specID := decode(t, w)["artifact_id"].(string)

	w = do(t, s, http.MethodPost, "/api/plans", map[string]any{"spec_artifact_id": specID})
	if w.Code != http.StatusOK {
		t.Fatalf("POST /api/plans: %d %s", w.Code, w.Body.String())
	}
	planID := decode(t, w)["artifact_id"].(string)

	w = do(t, s, http.MethodPost, "/api/decisions", map[string]any{
		"plan_artifact_id": planID,
		"approve":          true,
		"chosen_order":     order,
		"operator":         "op-smith",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("POST /api/decisions: %d %s", w.Code, w.Body.String())
	}
	return decode(t, w)["artifact_id"].(string)
}

func TestHealthz(t *testing.T) {
	s, _ := testServer(t)
	if w := do(t, s, http.MethodGet, "/healthz", nil); w.Code != http.StatusOK {
		t.Errorf("healthz: %d", w.Code)
	}
}

func TestExecuteEndToEnd(t *testing.T) {
	s, _ := testServer(t)
	decisionID := driveToDecision(t, s,
		[]machining.Operation{apiOp("op1", "al-6061", 8000, 1920)}, []string{"op1"})

	w := do(t, s, http.MethodPost, "/api/executions",
		map[string]any{"decision_artifact_id": decisionID})
	if w.Code != http.StatusOK {
		t.Fatalf("execute: %d %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["artifact_id"] == "" {
		t.Error("no artifact_id in response")
	}
	if body["status"] != "OK" || body["ok_count"].(float64) != 1 {
		t.Errorf("body: %v", body)
	}
}

func TestExecuteBlockedIs409(t *testing.T) {
	s, _ := testServer(t)
	decisionID := driveToDecision(t, s,
		[]machining.Operation{apiOp("op1", "steel-1045", 30000, 7200)}, []string{"op1"})

	w := do(t, s, http.MethodPost, "/api/executions",
		map[string]any{"decision_artifact_id": decisionID})
	if w.Code != http.StatusConflict {
		t.Fatalf("blocked execute: got %d, want 409 (%s)", w.Code, w.Body.String())
	}
	body := decode(t, w)
	// Even refusals land as auditable artifacts.
	if id, _ := body["artifact_id"].(string); id == "" {
		t.Error("blocked response carries no artifact_id")
	}
	if body["blocked_count"].(float64) != 1 {
		t.Errorf("body: %v", body)
	}
}

func TestExecuteValidation(t *testing.T) {
	s, _ := testServer(t)
	if w := do(t, s, http.MethodPost, "/api/executions", map[string]any{}); w.Code != http.StatusBadRequest {
		t.Errorf("missing decision id: got %d, want 400", w.Code)
	}
	w := do(t, s, http.MethodPost, "/api/executions",
		map[string]any{"decision_artifact_id": "a-nope"})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown decision: got %d, want 404 (%s)", w.Code, w.Body.String())
	}
}

func TestQueryAndGetArtifacts(t *testing.T) {
	s, _ := testServer(t)
	driveToDecision(t, s,
		[]machining.Operation{apiOp("op1", "al-6061", 8000, 1920)}, []string{"op1"})

	w := do(t, s, http.MethodGet, "/api/artifacts?kind=op_spec", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("query: %d", w.Code)
	}
	items := decode(t, w)["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("items: got %d, want 1", len(items))
	}
	id := items[0].(map[string]any)["id"].(string)

	if w := do(t, s, http.MethodGet, "/api/artifacts/"+id, nil); w.Code != http.StatusOK {
		t.Errorf("get: %d", w.Code)
	}
	if w := do(t, s, http.MethodGet, "/api/artifacts/a-missing", nil); w.Code != http.StatusNotFound {
		t.Errorf("get missing: got %d, want 404", w.Code)
	}
	if w := do(t, s, http.MethodGet, "/api/artifacts?limit=zzz", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit: got %d, want 400", w.Code)
	}
}

func TestPatchMeta(t *testing.T) {
	s, st := testServer(t)
	driveToDecision(t, s,
		[]machining.Operation{apiOp("op1", "al-6061", 8000, 1920)}, []string{"op1"})
	items, _, err := st.Query(store.Filter{Kind: "op_spec"}, "", 1)
	if err != nil || len(items) != 1 {
		t.Fatalf("seed artifact: %v", err)
	}
	id := items[0].ID

	w := do(t, s, http.MethodPatch, "/api/artifacts/"+id+"/meta",
		map[string]any{"reviewed_by": "qa-team"})
	if w.Code != http.StatusOK {
		t.Fatalf("patch: %d %s", w.Code, w.Body.String())
	}
	got, err := st.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Meta["reviewed_by"] != "qa-team" {
		t.Errorf("meta: %v", got.Meta)
	}

	if w := do(t, s, http.MethodPatch, "/api/artifacts/"+id+"/meta", map[string]any{}); w.Code != http.StatusBadRequest {
		t.Errorf("empty patch: got %d, want 400", w.Code)
	}
}

func TestDiffEndpoint(t *testing.T) {
	s, st := testServer(t)
	driveToDecision(t, s,
		[]machining.Operation{apiOp("op1", "al-6061", 8000, 1920)}, []string{"op1"})
	driveToDecision(t, s,
		[]machining.Operation{apiOp("op1", "al-6061", 8000, 1920)}, []string{"op1"})

	specs, _, err := st.Query(store.Filter{Kind: "op_spec"}, "", 10)
	if err != nil || len(specs) != 2 {
		t.Fatalf("specs: %d %v", len(specs), err)
	}
	path := fmt.Sprintf("/api/diff?a=%s&b=%s", specs[0].ID, specs[1].ID)
	w := do(t, s, http.MethodGet, path, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("diff: %d %s", w.Code, w.Body.String())
	}
	if w := do(t, s, http.MethodGet, "/api/diff?a="+specs[0].ID, nil); w.Code != http.StatusBadRequest {
		t.Errorf("missing b: got %d, want 400", w.Code)
	}
	if w := do(t, s, http.MethodGet, "/api/diff?a=a-x&b=a-y", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown ids: got %d, want 404", w.Code)
	}
}

func TestEventsEndpoint(t *testing.T) {
	s, _ := testServer(t)
	driveToDecision(t, s,
		[]machining.Operation{apiOp("op1", "al-6061", 8000, 1920)}, []string{"op1"})

	w := do(t, s, http.MethodGet, "/api/events", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("events: %d", w.Code)
	}
	events := decode(t, w)["events"].([]any)
	if len(events) == 0 {
		t.Error("no events recorded")
	}
}

package drift

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"chamfer/internal/artifact"
)

func baseArtifact() *artifact.Artifact {
	return &artifact.Artifact{
		ID:     "a-1",
		Kind:   artifact.KindOpToolpaths,
		Stage:  artifact.StageExecute,
		Status: artifact.StatusOK,
		IndexMeta: map[string]string{
			artifact.MetaToolID:     "T12",
			artifact.MetaMaterialID: "al-6061",
			artifact.MetaSessionID:  "s1",
		},
		Payload: map[string]any{
			"feasibility": map[string]any{
				"risk_bucket": "GREEN",
				"score":       92.5,
			},
			"attachments": []any{
				map[string]any{"sha256": "aaa", "kind": "toolpath"},
				map[string]any{"sha256": "bbb", "kind": "photo"},
			},
			"notes": "first run",
		},
		RequestHash: "req-1",
		OutputHash:  "out-1",
	}
}

func TestDiff_Identical(t *testing.T) {
	r := Diff(baseArtifact(), baseArtifact())
	if r.Drift() {
		t.Errorf("identical artifacts drifted: %v", r.ChangedPaths)
	}
	if r.Severity != SeverityInfo {
		t.Errorf("severity: got %s, want INFO", r.Severity)
	}
}

func TestDiff_NoteOnlyIsInfo(t *testing.T) {
	a := baseArtifact()
	b := baseArtifact()
	b.Payload["notes"] = "replayed after tool change"

	r := Diff(a, b)
	if diff := cmp.Diff([]string{"notes"}, r.ChangedPaths); diff != "" {
		t.Errorf("changed paths (-want +got):\n%s", diff)
	}
	if r.Severity != SeverityInfo {
		t.Errorf("severity: got %s, want INFO", r.Severity)
	}
}

func TestDiff_OutputHashIsCritical(t *testing.T) {
	a := baseArtifact()
	b := baseArtifact()
	b.OutputHash = "out-2"

	r := Diff(a, b)
	if r.Severity != SeverityCritical {
		t.Errorf("severity: got %s, want CRITICAL", r.Severity)
	}
	if !r.Drift() {
		t.Error("expected drift")
	}
}

func TestDiff_RiskBucketIsCritical(t *testing.T) {
	a := baseArtifact()
	b := baseArtifact()
	b.Payload["feasibility"].(map[string]any)["risk_bucket"] = "RED"

	if r := Diff(a, b); r.Severity != SeverityCritical {
		t.Errorf("severity: got %s, want CRITICAL", r.Severity)
	}
}

func TestDiff_StatusIsCritical(t *testing.T) {
	a := baseArtifact()
	b := baseArtifact()
	b.Status = artifact.StatusBlocked

	if r := Diff(a, b); r.Severity != SeverityCritical {
		t.Errorf("severity: got %s, want CRITICAL", r.Severity)
	}
}

func TestDiff_RequestHashIsWarning(t *testing.T) {
	a := baseArtifact()
	b := baseArtifact()
	b.RequestHash = "req-2"

	if r := Diff(a, b); r.Severity != SeverityWarning {
		t.Errorf("severity: got %s, want WARNING", r.Severity)
	}
}

func TestDiff_ScoreIsWarning(t *testing.T) {
	a := baseArtifact()
	b := baseArtifact()
	b.Payload["feasibility"].(map[string]any)["score"] = 71.0

	if r := Diff(a, b); r.Severity != SeverityWarning {
		t.Errorf("severity: got %s, want WARNING", r.Severity)
	}
}

func TestDiff_AttachmentOrderIsNotDrift(t *testing.T) {
	a := baseArtifact()
	b := baseArtifact()
	b.Payload["attachments"] = []any{
		map[string]any{"sha256": "bbb", "kind": "photo"},
		map[string]any{"sha256": "aaa", "kind": "toolpath"},
	}

	if r := Diff(a, b); r.Drift() {
		t.Errorf("reordered attachments registered as drift: %v", r.ChangedPaths)
	}
}

func TestDiff_AttachmentContentIsDrift(t *testing.T) {
	a := baseArtifact()
	b := baseArtifact()
	b.Payload["attachments"] = []any{
		map[string]any{"sha256": "ccc", "kind": "toolpath"},
		map[string]any{"sha256": "bbb", "kind": "photo"},
	}

	r := Diff(a, b)
	if !r.Drift() {
		t.Fatal("expected drift for changed attachment digest")
	}
	if r.ChangedPaths[0] != "attachments" {
		t.Errorf("changed paths: %v", r.ChangedPaths)
	}
	if r.Severity != SeverityInfo {
		t.Errorf("severity: got %s, want INFO", r.Severity)
	}
}

func TestDiff_ContextIDChange(t *testing.T) {
	a := baseArtifact()
	b := baseArtifact()
	b.IndexMeta[artifact.MetaToolID] = "T13"

	r := Diff(a, b)
	if !r.Drift() || r.ChangedPaths[0] != artifact.MetaToolID {
		t.Errorf("changed paths: %v", r.ChangedPaths)
	}
	if r.Severity != SeverityInfo {
		t.Errorf("severity: got %s, want INFO", r.Severity)
	}
}

func TestDiff_CriticalDominatesWarning(t *testing.T) {
	a := baseArtifact()
	b := baseArtifact()
	b.RequestHash = "req-2"
	b.OutputHash = "out-2"

	if r := Diff(a, b); r.Severity != SeverityCritical {
		t.Errorf("severity: got %s, want CRITICAL", r.Severity)
	}
}

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const runFile = `session_id: s1
operations:
  - op_id: op1
    type: pocket
    design:
      material_id: al-6061
      stock_length_mm: 100
      stock_width_mm: 60
      stock_thickness_mm: 12
    context:
      tool_id: T12
      machine_id: vmc-3
      session_id: s1
      tool_diameter_mm: 10
      flute_count: 3
      stickout_mm: 25
      spindle_rpm: 8000
      feed_rate_mm_min: 1920
      depth_of_cut_mm: 2
      width_of_cut_mm: 5
      machine_power_kw: 7.5
      clamp_force_n: 3000
`

func isolateEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CHAMFER_DB_PATH", filepath.Join(dir, "chamfer.db"))
	t.Setenv("CHAMFER_BLOB_ROOT", filepath.Join(dir, "blobs"))
}

func execCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	// Flag vars are package globals; reset what earlier tests may have set.
	runFlags.file, runFlags.operator, runFlags.note = "", "", ""
	runFlags.order, runFlags.dryRun = nil, false
	queryFlags.kind, queryFlags.cursor = "", ""

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRunDryRun(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "req.yaml")
	if err := os.WriteFile(path, []byte(runFile), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execCLI(t, "run", "-f", path, "--dry-run")
	if err != nil {
		t.Fatalf("run --dry-run: %v\n%s", err, out)
	}
	if !strings.Contains(out, "SPEC") || !strings.Contains(out, "PLAN") {
		t.Errorf("output missing stages:\n%s", out)
	}
	if strings.Contains(out, "EXECUTE") {
		t.Errorf("dry run executed:\n%s", out)
	}
	if !strings.Contains(out, "op1") {
		t.Errorf("scorecard missing op:\n%s", out)
	}
}

func TestRunFullPipeline(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "req.yaml")
	if err := os.WriteFile(path, []byte(runFile), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execCLI(t, "run", "-f", path, "--operator", "op-smith")
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	for _, want := range []string{"SPEC", "PLAN", "DECISION", "EXECUTE", "ok=1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestQueryEmptyStore(t *testing.T) {
	isolateEnv(t)
	out, err := execCLI(t, "query")
	if err != nil {
		t.Fatalf("query: %v\n%s", err, out)
	}
	if !strings.Contains(out, "no artifacts match") {
		t.Errorf("output: %s", out)
	}
}

func TestRunRequiresOperator(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "req.yaml")
	if err := os.WriteFile(path, []byte(runFile), 0o644); err != nil {
		t.Fatal(err)
	}
	if out, err := execCLI(t, "run", "-f", path); err == nil {
		t.Errorf("run without operator succeeded:\n%s", out)
	}
}

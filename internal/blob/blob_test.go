package blob

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestPut_ContentAddressedDedup(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	content := []byte("G21\nG0 X0 Y0\nG1 Z-2.5 F120\n")
	att1, path1, err := s.Put(content, "toolpath", "text/plain", "op1.nc")
	if err != nil {
		t.Fatalf("Put 1: %v", err)
	}
	att2, path2, err := s.Put(content, "toolpath", "text/plain", "op1.nc")
	if err != nil {
		t.Fatalf("Put 2: %v", err)
	}

	if att1.SHA256 != att2.SHA256 {
		t.Errorf("digests differ: %s vs %s", att1.SHA256, att2.SHA256)
	}
	if path1 != path2 {
		t.Errorf("paths differ: %s vs %s", path1, path2)
	}

	shard := filepath.Dir(path1)
	entries, err := os.ReadDir(shard)
	if err != nil {
		t.Fatalf("read shard: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected one stored blob, found %d", len(entries))
	}
	if att1.SizeBytes != int64(len(content)) {
		t.Errorf("size: got %d, want %d", att1.SizeBytes, len(content))
	}
}

func TestPut_DedupAcrossFilenames(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	content := []byte("G21\nG0 X0 Y0\nG1 Z-2.5 F120\n")
	att1, path1, err := s.Put(content, "toolpath", "text/plain", "op1.nc")
	if err != nil {
		t.Fatalf("Put op1.nc: %v", err)
	}
	att2, path2, err := s.Put(content, "report", "text/plain", "op1.txt")
	if err != nil {
		t.Fatalf("Put op1.txt: %v", err)
	}

	if att1.SHA256 != att2.SHA256 {
		t.Errorf("digests differ: %s vs %s", att1.SHA256, att2.SHA256)
	}
	if path1 != path2 {
		t.Errorf("paths differ: %s vs %s", path1, path2)
	}
	if att2.Filename != "op1.txt" || att2.Kind != "report" {
		t.Errorf("second attachment metadata not fresh: %+v", att2)
	}

	entries, err := os.ReadDir(filepath.Dir(path1))
	if err != nil {
		t.Fatalf("read shard: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("same content stored as %d files, want 1", len(entries))
	}
}

func TestPath_RoundTrip(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	att, wantPath, err := s.Put([]byte("fixture photo bytes"), "photo", "image/jpeg", "setup.jpg")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Path(att.SHA256)
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	if got != wantPath {
		t.Errorf("Path: got %s, want %s", got, wantPath)
	}

	data, err := os.ReadFile(got)
	if err != nil {
		t.Fatalf("read blob: %v", err)
	}
	if string(data) != "fixture photo bytes" {
		t.Errorf("blob content corrupted: %q", data)
	}
}

func TestPath_NotFound(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = s.Path("deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

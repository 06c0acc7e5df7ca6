package config

import (
	"testing"

	"chamfer/internal/gate"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.DBPath != ".chamfer/chamfer.db" {
		t.Errorf("DBPath: got %q", c.DBPath)
	}
	if c.HTTPAddr != ":8640" {
		t.Errorf("HTTPAddr: got %q", c.HTTPAddr)
	}
	p := c.GatePolicy()
	if p.Mode != gate.ModeBlock || !p.RequireOverrideNote {
		t.Errorf("default policy: %+v", p)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CHAMFER_REPLAY_MODE", "soft_block")
	t.Setenv("CHAMFER_REQUIRE_OVERRIDE_NOTE", "false")
	t.Setenv("CHAMFER_DB_PATH", "/tmp/x.db")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.DBPath != "/tmp/x.db" {
		t.Errorf("DBPath: got %q", c.DBPath)
	}
	p := c.GatePolicy()
	if p.Mode != gate.ModeSoftBlock || p.RequireOverrideNote {
		t.Errorf("policy: %+v", p)
	}
}

func TestLoadRejectsBadMode(t *testing.T) {
	t.Setenv("CHAMFER_REPLAY_MODE", "maybe")
	if _, err := Load(); err == nil {
		t.Error("Load accepted an invalid replay mode")
	}
}

func TestLoadRejectsBadCapacity(t *testing.T) {
	t.Setenv("CHAMFER_EVENT_CAPACITY", "-1")
	if _, err := Load(); err == nil {
		t.Error("Load accepted a negative event capacity")
	}
}

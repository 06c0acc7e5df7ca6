// Package config loads process configuration from the environment. Every
// knob has a CHAMFER_ prefixed variable and a working default, so a bare
// binary starts against a local SQLite file.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"chamfer/internal/gate"
)

// Config is the full process configuration. Parsed once at startup and
// passed down by value.
type Config struct {
	DBPath   string `env:"CHAMFER_DB_PATH" envDefault:".chamfer/chamfer.db"`
	BlobRoot string `env:"CHAMFER_BLOB_ROOT" envDefault:".chamfer/blobs"`

	HTTPAddr string `env:"CHAMFER_HTTP_ADDR" envDefault:":8640"`

	ReplayMode          string `env:"CHAMFER_REPLAY_MODE" envDefault:"block"`
	RequireOverrideNote bool   `env:"CHAMFER_REQUIRE_OVERRIDE_NOTE" envDefault:"true"`

	// MaterialsFile and TuningFile optionally override the built-in material
	// table and calculator weights (YAML).
	MaterialsFile string `env:"CHAMFER_MATERIALS_FILE"`
	TuningFile    string `env:"CHAMFER_TUNING_FILE"`

	EventCapacity int `env:"CHAMFER_EVENT_CAPACITY" envDefault:"512"`

	LogLevel  string `env:"CHAMFER_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"CHAMFER_LOG_FORMAT" envDefault:"text"`
}

// Load parses the environment and validates cross-field constraints.
func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if _, err := gate.ParseMode(c.ReplayMode); err != nil {
		return Config{}, err
	}
	if c.EventCapacity <= 0 {
		return Config{}, fmt.Errorf("invalid CHAMFER_EVENT_CAPACITY %d", c.EventCapacity)
	}
	return c, nil
}

// GatePolicy derives the safety policy from the parsed configuration.
// Load has already validated the mode string.
func (c Config) GatePolicy() gate.Policy {
	mode, err := gate.ParseMode(c.ReplayMode)
	if err != nil {
		mode = gate.ModeBlock
	}
	return gate.Policy{Mode: mode, RequireOverrideNote: c.RequireOverrideNote}
}

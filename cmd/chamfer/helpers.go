package main

import (
	"fmt"

	"chamfer/internal/blob"
	"chamfer/internal/config"
	"chamfer/internal/eventlog"
	"chamfer/internal/feasibility"
	"chamfer/internal/logging"
	"chamfer/internal/machining"
	"chamfer/internal/pipeline"
	"chamfer/internal/store"
	"chamfer/internal/toolpath"
)

// deps is everything a command needs, assembled once from the environment.
type deps struct {
	cfg     config.Config
	store   *store.SqlStore
	events  *eventlog.Log
	service *pipeline.Service
}

func (d *deps) close() {
	if d.store != nil {
		_ = d.store.Close()
	}
}

// openDeps loads config, initializes logging, opens the SQLite store, and
// wires the pipeline service.
func openDeps() (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.Init(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	if cfg.MaterialsFile != "" {
		if err := machining.LoadMaterials(cfg.MaterialsFile); err != nil {
			return nil, fmt.Errorf("load materials: %w", err)
		}
	}
	weights := feasibility.DefaultWeights()
	if cfg.TuningFile != "" {
		weights, err = feasibility.LoadWeights(cfg.TuningFile)
		if err != nil {
			return nil, fmt.Errorf("load tuning: %w", err)
		}
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	blobs, err := blob.New(cfg.BlobRoot)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("open blob store: %w", err)
	}

	events := eventlog.New(cfg.EventCapacity)
	engine := feasibility.NewEngine(feasibility.DefaultCalculators(), weights)
	svc := pipeline.New(st, engine, cfg.GatePolicy(),
		toolpath.NewGCodeGenerator(), blobs, events)

	return &deps{cfg: cfg, store: st, events: events, service: svc}, nil
}

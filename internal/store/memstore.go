package store

import (
	"sort"
	"sync"

	"chamfer/internal/artifact"
)

// MemStore implements Store in memory. Used by tests and by the CLI demo
// flow; semantics mirror SqlStore, including id ordering and the meta-only
// mutation rule.
type MemStore struct {
	mu        sync.RWMutex
	artifacts map[string]*artifact.Artifact
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{artifacts: make(map[string]*artifact.Artifact)}
}

func (s *MemStore) Close() error { return nil }

func (s *MemStore) Write(req WriteRequest) (*artifact.Artifact, error) {
	now := nowUTC()
	id := req.ID
	if id == "" {
		id = NewArtifactID(now)
	}
	a := &artifact.Artifact{
		ID:          id,
		Kind:        req.Kind,
		Stage:       req.Stage,
		Status:      req.Status,
		CreatedAt:   now,
		IndexMeta:   cloneStringMap(req.IndexMeta),
		Payload:     req.Payload,
		RequestHash: req.RequestHash,
		OutputHash:  req.OutputHash,
	}
	s.mu.Lock()
	s.artifacts[a.ID] = a
	s.mu.Unlock()
	cp := *a
	return &cp, nil
}

func (s *MemStore) Get(id string) (*artifact.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.artifacts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *MemStore) Query(f Filter, cursor string, limit int) ([]*artifact.Artifact, string, error) {
	limit = ClampLimit(limit)

	s.mu.RLock()
	ids := make([]string, 0, len(s.artifacts))
	for id := range s.artifacts {
		ids = append(ids, id)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))

	var items []*artifact.Artifact
	next := ""
	for _, id := range ids {
		if cursor != "" && id >= cursor {
			continue
		}
		a := s.artifacts[id]
		if !matches(a, f) {
			continue
		}
		if len(items) == limit {
			next = items[len(items)-1].ID
			break
		}
		cp := *a
		items = append(items, &cp)
	}
	s.mu.RUnlock()
	return items, next, nil
}

func (s *MemStore) PatchMeta(id string, updates map[string]any) (*artifact.Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.artifacts[id]
	if !ok {
		return nil, ErrNotFound
	}
	if a.Meta == nil {
		a.Meta = make(map[string]any, len(updates))
	}
	for k, v := range updates {
		a.Meta[k] = v
	}
	cp := *a
	return &cp, nil
}

func matches(a *artifact.Artifact, f Filter) bool {
	im := a.IndexMeta
	get := func(k string) string {
		if im == nil {
			return ""
		}
		return im[k]
	}
	switch {
	case f.Kind != "" && a.Kind != f.Kind:
		return false
	case f.Status != "" && string(a.Status) != f.Status:
		return false
	case f.ToolID != "" && get(artifact.MetaToolID) != f.ToolID:
		return false
	case f.MaterialID != "" && get(artifact.MetaMaterialID) != f.MaterialID:
		return false
	case f.SessionID != "" && get(artifact.MetaSessionID) != f.SessionID:
		return false
	case f.ParentSpecID != "" && get(artifact.MetaParentSpec) != f.ParentSpecID:
		return false
	case f.ParentPlanID != "" && get(artifact.MetaParentPlan) != f.ParentPlanID:
		return false
	case f.ParentDecisionID != "" && get(artifact.MetaParentDecide) != f.ParentDecisionID:
		return false
	case f.ParentExecutionID != "" && get(artifact.MetaParentExec) != f.ParentExecutionID:
		return false
	}
	return true
}

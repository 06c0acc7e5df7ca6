package pipeline

import (
	"chamfer/internal/artifact"
	"chamfer/internal/hashing"
	"chamfer/internal/machining"
	"chamfer/internal/store"
)

// SpecRequest is the raw design intent as submitted. No scoring happens at
// SPEC time; the request is validated structurally and recorded verbatim.
type SpecRequest struct {
	SessionID  string                `json:"session_id"`
	BatchLabel string                `json:"batch_label,omitempty"`
	Operations []machining.Operation `json:"operations"`
}

// specPayload is what a SPEC artifact carries.
type specPayload struct {
	SessionID  string                `json:"session_id"`
	BatchLabel string                `json:"batch_label,omitempty"`
	Operations []machining.Operation `json:"operations"`
}

// CreateSpec validates and persists the design intent. Always written with
// status OK: SPEC records what was asked for, not whether it is feasible.
func (s *Service) CreateSpec(req SpecRequest) (*artifact.Artifact, error) {
	if req.SessionID == "" {
		return nil, validationf("spec: session_id is required")
	}
	if len(req.Operations) == 0 {
		return nil, validationf("spec: at least one operation is required")
	}
	seen := make(map[string]bool, len(req.Operations))
	for i, op := range req.Operations {
		if op.ID == "" {
			return nil, validationf("spec: operation %d has empty op_id", i)
		}
		if seen[op.ID] {
			return nil, validationf("spec: duplicate op_id %q", op.ID)
		}
		seen[op.ID] = true
	}

	reqHash, err := hashing.Digest(req)
	if err != nil {
		return nil, err
	}
	payload, err := toMap(specPayload{
		SessionID:  req.SessionID,
		BatchLabel: req.BatchLabel,
		Operations: req.Operations,
	})
	if err != nil {
		return nil, err
	}

	a, err := s.store.Write(store.WriteRequest{
		Kind:        artifact.KindOpSpec,
		Stage:       artifact.StageSpec,
		Status:      artifact.StatusOK,
		IndexMeta:   specIndexMeta(req),
		Payload:     payload,
		RequestHash: reqHash,
	})
	if err != nil {
		return nil, err
	}
	s.event("spec_created", a.ID, req.SessionID, "")
	s.log.Info("spec recorded", "artifact", a.ID, "session", req.SessionID, "ops", len(req.Operations))
	return a, nil
}

// specIndexMeta duplicates the queryable ids out of the request. Tool and
// material come from the first operation; multi-op specs remain queryable
// by session.
func specIndexMeta(req SpecRequest) map[string]string {
	im := map[string]string{
		artifact.MetaSessionID: req.SessionID,
	}
	if req.BatchLabel != "" {
		im[artifact.MetaBatchLabel] = req.BatchLabel
	}
	if len(req.Operations) > 0 {
		first := req.Operations[0]
		im[artifact.MetaToolID] = first.Context.ToolID
		im[artifact.MetaMaterialID] = first.Design.MaterialID
		im[artifact.MetaMachineID] = first.Context.MachineID
	}
	return im
}

// loadSpec reads a SPEC artifact back into its typed payload.
func (s *Service) loadSpec(id string) (*artifact.Artifact, *specPayload, error) {
	a, err := s.store.Get(id)
	if err != nil {
		return nil, nil, err
	}
	if a.Stage != artifact.StageSpec {
		return nil, nil, validationf("artifact %s is a %s artifact, not SPEC", id, a.Stage)
	}
	var p specPayload
	if err := fromPayload(a.Payload, &p); err != nil {
		return nil, nil, err
	}
	return a, &p, nil
}

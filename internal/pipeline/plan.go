package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"chamfer/internal/artifact"
	"chamfer/internal/feasibility"
	"chamfer/internal/hashing"
	"chamfer/internal/machining"
	"chamfer/internal/store"
)

// OpPlan is one candidate operation with its plan-time feasibility verdict.
type OpPlan struct {
	Op          machining.Operation        `json:"op"`
	Feasibility artifact.FeasibilityResult `json:"feasibility"`
}

// planPayload is what a PLAN artifact carries.
type planPayload struct {
	SessionID string     `json:"session_id"`
	Ops       []OpPlan   `json:"ops"`
	Summary   planSummary `json:"summary"`
}

type planSummary struct {
	Score      float64             `json:"score"`
	RiskBucket artifact.RiskBucket `json:"risk_bucket"`
	OpCount    int                 `json:"op_count"`
}

// CreatePlan scores every candidate operation of a SPEC and persists the
// plan. Operations score independently, so they run concurrently; plan-level
// risk is the worst case over the per-op buckets: a single RED operation
// makes the whole plan RED.
func (s *Service) CreatePlan(ctx context.Context, specID string) (*artifact.Artifact, error) {
	specArt, spec, err := s.loadSpec(specID)
	if err != nil {
		return nil, err
	}

	ops := make([]OpPlan, len(spec.Operations))
	g, _ := errgroup.WithContext(ctx)
	for i, op := range spec.Operations {
		g.Go(func() error {
			ops[i] = OpPlan{Op: op, Feasibility: s.engine.Evaluate(op)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var scoreSum float64
	buckets := make([]artifact.RiskBucket, 0, len(ops))
	for _, p := range ops {
		scoreSum += p.Feasibility.Score
		buckets = append(buckets, p.Feasibility.RiskBucket)
	}
	summary := planSummary{
		Score:      scoreSum / float64(len(ops)),
		RiskBucket: feasibility.WorstCase(buckets...),
		OpCount:    len(ops),
	}

	reqHash, err := hashing.Digest(spec.Operations)
	if err != nil {
		return nil, err
	}
	payload, err := toMap(planPayload{
		SessionID: spec.SessionID,
		Ops:       ops,
		Summary:   summary,
	})
	if err != nil {
		return nil, err
	}

	im := cloneIndexMeta(specArt.IndexMeta)
	im[artifact.MetaParentSpec] = specArt.ID

	a, err := s.store.Write(store.WriteRequest{
		Kind:        artifact.KindOpPlan,
		Stage:       artifact.StagePlan,
		Status:      artifact.StatusOK,
		IndexMeta:   im,
		Payload:     payload,
		RequestHash: reqHash,
	})
	if err != nil {
		return nil, err
	}
	s.event("plan_created", a.ID, spec.SessionID,
		string(summary.RiskBucket))
	s.log.Info("plan scored", "artifact", a.ID, "spec", specArt.ID,
		"score", summary.Score, "risk", summary.RiskBucket)
	return a, nil
}

// loadPlan reads a PLAN artifact back into its typed payload.
func (s *Service) loadPlan(id string) (*artifact.Artifact, *planPayload, error) {
	a, err := s.store.Get(id)
	if err != nil {
		return nil, nil, err
	}
	if a.Stage != artifact.StagePlan {
		return nil, nil, validationf("artifact %s is a %s artifact, not PLAN", id, a.Stage)
	}
	var p planPayload
	if err := fromPayload(a.Payload, &p); err != nil {
		return nil, nil, err
	}
	return a, &p, nil
}

func cloneIndexMeta(m map[string]string) map[string]string {
	out := make(map[string]string, len(m)+2)
	for k, v := range m {
		out[k] = v
	}
	return out
}

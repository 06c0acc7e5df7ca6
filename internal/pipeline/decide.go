package pipeline

import (
	"chamfer/internal/artifact"
	"chamfer/internal/hashing"
	"chamfer/internal/store"
)

// DecisionRequest records the operator's verdict over a PLAN: approve with a
// chosen execution order (a subset or permutation of the plan's operations),
// or reject.
type DecisionRequest struct {
	PlanArtifactID string   `json:"plan_artifact_id"`
	Approve        bool     `json:"approve"`
	ChosenOrder    []string `json:"chosen_order,omitempty"`
	Operator       string   `json:"operator"`
	Note           string   `json:"note,omitempty"`
}

// decisionPayload is what a DECISION artifact carries.
type decisionPayload struct {
	SessionID   string   `json:"session_id"`
	Approve     bool     `json:"approve"`
	ChosenOrder []string `json:"chosen_order,omitempty"`
	Operator    string   `json:"operator"`
	Note        string   `json:"note,omitempty"`
}

// Decide persists the human-in-the-loop verdict. This is the only stage with
// an operator in the loop; EXECUTE still re-verifies everything.
func (s *Service) Decide(req DecisionRequest) (*artifact.Artifact, error) {
	if req.Operator == "" {
		return nil, validationf("decision: operator is required")
	}
	planArt, plan, err := s.loadPlan(req.PlanArtifactID)
	if err != nil {
		return nil, err
	}

	if req.Approve {
		if len(req.ChosenOrder) == 0 {
			return nil, validationf("decision: approval requires a chosen execution order")
		}
		known := make(map[string]bool, len(plan.Ops))
		for _, p := range plan.Ops {
			known[p.Op.ID] = true
		}
		seen := make(map[string]bool, len(req.ChosenOrder))
		for _, opID := range req.ChosenOrder {
			if !known[opID] {
				return nil, validationf("decision: op %q is not in plan %s", opID, planArt.ID)
			}
			if seen[opID] {
				return nil, validationf("decision: op %q listed twice", opID)
			}
			seen[opID] = true
		}
	}

	status := artifact.StatusApproved
	if !req.Approve {
		status = artifact.StatusRejected
	}

	reqHash, err := hashing.Digest(req)
	if err != nil {
		return nil, err
	}
	payload, err := toMap(decisionPayload{
		SessionID:   plan.SessionID,
		Approve:     req.Approve,
		ChosenOrder: req.ChosenOrder,
		Operator:    req.Operator,
		Note:        req.Note,
	})
	if err != nil {
		return nil, err
	}

	im := cloneIndexMeta(planArt.IndexMeta)
	im[artifact.MetaParentPlan] = planArt.ID

	a, err := s.store.Write(store.WriteRequest{
		Kind:        artifact.KindOpDecision,
		Stage:       artifact.StageDecision,
		Status:      status,
		IndexMeta:   im,
		Payload:     payload,
		RequestHash: reqHash,
	})
	if err != nil {
		return nil, err
	}
	s.event("decision_recorded", a.ID, plan.SessionID, string(status))
	s.log.Info("decision recorded", "artifact", a.ID, "plan", planArt.ID,
		"status", status, "operator", req.Operator)
	return a, nil
}

// loadDecision reads a DECISION artifact back into its typed payload.
func (s *Service) loadDecision(id string) (*artifact.Artifact, *decisionPayload, error) {
	a, err := s.store.Get(id)
	if err != nil {
		return nil, nil, err
	}
	if a.Stage != artifact.StageDecision {
		return nil, nil, validationf("artifact %s is a %s artifact, not DECISION", id, a.Stage)
	}
	var p decisionPayload
	if err := fromPayload(a.Payload, &p); err != nil {
		return nil, nil, err
	}
	return a, &p, nil
}

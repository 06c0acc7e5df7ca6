package pipeline

import (
	"context"
	"fmt"
	"time"

	"chamfer/internal/artifact"
	"chamfer/internal/drift"
	"chamfer/internal/gate"
	"chamfer/internal/hashing"
	"chamfer/internal/machining"
	"chamfer/internal/store"
)

// OpResult summarizes one operation's outcome inside an EXECUTE artifact.
type OpResult struct {
	OpID            string              `json:"op_id"`
	ChildArtifactID string              `json:"child_artifact_id"`
	Status          artifact.Status     `json:"status"`
	RiskBucket      artifact.RiskBucket `json:"risk_bucket"`
	Score           float64             `json:"score"`
	OutputHash      string              `json:"output_hash,omitempty"`
	Error           string              `json:"error,omitempty"`
}

// executePayload is what a parent EXECUTE artifact carries. The parent is
// written last and is the only record callers should treat as authoritative
// for "is this execution finished".
type executePayload struct {
	SessionID          string     `json:"session_id"`
	DecisionArtifactID string     `json:"decision_artifact_id"`
	OKCount            int        `json:"ok_count"`
	BlockedCount       int        `json:"blocked_count"`
	ErrorCount         int        `json:"error_count"`
	OpResults          []OpResult `json:"op_results"`
	IsRetry            bool       `json:"is_retry,omitempty"`
	RetryOf            string     `json:"retry_of,omitempty"`

	DriftDetected         bool     `json:"drift_detected,omitempty"`
	DriftSeverity         string   `json:"drift_severity,omitempty"`
	DriftPaths            []string `json:"drift_paths,omitempty"`
	OverrideNote          string   `json:"override_note,omitempty"`
	DriftRequiresOverride bool     `json:"drift_requires_override,omitempty"`
}

// opChildPayload is what one op_toolpaths child artifact carries.
type opChildPayload struct {
	SessionID   string                     `json:"session_id"`
	Op          machining.Operation        `json:"op"`
	Feasibility artifact.FeasibilityResult `json:"feasibility"`
	Decision    string                     `json:"decision"` // generated, blocked_by_safety_gate, generation_failed
	Attachments []artifact.Attachment      `json:"attachments,omitempty"`
	Output      string                     `json:"output,omitempty"` // inline only when no blob store is wired
	Error       string                     `json:"error,omitempty"`
}

// ExecuteResult is returned to the transport layer. Artifact is the parent
// EXECUTE summary; it is always persisted, whatever the outcome.
type ExecuteResult struct {
	Artifact *artifact.Artifact
	Children []*artifact.Artifact
	Payload  executePayload
}

// Blocked reports whether every operation was stopped by the safety gate.
func (r *ExecuteResult) Blocked() bool {
	p := r.Payload
	return p.BlockedCount > 0 && p.OKCount == 0 && p.ErrorCount == 0
}

// Execute runs the DECISION's chosen operations. Feasibility is recomputed
// from scratch per operation (plan-time or client-cached results are never
// trusted) and the safety gate is consulted before any output generation.
//
// A generation failure is captured into an ERROR child and an ERROR parent,
// then surfaced as a *GenerationError alongside the (persisted) result.
func (s *Service) Execute(ctx context.Context, decisionID string) (*ExecuteResult, error) {
	decisionArt, decision, err := s.loadDecision(decisionID)
	if err != nil {
		return nil, err
	}
	if decisionArt.Status != artifact.StatusApproved {
		return nil, validationf("decision %s is %s, not APPROVED", decisionID, decisionArt.Status)
	}

	ops, err := s.resolveOps(decisionArt, decision.ChosenOrder)
	if err != nil {
		return nil, err
	}
	return s.executeOps(ctx, decisionArt, decision, ops, "", "")
}

// resolveOps maps the chosen order back to operation definitions via the
// decision's parent PLAN. The parent pointer is a weak reference: a missing
// plan is a data-quality failure surfaced as an error, never a panic.
func (s *Service) resolveOps(decisionArt *artifact.Artifact, order []string) ([]machining.Operation, error) {
	planID := decisionArt.Parent(artifact.MetaParentPlan)
	if planID == "" {
		return nil, validationf("decision %s has no parent plan reference", decisionArt.ID)
	}
	_, plan, err := s.loadPlan(planID)
	if err != nil {
		return nil, fmt.Errorf("resolve plan %s for decision %s: %w", planID, decisionArt.ID, err)
	}
	byID := make(map[string]machining.Operation, len(plan.Ops))
	for _, p := range plan.Ops {
		byID[p.Op.ID] = p.Op
	}
	ops := make([]machining.Operation, 0, len(order))
	for _, opID := range order {
		op, ok := byID[opID]
		if !ok {
			return nil, validationf("op %q not present in plan %s", opID, planID)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// executeOps is the shared EXECUTE engine for first runs and retries.
// The parent artifact id is allocated up front so children can reference it;
// the parent record itself is written last.
func (s *Service) executeOps(ctx context.Context, decisionArt *artifact.Artifact,
	decision *decisionPayload, ops []machining.Operation, retryOf, overrideNote string,
) (*ExecuteResult, error) {
	parentID := store.NewArtifactID(time.Now().UTC())

	payload := executePayload{
		SessionID:          decision.SessionID,
		DecisionArtifactID: decisionArt.ID,
		IsRetry:            retryOf != "",
		RetryOf:            retryOf,
		OverrideNote:       overrideNote,
	}
	var children []*artifact.Artifact
	var genFailure *GenerationError

	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		child, res := s.executeOne(decision.SessionID, decisionArt, parentID, op)
		children = append(children, child)
		payload.OpResults = append(payload.OpResults, res)
		switch res.Status {
		case artifact.StatusOK:
			payload.OKCount++
		case artifact.StatusBlocked:
			payload.BlockedCount++
			s.event("op_blocked", child.ID, decision.SessionID, op.ID)
		case artifact.StatusError:
			payload.ErrorCount++
			s.event("op_error", child.ID, decision.SessionID, res.Error)
			if genFailure == nil {
				genFailure = &GenerationError{OpID: op.ID, Err: fmt.Errorf("%s", res.Error)}
			}
		}
	}

	status := artifact.StatusOK
	switch {
	case payload.ErrorCount > 0:
		status = artifact.StatusError
	case payload.BlockedCount == len(ops) && len(ops) > 0:
		status = artifact.StatusBlocked
	}

	if retryOf != "" {
		status = s.applyReplayGate(&payload, children, retryOf, status)
	}

	payloadMap, err := toMap(payload)
	if err != nil {
		return nil, err
	}
	im := cloneIndexMeta(decisionArt.IndexMeta)
	im[artifact.MetaParentDecide] = decisionArt.ID
	if retryOf != "" {
		im[artifact.MetaIsRetry] = "true"
		im[artifact.MetaRetryOf] = retryOf
	}
	reqHash, err := hashing.Digest(ops)
	if err != nil {
		return nil, err
	}

	parent, err := s.store.Write(store.WriteRequest{
		ID:          parentID,
		Kind:        artifact.KindOpExecution,
		Stage:       artifact.StageExecute,
		Status:      status,
		IndexMeta:   im,
		Payload:     payloadMap,
		RequestHash: reqHash,
	})
	if err != nil {
		// Store unavailable for the summary write is fatal: the attempt
		// must be durably recorded.
		return nil, fmt.Errorf("persist execution summary: %w", err)
	}
	s.event("execution_finished", parent.ID, decision.SessionID, string(status))
	s.log.Info("execution finished", "artifact", parent.ID,
		"ok", payload.OKCount, "blocked", payload.BlockedCount, "errors", payload.ErrorCount,
		"status", status)

	result := &ExecuteResult{Artifact: parent, Children: children, Payload: payload}
	if genFailure != nil {
		return result, genFailure
	}
	return result, nil
}

// executeOne re-verifies and (gate permitting) generates output for a single
// operation, persisting exactly one child artifact whatever happens.
func (s *Service) executeOne(sessionID string, decisionArt *artifact.Artifact,
	parentExecID string, op machining.Operation,
) (*artifact.Artifact, OpResult) {
	feas := s.engine.Evaluate(op)
	reqHash, err := hashing.Digest(op)
	if err != nil {
		s.log.Warn("hashing op request failed, storing empty hash", "op", op.ID, "error", err)
		reqHash = ""
	}

	child := opChildPayload{
		SessionID:   sessionID,
		Op:          op,
		Feasibility: feas,
	}
	res := OpResult{
		OpID:       op.ID,
		RiskBucket: feas.RiskBucket,
		Score:      feas.Score,
	}

	var status artifact.Status
	var outputHash string

	if s.policy.ShouldBlock(feas.RiskBucket) {
		status = artifact.StatusBlocked
		child.Decision = "blocked_by_safety_gate"
	} else {
		output, err := s.gen.Generate(op)
		if err != nil {
			status = artifact.StatusError
			child.Decision = "generation_failed"
			child.Error = err.Error()
			res.Error = err.Error()
		} else {
			status = artifact.StatusOK
			child.Decision = "generated"
			outputHash = hashing.DigestText(output)
			if s.blobs != nil {
				att, _, blobErr := s.blobs.Put([]byte(output), "toolpath", "text/plain", op.ID+".nc")
				if blobErr != nil {
					s.log.Warn("blob write failed, inlining output", "op", op.ID, "error", blobErr)
					child.Output = output
				} else {
					child.Attachments = []artifact.Attachment{att}
				}
			} else {
				child.Output = output
			}
		}
	}

	res.Status = status
	res.OutputHash = outputHash

	childMap, err := toMap(child)
	if err != nil {
		childMap = map[string]any{"op_id": op.ID, "encode_error": err.Error()}
	}
	im := cloneIndexMeta(decisionArt.IndexMeta)
	im[artifact.MetaParentDecide] = decisionArt.ID
	im[artifact.MetaParentExec] = parentExecID
	im[artifact.MetaOpID] = op.ID
	im[artifact.MetaToolID] = op.Context.ToolID
	im[artifact.MetaMaterialID] = op.Design.MaterialID
	im[artifact.MetaMachineID] = op.Context.MachineID

	childArt, werr := s.store.Write(store.WriteRequest{
		Kind:        artifact.KindOpToolpaths,
		Stage:       artifact.StageExecute,
		Status:      status,
		IndexMeta:   im,
		Payload:     childMap,
		RequestHash: reqHash,
		OutputHash:  outputHash,
	})
	if werr != nil {
		// Child record loss is not silently tolerated: degrade the result
		// to ERROR so the parent summary records the persistence failure.
		s.log.Error("persist op artifact failed", "op", op.ID, "error", werr)
		res.Status = artifact.StatusError
		res.Error = fmt.Sprintf("persist op artifact: %v", werr)
		return &artifact.Artifact{ID: "", Kind: artifact.KindOpToolpaths}, res
	}
	res.ChildArtifactID = childArt.ID
	return childArt, res
}

// applyReplayGate compares retry children against the original execution's
// children and folds the replay policy into the parent status: in block
// mode a drifted retry without its required override note is BLOCKED; in
// soft_block mode drift is recorded but never blocks.
func (s *Service) applyReplayGate(payload *executePayload, children []*artifact.Artifact,
	retryOf string, status artifact.Status,
) artifact.Status {
	originals, _, err := s.store.Query(store.Filter{
		Kind:              artifact.KindOpToolpaths,
		ParentExecutionID: retryOf,
	}, "", store.MaxLimit)
	if err != nil {
		s.log.Warn("replay gate: cannot load original children", "retry_of", retryOf, "error", err)
		return status
	}
	byOp := make(map[string]*artifact.Artifact, len(originals))
	for _, o := range originals {
		byOp[o.IndexMeta[artifact.MetaOpID]] = o
	}

	worst := drift.SeverityInfo
	for _, c := range children {
		orig, ok := byOp[c.IndexMeta[artifact.MetaOpID]]
		if !ok {
			// Original child missing: data-quality warning, not fatal.
			s.log.Warn("replay gate: no original artifact for op",
				"op", c.IndexMeta[artifact.MetaOpID], "retry_of", retryOf)
			continue
		}
		report := drift.Diff(orig, c)
		if !report.Drift() {
			continue
		}
		payload.DriftDetected = true
		payload.DriftPaths = append(payload.DriftPaths, report.ChangedPaths...)
		if severityRank(report.Severity) > severityRank(worst) {
			worst = report.Severity
		}
	}
	if !payload.DriftDetected {
		return status
	}
	payload.DriftSeverity = string(worst)
	payload.DriftRequiresOverride = s.policy.DriftRequiresOverride(true, payload.OverrideNote)

	if s.policy.Mode == gate.ModeBlock && payload.DriftRequiresOverride {
		s.log.Warn("replay gate: drift without override note, blocking",
			"retry_of", retryOf, "severity", worst)
		return artifact.StatusBlocked
	}
	return status
}

func severityRank(sev drift.Severity) int {
	switch sev {
	case drift.SeverityCritical:
		return 2
	case drift.SeverityWarning:
		return 1
	default:
		return 0
	}
}

// Retry re-runs a subset of an execution's operations (defaulting to the
// previously blocked or errored ones) as a new EXECUTE artifact referencing
// the same DECISION. The original execution is never mutated.
func (s *Service) Retry(ctx context.Context, executionID string, opIDs []string, overrideNote string) (*ExecuteResult, error) {
	execArt, err := s.store.Get(executionID)
	if err != nil {
		return nil, err
	}
	if execArt.Kind != artifact.KindOpExecution {
		return nil, validationf("artifact %s is %s, not an execution", executionID, execArt.Kind)
	}
	var execPayload executePayload
	if err := fromPayload(execArt.Payload, &execPayload); err != nil {
		return nil, err
	}

	if len(opIDs) == 0 {
		for _, r := range execPayload.OpResults {
			if r.Status == artifact.StatusBlocked || r.Status == artifact.StatusError {
				opIDs = append(opIDs, r.OpID)
			}
		}
	}
	if len(opIDs) == 0 {
		return nil, validationf("execution %s has no blocked or errored ops to retry", executionID)
	}
	known := make(map[string]bool, len(execPayload.OpResults))
	for _, r := range execPayload.OpResults {
		known[r.OpID] = true
	}
	for _, id := range opIDs {
		if !known[id] {
			return nil, validationf("op %q was not part of execution %s", id, executionID)
		}
	}

	decisionArt, decision, err := s.loadDecision(execPayload.DecisionArtifactID)
	if err != nil {
		return nil, fmt.Errorf("resolve decision for retry of %s: %w", executionID, err)
	}
	ops, err := s.resolveOps(decisionArt, opIDs)
	if err != nil {
		return nil, err
	}
	result, err := s.executeOps(ctx, decisionArt, decision, ops, executionID, overrideNote)
	if result != nil {
		s.event("execution_retried", result.Artifact.ID, decision.SessionID, executionID)
	}
	return result, err
}

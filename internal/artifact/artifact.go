// Package artifact defines the immutable record types the governance
// pipeline persists: one Artifact per pipeline-stage invocation, plus the
// feasibility structures embedded in their payloads.
//
// Rule: an artifact is written once and never edited. The only mutable
// surface is the free-form Meta map, patched through the store.
package artifact

import "time"

// Stage is the pipeline stage an artifact belongs to.
type Stage string

const (
	StageSpec     Stage = "SPEC"
	StagePlan     Stage = "PLAN"
	StageDecision Stage = "DECISION"
	StageExecute  Stage = "EXECUTE"
)

// Status is the outcome recorded on an artifact.
type Status string

const (
	StatusCreated  Status = "CREATED"
	StatusOK       Status = "OK"
	StatusBlocked  Status = "BLOCKED"
	StatusError    Status = "ERROR"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// Artifact kinds written by the pipeline.
const (
	KindOpSpec      = "op_spec"
	KindOpPlan      = "op_plan"
	KindOpDecision  = "op_decision"
	KindOpExecution = "op_execution"
	KindOpToolpaths = "op_toolpaths"
)

// Index-meta keys. These are duplicated from the payload so the store can
// filter without unmarshalling payloads.
const (
	MetaToolID       = "tool_id"
	MetaMaterialID   = "material_id"
	MetaMachineID    = "machine_id"
	MetaSessionID    = "session_id"
	MetaBatchLabel   = "batch_label"
	MetaOpID         = "op_id"
	MetaParentSpec   = "parent_spec_artifact_id"
	MetaParentPlan   = "parent_plan_artifact_id"
	MetaParentDecide = "parent_decision_artifact_id"
	MetaParentExec   = "parent_execution_artifact_id"
	MetaIsRetry      = "is_retry"
	MetaRetryOf      = "retry_of"
)

// Artifact is one immutable pipeline record.
//
// Lineage pointers live in IndexMeta as artifact-id strings. They are weak
// references: the store never enforces that a parent exists, and consumers
// must treat a missing parent as a data-quality warning, not a crash.
type Artifact struct {
	ID          string            `json:"id"`
	Kind        string            `json:"kind"`
	Stage       Stage             `json:"stage"`
	Status      Status            `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	IndexMeta   map[string]string `json:"index_meta,omitempty"`
	Payload     map[string]any    `json:"payload"`
	RequestHash string            `json:"request_hash,omitempty"`
	OutputHash  string            `json:"output_hash,omitempty"`
	// Meta is the only field that may change after write (PatchMeta).
	Meta map[string]any `json:"meta,omitempty"`
}

// Parent returns the lineage pointer stored under key, or "" if absent.
func (a *Artifact) Parent(key string) string {
	if a.IndexMeta == nil {
		return ""
	}
	return a.IndexMeta[key]
}

// RiskBucket is the coarse safety classification of a score.
type RiskBucket string

const (
	RiskGreen   RiskBucket = "GREEN"
	RiskYellow  RiskBucket = "YELLOW"
	RiskRed     RiskBucket = "RED"
	RiskUnknown RiskBucket = "UNKNOWN"
)

// CalculatorResult is one calculator's verdict on one operation.
type CalculatorResult struct {
	Name     string         `json:"name"`
	Score    float64        `json:"score"` // 0-100
	Warning  string         `json:"warning,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// FeasibilityResult is the aggregated verdict over all calculators.
type FeasibilityResult struct {
	Score             float64                     `json:"score"` // 0-100 weighted mean
	RiskBucket        RiskBucket                  `json:"risk_bucket"`
	Warnings          []string                    `json:"warnings,omitempty"`
	CalculatorResults map[string]CalculatorResult `json:"calculator_results"`
	Efficiency        float64                     `json:"efficiency"`
	EstimatedDuration float64                     `json:"estimated_duration_min"`
}

// Attachment is content-addressed blob metadata. Two attachments with the
// same content share one stored blob (dedup by digest).
type Attachment struct {
	SHA256    string    `json:"sha256"`
	Kind      string    `json:"kind"`
	MIME      string    `json:"mime"`
	Filename  string    `json:"filename"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// Package display provides human-readable names for machine codes.
//
// Rule: code is for machines, words are for humans.
// Use these functions in CLI output and logs. Keep raw codes for JSON
// fields, map keys, and equality comparisons.
package display

import "strings"

// --- Risk Buckets ---

var riskBuckets = map[string]string{
	"GREEN":   "Proceed",
	"YELLOW":  "Caution",
	"RED":     "Do Not Run",
	"UNKNOWN": "Unscored",
}

// RiskBucket returns the human-readable name for a risk bucket.
// Unknown codes are returned as-is.
func RiskBucket(code string) string {
	if name, ok := riskBuckets[code]; ok {
		return name
	}
	return code
}

// RiskBucketWithCode returns "Do Not Run (RED)" format.
func RiskBucketWithCode(code string) string {
	if name, ok := riskBuckets[code]; ok {
		return name + " (" + code + ")"
	}
	return code
}

// --- Artifact Kinds ---

var kinds = map[string]string{
	"op_spec":      "Design Intent",
	"op_plan":      "Scored Plan",
	"op_decision":  "Operator Decision",
	"op_execution": "Execution Summary",
	"op_toolpaths": "Toolpath Output",
}

// Kind returns the human-readable name for an artifact kind.
func Kind(code string) string {
	if name, ok := kinds[code]; ok {
		return name
	}
	return code
}

// --- Statuses ---

var statuses = map[string]string{
	"CREATED":  "Created",
	"OK":       "Succeeded",
	"BLOCKED":  "Blocked by Gate",
	"ERROR":    "Failed",
	"APPROVED": "Approved",
	"REJECTED": "Rejected",
}

// Status returns the human-readable name for an artifact status.
func Status(code string) string {
	if name, ok := statuses[code]; ok {
		return name
	}
	return code
}

// --- Stages ---

var stages = map[string]string{
	"SPEC":     "Intent",
	"PLAN":     "Scoring",
	"DECISION": "Approval",
	"EXECUTE":  "Execution",
}

// Stage returns the human-readable name for a pipeline stage code.
func Stage(code string) string {
	if name, ok := stages[code]; ok {
		return name
	}
	return code
}

// StagePath converts a slice of stage codes to a human-readable path.
// ["SPEC", "PLAN"] -> "Intent -> Scoring"
func StagePath(codes []string) string {
	names := make([]string, len(codes))
	for i, c := range codes {
		names[i] = Stage(c)
	}
	return strings.Join(names, " → ")
}

// --- Calculators ---

var calculators = map[string]string{
	"chip_load":        "Chip Load",
	"spindle_power":    "Spindle Power",
	"tool_deflection":  "Tool Deflection",
	"fixture_clamping": "Fixture Clamping",
	"surface_speed":    "Surface Speed",
}

// Calculator returns the human-readable name for a feasibility calculator.
func Calculator(name string) string {
	if n, ok := calculators[name]; ok {
		return n
	}
	return name
}

// --- Drift Severities ---

var severities = map[string]string{
	"INFO":     "Informational",
	"WARNING":  "Review Advised",
	"CRITICAL": "Requires Override",
}

// Severity returns the human-readable name for a drift severity.
func Severity(code string) string {
	if name, ok := severities[code]; ok {
		return name
	}
	return code
}

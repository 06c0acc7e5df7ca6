// Package drift compares two artifacts field by field and classifies how
// dangerous the differences are. Used by the comparison API/CLI and by the
// replay gate: a drifted replay may require an operator override before it
// is accepted.
package drift

import (
	"fmt"
	"sort"

	"github.com/google/go-cmp/cmp"

	"chamfer/internal/artifact"
)

// Severity ranks a diff. The rule is asymmetric on purpose: a changed output
// hash or risk classification is operationally dangerous even when
// everything else is byte-identical.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Change records one differing field.
type Change struct {
	Path string `json:"path"`
	A    any    `json:"a"`
	B    any    `json:"b"`
}

// Report is the structured result of comparing two artifacts.
type Report struct {
	ChangedPaths []string `json:"changed_paths"`
	Changes      []Change `json:"structured_diff"`
	Severity     Severity `json:"severity"`
}

// Drift reports whether anything differed at all.
func (r Report) Drift() bool { return len(r.ChangedPaths) > 0 }

// Paths that escalate severity when changed.
var (
	criticalPaths = map[string]bool{
		"output_hash": true,
		"risk_bucket": true,
		"status":      true,
	}
	warningPaths = map[string]bool{
		"request_hash": true,
		"score":        true,
	}
)

// Payload keys the comparison handles explicitly; everything else in the
// payload is diffed generically by key.
var handledPayloadKeys = map[string]bool{
	"feasibility":   true,
	"attachments":   true,
	"geometry_hash": true,
}

// Diff compares a against b. Nothing changed yields INFO with an empty path
// list.
func Diff(a, b *artifact.Artifact) Report {
	var changes []Change
	add := func(path string, av, bv any) {
		if !cmp.Equal(av, bv) {
			changes = append(changes, Change{Path: path, A: av, B: bv})
		}
	}

	// Identity.
	add("kind", a.Kind, b.Kind)
	add("status", string(a.Status), string(b.Status))

	// Context ids.
	for _, key := range []string{
		artifact.MetaToolID,
		artifact.MetaMaterialID,
		artifact.MetaMachineID,
		artifact.MetaSessionID,
	} {
		add(key, indexVal(a, key), indexVal(b, key))
	}

	// Provenance hashes.
	add("request_hash", a.RequestHash, b.RequestHash)
	add("output_hash", a.OutputHash, b.OutputHash)
	add("geometry_hash", payloadVal(a, "geometry_hash"), payloadVal(b, "geometry_hash"))

	// Feasibility sub-fields.
	add("risk_bucket", feasibilityVal(a, "risk_bucket"), feasibilityVal(b, "risk_bucket"))
	add("score", feasibilityVal(a, "score"), feasibilityVal(b, "score"))

	// Attachments: normalized by digest+kind, order-independent.
	add("attachments", normalizedAttachments(a), normalizedAttachments(b))

	// Everything else in the payload, by top-level key.
	for _, key := range payloadKeyUnion(a, b) {
		if handledPayloadKeys[key] {
			continue
		}
		add(key, payloadVal(a, key), payloadVal(b, key))
	}

	paths := make([]string, 0, len(changes))
	for _, c := range changes {
		paths = append(paths, c.Path)
	}
	return Report{
		ChangedPaths: paths,
		Changes:      changes,
		Severity:     classify(paths),
	}
}

func classify(paths []string) Severity {
	severity := SeverityInfo
	for _, p := range paths {
		if criticalPaths[p] {
			return SeverityCritical
		}
		if warningPaths[p] {
			severity = SeverityWarning
		}
	}
	return severity
}

func indexVal(a *artifact.Artifact, key string) string {
	if a.IndexMeta == nil {
		return ""
	}
	return a.IndexMeta[key]
}

func payloadVal(a *artifact.Artifact, key string) any {
	if a.Payload == nil {
		return nil
	}
	return a.Payload[key]
}

func feasibilityVal(a *artifact.Artifact, field string) any {
	feas, ok := payloadVal(a, "feasibility").(map[string]any)
	if !ok {
		return nil
	}
	return feas[field]
}

// normalizedAttachments reduces an attachment list to a sorted digest+kind
// set so ordering differences never register as drift.
func normalizedAttachments(a *artifact.Artifact) []string {
	raw, ok := payloadVal(a, "attachments").([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, fmt.Sprintf("%v:%v", m["sha256"], m["kind"]))
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}

func payloadKeyUnion(a, b *artifact.Artifact) []string {
	set := map[string]bool{}
	for k := range a.Payload {
		set[k] = true
	}
	for k := range b.Payload {
		set[k] = true
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

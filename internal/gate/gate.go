// Package gate is the single choke point deciding whether a risk
// classification blocks execution and whether detected drift demands an
// operator override. Policy is configuration, read once per process, and
// immutable afterwards.
package gate

import (
	"fmt"
	"strings"

	"chamfer/internal/artifact"
)

// Mode is the replay-gate behavior on detected drift.
type Mode string

const (
	// ModeBlock rejects drifted replays outright.
	ModeBlock Mode = "block"
	// ModeSoftBlock lets drifted replays pass once an override note is on
	// record (when the policy requires one).
	ModeSoftBlock Mode = "soft_block"
)

// ParseMode validates a configured mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case ModeBlock:
		return ModeBlock, nil
	case ModeSoftBlock:
		return ModeSoftBlock, nil
	default:
		return "", fmt.Errorf("invalid gate mode %q (want block or soft_block)", s)
	}
}

// Policy is the process-lifetime safety configuration.
type Policy struct {
	Mode Mode
	// RequireOverrideNote: drifted replays need a non-empty operator note.
	RequireOverrideNote bool
}

// DefaultPolicy blocks hard and demands override notes.
func DefaultPolicy() Policy {
	return Policy{Mode: ModeBlock, RequireOverrideNote: true}
}

// ShouldBlock reports whether a risk bucket blocks execution. RED and
// UNKNOWN block; GREEN and YELLOW pass. Every execution path must consult
// this before producing output; client-supplied approvals never bypass it.
func (p Policy) ShouldBlock(bucket artifact.RiskBucket) bool {
	switch bucket {
	case artifact.RiskRed, artifact.RiskUnknown:
		return true
	default:
		return false
	}
}

// DriftRequiresOverride reports whether a detected drift is missing its
// required operator note. False whenever there is no drift, the policy does
// not require notes, or a non-empty note was supplied.
func (p Policy) DriftRequiresOverride(driftDetected bool, overrideNote string) bool {
	if !driftDetected || !p.RequireOverrideNote {
		return false
	}
	return strings.TrimSpace(overrideNote) == ""
}

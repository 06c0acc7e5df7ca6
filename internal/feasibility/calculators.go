package feasibility

import (
	"fmt"
	"math"

	"chamfer/internal/artifact"
	"chamfer/internal/machining"
)

// DefaultWeights is the fixed per-calculator weight table. Weights sum to 1.0.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		"chip_load":        0.25,
		"spindle_power":    0.25,
		"tool_deflection":  0.20,
		"fixture_clamping": 0.15,
		"surface_speed":    0.15,
	}
}

// DefaultCalculators is the fixed production registry, in evaluation order.
func DefaultCalculators() []Calculator {
	return []Calculator{
		ChipLoadCalculator{},
		SpindlePowerCalculator{},
		ToolDeflectionCalculator{},
		FixtureClampingCalculator{},
		SurfaceSpeedCalculator{},
	}
}

// bandScore maps a value against a recommended [lo, hi] band: 100 inside,
// falling off linearly to 0 at 3x outside the band on either side.
func bandScore(v, lo, hi float64) float64 {
	if lo > hi {
		lo, hi = hi, lo
	}
	if v >= lo && v <= hi {
		return 100
	}
	var excess, span float64
	if v < lo {
		excess = lo - v
		span = lo
	} else {
		excess = v - hi
		span = 2 * hi
	}
	if span <= 0 {
		return 0
	}
	score := 100 * (1 - excess/span)
	return math.Max(0, score)
}

// ratioScore maps a utilization ratio (needed/available): 100 below safe,
// dropping to 0 at the hard ceiling.
func ratioScore(ratio, safe, ceiling float64) float64 {
	if ratio <= safe {
		return 100
	}
	if ratio >= ceiling {
		return 0
	}
	return 100 * (ceiling - ratio) / (ceiling - safe)
}

// ChipLoadCalculator checks feed per tooth against the material's
// recommended band (scaled by tool diameter).
type ChipLoadCalculator struct{}

func (ChipLoadCalculator) Name() string { return "chip_load" }

func (ChipLoadCalculator) Calculate(op machining.Operation) (artifact.CalculatorResult, error) {
	ctx := op.Context
	if ctx.SpindleRPM <= 0 || ctx.FluteCount <= 0 || ctx.ToolDiameter <= 0 {
		return artifact.CalculatorResult{}, fmt.Errorf("invalid context: rpm=%v flutes=%d dia=%v",
			ctx.SpindleRPM, ctx.FluteCount, ctx.ToolDiameter)
	}
	mat, ok := machining.MaterialByID(op.Design.MaterialID)
	if !ok {
		return artifact.CalculatorResult{}, fmt.Errorf("unknown material %q", op.Design.MaterialID)
	}
	load := ctx.ChipLoad()
	lo := mat.ChipLoadPerDiaMin * ctx.ToolDiameter
	hi := mat.ChipLoadPerDiaMax * ctx.ToolDiameter
	score := bandScore(load, lo, hi)

	res := artifact.CalculatorResult{
		Name:  "chip_load",
		Score: score,
		Metadata: map[string]any{
			"chip_load_mm": load,
			"band_lo_mm":   lo,
			"band_hi_mm":   hi,
		},
	}
	if load < lo {
		res.Warning = fmt.Sprintf("chip load %.4fmm below recommended %.4fmm: rubbing, work hardening risk", load, lo)
	} else if load > hi {
		res.Warning = fmt.Sprintf("chip load %.4fmm above recommended %.4fmm: tooth breakage risk", load, hi)
	}
	return res, nil
}

// SpindlePowerCalculator checks required cutting power against the machine's
// rated power.
type SpindlePowerCalculator struct{}

func (SpindlePowerCalculator) Name() string { return "spindle_power" }

func (SpindlePowerCalculator) Calculate(op machining.Operation) (artifact.CalculatorResult, error) {
	ctx := op.Context
	if ctx.MachinePowerKW <= 0 {
		return artifact.CalculatorResult{}, fmt.Errorf("machine power not set for %q", ctx.MachineID)
	}
	mat, ok := machining.MaterialByID(op.Design.MaterialID)
	if !ok {
		return artifact.CalculatorResult{}, fmt.Errorf("unknown material %q", op.Design.MaterialID)
	}
	// P = Kc * MRR; Kc in N/mm^2, MRR in mm^3/min -> kW.
	needed := mat.SpecificCuttingForce * ctx.MRR() / 60 / 1e6
	ratio := needed / ctx.MachinePowerKW
	score := ratioScore(ratio, 0.6, 1.0)

	res := artifact.CalculatorResult{
		Name:  "spindle_power",
		Score: score,
		Metadata: map[string]any{
			"required_kw":  needed,
			"available_kw": ctx.MachinePowerKW,
			"utilization":  ratio,
		},
	}
	if ratio >= 1.0 {
		res.Warning = fmt.Sprintf("required %.2fkW exceeds machine rating %.2fkW: spindle stall", needed, ctx.MachinePowerKW)
	} else if ratio > 0.6 {
		res.Warning = fmt.Sprintf("spindle at %.0f%% of rated power", ratio*100)
	}
	return res, nil
}

// ToolDeflectionCalculator scores the stickout-to-diameter ratio combined
// with cutting engagement. Long thin tools under heavy cuts chatter or snap.
type ToolDeflectionCalculator struct{}

func (ToolDeflectionCalculator) Name() string { return "tool_deflection" }

func (ToolDeflectionCalculator) Calculate(op machining.Operation) (artifact.CalculatorResult, error) {
	ctx := op.Context
	if ctx.ToolDiameter <= 0 {
		return artifact.CalculatorResult{}, fmt.Errorf("tool diameter not set for %q", ctx.ToolID)
	}
	stickout := ctx.Stickout
	if stickout <= 0 {
		stickout = 3 * ctx.ToolDiameter // conservative default holder stickout
	}
	// Cantilever deflection grows with (L/D)^3; engagement fraction scales
	// the load.
	ld := stickout / ctx.ToolDiameter
	engagement := 0.0
	if ctx.ToolDiameter > 0 {
		engagement = (ctx.DepthOfCut * ctx.WidthOfCut) / (ctx.ToolDiameter * ctx.ToolDiameter)
	}
	index := math.Pow(ld/3, 3) * math.Max(engagement, 0.05)
	score := ratioScore(index, 0.5, 2.5)

	res := artifact.CalculatorResult{
		Name:  "tool_deflection",
		Score: score,
		Metadata: map[string]any{
			"stickout_mm":      stickout,
			"l_over_d":         ld,
			"deflection_index": index,
		},
	}
	if score < yellowThreshold {
		res.Warning = fmt.Sprintf("deflection index %.2f for L/D %.1f: chatter or tool breakage likely", index, ld)
	}
	return res, nil
}

// FixtureClampingCalculator compares estimated cutting force with the
// fixture's holding force.
type FixtureClampingCalculator struct{}

func (FixtureClampingCalculator) Name() string { return "fixture_clamping" }

func (FixtureClampingCalculator) Calculate(op machining.Operation) (artifact.CalculatorResult, error) {
	ctx := op.Context
	if ctx.ClampForceN <= 0 {
		return artifact.CalculatorResult{}, fmt.Errorf("clamp force not set for session %q", ctx.SessionID)
	}
	mat, ok := machining.MaterialByID(op.Design.MaterialID)
	if !ok {
		return artifact.CalculatorResult{}, fmt.Errorf("unknown material %q", op.Design.MaterialID)
	}
	if ctx.ChipLoad() <= 0 {
		return artifact.CalculatorResult{}, fmt.Errorf("invalid context: chip load is zero")
	}
	// Tangential cutting force: Kc * chip cross-section (depth x feed/tooth).
	force := mat.SpecificCuttingForce * ctx.DepthOfCut * ctx.ChipLoad()
	ratio := 0.0
	if ctx.ClampForceN > 0 {
		ratio = force / ctx.ClampForceN
	}
	score := ratioScore(ratio, 0.3, 0.8)

	res := artifact.CalculatorResult{
		Name:  "fixture_clamping",
		Score: score,
		Metadata: map[string]any{
			"cutting_force_n": force,
			"clamp_force_n":   ctx.ClampForceN,
			"utilization":     ratio,
		},
	}
	if ratio >= 0.8 {
		res.Warning = fmt.Sprintf("cutting force %.0fN vs clamp %.0fN: part ejection risk", force, ctx.ClampForceN)
	}
	return res, nil
}

// SurfaceSpeedCalculator checks cutting speed against the material's
// recommended band.
type SurfaceSpeedCalculator struct{}

func (SurfaceSpeedCalculator) Name() string { return "surface_speed" }

func (SurfaceSpeedCalculator) Calculate(op machining.Operation) (artifact.CalculatorResult, error) {
	ctx := op.Context
	if ctx.ToolDiameter <= 0 || ctx.SpindleRPM <= 0 {
		return artifact.CalculatorResult{}, fmt.Errorf("invalid context: dia=%v rpm=%v", ctx.ToolDiameter, ctx.SpindleRPM)
	}
	mat, ok := machining.MaterialByID(op.Design.MaterialID)
	if !ok {
		return artifact.CalculatorResult{}, fmt.Errorf("unknown material %q", op.Design.MaterialID)
	}
	speed := ctx.SurfaceSpeed()
	score := bandScore(speed, mat.SurfaceSpeedMin, mat.SurfaceSpeedMax)

	res := artifact.CalculatorResult{
		Name:  "surface_speed",
		Score: score,
		Metadata: map[string]any{
			"surface_speed_m_min": speed,
			"band_lo":             mat.SurfaceSpeedMin,
			"band_hi":             mat.SurfaceSpeedMax,
		},
	}
	if speed > mat.SurfaceSpeedMax {
		res.Warning = fmt.Sprintf("surface speed %.0fm/min above %s max %.0f: tool burn", speed, mat.Name, mat.SurfaceSpeedMax)
	} else if speed < mat.SurfaceSpeedMin {
		res.Warning = fmt.Sprintf("surface speed %.0fm/min below %s min %.0f: poor finish, edge buildup", speed, mat.Name, mat.SurfaceSpeedMin)
	}
	return res, nil
}

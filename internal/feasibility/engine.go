// Package feasibility scores proposed operations for physical/safety
// feasibility. A fixed registry of independent calculators each produce a
// 0-100 score; the engine combines them into one weighted score and one risk
// bucket using worst-case propagation.
package feasibility

import (
	"fmt"
	"log/slog"
	"sort"

	"chamfer/internal/artifact"
	"chamfer/internal/logging"
	"chamfer/internal/machining"
)

// Calculator is one independent feasibility check. Implementations must be
// pure with respect to the operation: same inputs, same result.
type Calculator interface {
	Name() string
	Calculate(op machining.Operation) (artifact.CalculatorResult, error)
}

// Risk-bucket thresholds on a 0-100 score.
const (
	greenThreshold  = 80
	yellowThreshold = 50
)

// BucketForScore classifies a single score.
func BucketForScore(score float64) artifact.RiskBucket {
	switch {
	case score >= greenThreshold:
		return artifact.RiskGreen
	case score >= yellowThreshold:
		return artifact.RiskYellow
	default:
		return artifact.RiskRed
	}
}

// WorstCase combines buckets: any RED dominates, then YELLOW, then GREEN.
// An empty input is UNKNOWN. Not a weighted average: one catastrophic
// sub-result must dominate the classification.
func WorstCase(buckets ...artifact.RiskBucket) artifact.RiskBucket {
	if len(buckets) == 0 {
		return artifact.RiskUnknown
	}
	out := artifact.RiskGreen
	for _, b := range buckets {
		switch b {
		case artifact.RiskRed:
			return artifact.RiskRed
		case artifact.RiskUnknown:
			// Unknown blocks like RED but keeps its own label unless an
			// actual RED is present.
			out = artifact.RiskUnknown
		case artifact.RiskYellow:
			if out != artifact.RiskUnknown {
				out = artifact.RiskYellow
			}
		}
	}
	return out
}

// neutralScore substitutes for a failed calculator so one bad check never
// blocks the others.
const neutralScore = 50

// Engine runs the calculator registry over operations.
type Engine struct {
	calcs   []Calculator
	weights map[string]float64
	log     *slog.Logger
}

// NewEngine builds an engine over an ordered calculator list. weights maps
// calculator name to its share of the overall score; missing names weigh
// zero, a nil map means equal weights. Pass the fixed DefaultWeights table
// for production behavior.
func NewEngine(calcs []Calculator, weights map[string]float64) *Engine {
	return &Engine{calcs: calcs, weights: weights, log: logging.New("feasibility")}
}

// NewDefaultEngine returns the production registry and weight table.
func NewDefaultEngine() *Engine {
	return NewEngine(DefaultCalculators(), DefaultWeights())
}

// Evaluate runs every calculator over op and aggregates.
//
// Failure isolation: a calculator returning an error (or panicking) is
// recorded as a neutral result with a namespaced warning; evaluation always
// completes.
func (e *Engine) Evaluate(op machining.Operation) artifact.FeasibilityResult {
	results := make(map[string]artifact.CalculatorResult, len(e.calcs))
	var warnings []string

	for _, c := range e.calcs {
		res, err := e.runOne(c, op)
		if err != nil {
			e.log.Warn("calculator failed", "calculator", c.Name(), "op", op.ID, "error", err)
			// The collection loop below prefixes the calculator name.
			res = artifact.CalculatorResult{
				Name:    c.Name(),
				Score:   neutralScore,
				Warning: fmt.Sprintf("error: %v", err),
			}
		}
		results[c.Name()] = res
		if res.Warning != "" {
			warnings = append(warnings, fmt.Sprintf("%s: %s", res.Name, res.Warning))
		}
	}

	if len(results) == 0 {
		return artifact.FeasibilityResult{
			Score:             neutralScore,
			RiskBucket:        artifact.RiskUnknown,
			Warnings:          []string{"no valid calculator results"},
			CalculatorResults: results,
		}
	}

	score := e.weightedScore(results)
	buckets := make([]artifact.RiskBucket, 0, len(results))
	for _, name := range sortedNames(results) {
		buckets = append(buckets, BucketForScore(results[name].Score))
	}

	return artifact.FeasibilityResult{
		Score:             score,
		RiskBucket:        WorstCase(buckets...),
		Warnings:          warnings,
		CalculatorResults: results,
		Efficiency:        Efficiency(op),
		EstimatedDuration: EstimatedDuration(op),
	}
}

// runOne isolates a single calculator call, converting panics to errors.
func (e *Engine) runOne(c Calculator, op machining.Operation) (res artifact.CalculatorResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return c.Calculate(op)
}

// weightedScore computes the weighted mean of calculator scores, normalized
// over the weights actually present so a partial registry still lands on the
// 0-100 scale.
func (e *Engine) weightedScore(results map[string]artifact.CalculatorResult) float64 {
	if len(e.weights) == 0 {
		var sum float64
		for _, r := range results {
			sum += r.Score
		}
		return sum / float64(len(results))
	}
	var weighted, total float64
	for name, r := range results {
		w := e.weights[name]
		weighted += r.Score * w
		total += w
	}
	if total == 0 {
		return neutralScore
	}
	return weighted / total
}

func sortedNames(m map[string]artifact.CalculatorResult) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Efficiency estimates how much of the machine's removal capacity the
// operation uses, 0..1. Calculator-agnostic: derived from the context alone.
func Efficiency(op machining.Operation) float64 {
	ctx := op.Context
	if ctx.MachinePowerKW <= 0 {
		return 0
	}
	mat, ok := machining.MaterialByID(op.Design.MaterialID)
	if !ok {
		return 0
	}
	// Power needed at the spindle: Kc * MRR, converted to kW.
	needed := mat.SpecificCuttingForce * ctx.MRR() / 60 / 1e6
	eff := needed / ctx.MachinePowerKW
	if eff > 1 {
		eff = 1
	}
	if eff < 0 {
		eff = 0
	}
	return eff
}

// EstimatedDuration estimates run time in minutes from removal volume and
// rate. Zero when the context cannot remove material.
func EstimatedDuration(op machining.Operation) float64 {
	mrr := op.Context.MRR()
	if mrr <= 0 {
		return 0
	}
	vol := op.Design.TargetVolume
	if vol <= 0 {
		vol = op.Design.StockLength * op.Design.StockWidth * op.Design.StockThickness * 0.25
	}
	return vol / mrr
}

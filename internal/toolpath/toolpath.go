// Package toolpath generates machine output for approved operations. It is
// the output-producing collaborator the EXECUTE stage invokes after the
// safety gate passes; the pipeline treats it as opaque and only hashes and
// stores what it returns.
package toolpath

import (
	"fmt"
	"strings"

	"chamfer/internal/machining"
)

// Generator produces the output text for one operation.
type Generator interface {
	Generate(op machining.Operation) (string, error)
}

// GCodeGenerator emits simple rectangular-pass G-code. Deterministic: the
// same operation always yields byte-identical output, so output hashes are
// comparable across runs.
type GCodeGenerator struct{}

// NewGCodeGenerator returns the built-in generator.
func NewGCodeGenerator() *GCodeGenerator { return &GCodeGenerator{} }

func (g *GCodeGenerator) Generate(op machining.Operation) (string, error) {
	ctx := op.Context
	d := op.Design
	if ctx.FeedRate <= 0 || ctx.SpindleRPM <= 0 {
		return "", fmt.Errorf("generate %s: feed and spindle must be positive", op.ID)
	}
	if d.StockLength <= 0 || d.StockWidth <= 0 {
		return "", fmt.Errorf("generate %s: stock dimensions must be positive", op.ID)
	}
	if ctx.DepthOfCut <= 0 {
		return "", fmt.Errorf("generate %s: depth of cut must be positive", op.ID)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "(op %s - %s - tool %s)\n", op.ID, op.Type, ctx.ToolID)
	b.WriteString("G21 (mm)\nG90 (absolute)\n")
	fmt.Fprintf(&b, "S%.0f M3\n", ctx.SpindleRPM)
	b.WriteString("G0 Z5.000\nG0 X0.000 Y0.000\n")

	passes := int(d.StockThickness/ctx.DepthOfCut + 0.999)
	if passes < 1 {
		passes = 1
	}
	step := ctx.WidthOfCut
	if step <= 0 {
		step = ctx.ToolDiameter * 0.5
	}
	for p := 1; p <= passes; p++ {
		z := -ctx.DepthOfCut * float64(p)
		if z < -d.StockThickness {
			z = -d.StockThickness
		}
		fmt.Fprintf(&b, "G1 Z%.3f F%.0f\n", z, ctx.FeedRate/2)
		for y := 0.0; y <= d.StockWidth; y += step {
			fmt.Fprintf(&b, "G1 X%.3f Y%.3f F%.0f\n", d.StockLength, y, ctx.FeedRate)
			fmt.Fprintf(&b, "G1 X0.000 Y%.3f F%.0f\n", y, ctx.FeedRate)
		}
		b.WriteString("G0 Z5.000\nG0 X0.000 Y0.000\n")
	}
	b.WriteString("M5\nM30\n")
	return b.String(), nil
}

// FailingGenerator always errors; used by tests to exercise the
// ERROR-artifact path.
type FailingGenerator struct{ Err error }

func (f FailingGenerator) Generate(op machining.Operation) (string, error) {
	if f.Err != nil {
		return "", f.Err
	}
	return "", fmt.Errorf("generation failed for %s", op.ID)
}

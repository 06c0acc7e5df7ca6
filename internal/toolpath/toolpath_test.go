package toolpath

import (
	"strings"
	"testing"

	"chamfer/internal/machining"
)

func sampleOp() machining.Operation {
	return machining.Operation{
		ID:   "op1",
		Type: "facing",
		Design: machining.Design{
			MaterialID:     "al-6061",
			StockLength:    50,
			StockWidth:     20,
			StockThickness: 6,
		},
		Context: machining.Context{
			ToolID:       "T4",
			ToolDiameter: 10,
			SpindleRPM:   8000,
			FeedRate:     1500,
			DepthOfCut:   2,
			WidthOfCut:   5,
		},
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	g := NewGCodeGenerator()
	a, err := g.Generate(sampleOp())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	b, err := g.Generate(sampleOp())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if a != b {
		t.Error("generator output not deterministic")
	}
	for _, want := range []string{"G21", "S8000 M3", "M30", "tool T4"} {
		if !strings.Contains(a, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestGenerate_RejectsInvalidContext(t *testing.T) {
	g := NewGCodeGenerator()

	op := sampleOp()
	op.Context.FeedRate = 0
	if _, err := g.Generate(op); err == nil {
		t.Error("expected error for zero feed rate")
	}

	op = sampleOp()
	op.Design.StockLength = 0
	if _, err := g.Generate(op); err == nil {
		t.Error("expected error for zero stock length")
	}
}

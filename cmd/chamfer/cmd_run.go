package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"chamfer/internal/display"
	"chamfer/internal/format"
	"chamfer/internal/machining"
	"chamfer/internal/pipeline"
)

var runFlags struct {
	file     string
	operator string
	order    []string
	note     string
	dryRun   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive a request file through SPEC, PLAN, DECISION, and EXECUTE",
	Long: `Reads a YAML request (session id plus operations), records the design
intent, scores every operation, approves the chosen order, and executes.
With --dry-run the pipeline stops after PLAN and prints the scorecard.`,
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runFlags.file, "file", "f", "", "YAML request file (required)")
	f.StringVar(&runFlags.operator, "operator", "", "operator recording the decision")
	f.StringSliceVar(&runFlags.order, "order", nil, "execution order (default: file order)")
	f.StringVar(&runFlags.note, "note", "", "decision note")
	f.BoolVar(&runFlags.dryRun, "dry-run", false, "stop after PLAN, print scores only")

	_ = runCmd.MarkFlagRequired("file")
}

// runRequest is the on-disk shape of a run file.
type runRequest struct {
	SessionID  string                `yaml:"session_id"`
	BatchLabel string                `yaml:"batch_label,omitempty"`
	Operations []machining.Operation `yaml:"operations"`
}

func runRun(cmd *cobra.Command, _ []string) error {
	raw, err := os.ReadFile(runFlags.file)
	if err != nil {
		return fmt.Errorf("read request file: %w", err)
	}
	var req runRequest
	if err := yaml.Unmarshal(raw, &req); err != nil {
		return fmt.Errorf("parse request file: %w", err)
	}

	d, err := openDeps()
	if err != nil {
		return err
	}
	defer d.close()

	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	spec, err := d.service.CreateSpec(pipeline.SpecRequest{
		SessionID:  req.SessionID,
		BatchLabel: req.BatchLabel,
		Operations: req.Operations,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "SPEC     %s\n", spec.ID)

	plan, err := d.service.CreatePlan(ctx, spec.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "PLAN     %s\n", plan.ID)
	printPlanScores(out, plan.Payload)

	if runFlags.dryRun {
		return nil
	}
	if runFlags.operator == "" {
		return errors.New("--operator is required to approve and execute")
	}

	order := runFlags.order
	if len(order) == 0 {
		for _, op := range req.Operations {
			order = append(order, op.ID)
		}
	}
	decision, err := d.service.Decide(pipeline.DecisionRequest{
		PlanArtifactID: plan.ID,
		Approve:        true,
		ChosenOrder:    order,
		Operator:       runFlags.operator,
		Note:           runFlags.note,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "DECISION %s (%s)\n", decision.ID, display.Status(string(decision.Status)))

	res, execErr := d.service.Execute(ctx, decision.ID)
	if res == nil {
		return execErr
	}
	fmt.Fprintf(out, "EXECUTE  %s (%s)\n", res.Artifact.ID, display.Status(string(res.Artifact.Status)))

	tb := format.NewTable(format.ASCII)
	tb.Header("OP", "STATUS", "RISK", "SCORE", "OUTPUT")
	for _, r := range res.Payload.OpResults {
		tb.Row(r.OpID, display.Status(string(r.Status)),
			display.RiskBucket(string(r.RiskBucket)),
			format.FmtScore(r.Score), format.FmtHash(r.OutputHash))
	}
	fmt.Fprintln(out, tb.String())
	fmt.Fprintf(out, "ok=%d blocked=%d errors=%d\n",
		res.Payload.OKCount, res.Payload.BlockedCount, res.Payload.ErrorCount)
	return execErr
}

// printPlanScores renders the per-op scorecard from a PLAN payload.
func printPlanScores(out io.Writer, payload map[string]any) {
	ops, _ := payload["ops"].([]any)
	if len(ops) == 0 {
		return
	}
	tb := format.NewTable(format.ASCII)
	tb.Header("OP", "RISK", "SCORE")
	for _, raw := range ops {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		op, _ := m["op"].(map[string]any)
		feas, _ := m["feasibility"].(map[string]any)
		id, _ := op["op_id"].(string)
		bucket, _ := feas["risk_bucket"].(string)
		score, _ := feas["score"].(float64)
		tb.Row(id, display.RiskBucket(bucket), format.FmtScore(score))
	}
	fmt.Fprintln(out, tb.String())
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"chamfer/internal/display"
	"chamfer/internal/format"
)

var retryFlags struct {
	ops  []string
	note string
}

var retryCmd = &cobra.Command{
	Use:   "retry <execution-id>",
	Short: "Re-run blocked or failed operations of an execution",
	Long: `Re-runs operations from a previous execution as a new EXECUTE artifact.
Defaults to the operations that were blocked or errored. If the re-run
drifts from the original (different output, score, or risk), the replay
gate may demand an override note via --note.`,
	Args: cobra.ExactArgs(1),
	RunE: runRetry,
}

func init() {
	f := retryCmd.Flags()
	f.StringSliceVar(&retryFlags.ops, "ops", nil, "op ids to retry (default: blocked and errored ops)")
	f.StringVar(&retryFlags.note, "note", "", "override note justifying a drifted replay")
}

func runRetry(cmd *cobra.Command, args []string) error {
	d, err := openDeps()
	if err != nil {
		return err
	}
	defer d.close()

	res, execErr := d.service.Retry(cmd.Context(), args[0], retryFlags.ops, retryFlags.note)
	if res == nil {
		return execErr
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "RETRY %s (%s)\n", res.Artifact.ID, display.Status(string(res.Artifact.Status)))
	if res.Payload.DriftDetected {
		fmt.Fprintf(out, "drift detected (%s): %v\n",
			display.Severity(res.Payload.DriftSeverity), res.Payload.DriftPaths)
		if res.Payload.DriftRequiresOverride {
			fmt.Fprintln(out, "replay gate: rerun with --note to accept the drift")
		}
	}

	tb := format.NewTable(format.ASCII)
	tb.Header("OP", "STATUS", "RISK", "SCORE")
	for _, r := range res.Payload.OpResults {
		tb.Row(r.OpID, display.Status(string(r.Status)),
			display.RiskBucket(string(r.RiskBucket)), format.FmtScore(r.Score))
	}
	fmt.Fprintln(out, tb.String())
	return execErr
}

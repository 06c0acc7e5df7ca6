package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"chamfer/internal/display"
	"chamfer/internal/drift"
	"chamfer/internal/format"
)

var diffCmd = &cobra.Command{
	Use:   "diff <artifact-a> <artifact-b>",
	Short: "Compare two artifacts and classify the drift",
	Args:  cobra.ExactArgs(2),
	RunE:  runDiff,
}

func runDiff(cmd *cobra.Command, args []string) error {
	d, err := openDeps()
	if err != nil {
		return err
	}
	defer d.close()

	a, err := d.store.Get(args[0])
	if err != nil {
		return err
	}
	b, err := d.store.Get(args[1])
	if err != nil {
		return err
	}

	report := drift.Diff(a, b)
	out := cmd.OutOrStdout()
	if !report.Drift() {
		fmt.Fprintln(out, "no drift")
		return nil
	}

	fmt.Fprintf(out, "severity: %s\n", display.Severity(string(report.Severity)))
	tb := format.NewTable(format.ASCII)
	tb.Header("PATH", "A", "B")
	tb.Columns(
		format.ColumnConfig{Number: 2, MaxWidth: 40},
		format.ColumnConfig{Number: 3, MaxWidth: 40},
	)
	for _, c := range report.Changes {
		tb.Row(c.Path, fmt.Sprint(c.A), fmt.Sprint(c.B))
	}
	fmt.Fprintln(out, tb.String())
	return nil
}

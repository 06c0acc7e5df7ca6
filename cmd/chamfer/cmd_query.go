package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"chamfer/internal/display"
	"chamfer/internal/format"
	"chamfer/internal/store"
)

var queryFlags struct {
	kind      string
	status    string
	toolID    string
	material  string
	sessionID string
	cursor    string
	limit     int
	markdown  bool
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "List artifacts, newest first",
	RunE:  runQuery,
}

func init() {
	f := queryCmd.Flags()
	f.StringVar(&queryFlags.kind, "kind", "", "artifact kind (op_spec, op_plan, op_decision, op_execution, op_toolpaths)")
	f.StringVar(&queryFlags.status, "status", "", "artifact status")
	f.StringVar(&queryFlags.toolID, "tool", "", "filter by tool id")
	f.StringVar(&queryFlags.material, "material", "", "filter by material id")
	f.StringVar(&queryFlags.sessionID, "session", "", "filter by session id")
	f.StringVar(&queryFlags.cursor, "cursor", "", "pagination cursor from a previous page")
	f.IntVar(&queryFlags.limit, "limit", store.DefaultLimit, "page size (1-200)")
	f.BoolVar(&queryFlags.markdown, "markdown", false, "render as a Markdown table")
}

func runQuery(cmd *cobra.Command, _ []string) error {
	d, err := openDeps()
	if err != nil {
		return err
	}
	defer d.close()

	items, next, err := d.store.Query(store.Filter{
		Kind:       queryFlags.kind,
		Status:     queryFlags.status,
		ToolID:     queryFlags.toolID,
		MaterialID: queryFlags.material,
		SessionID:  queryFlags.sessionID,
	}, queryFlags.cursor, queryFlags.limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(items) == 0 {
		fmt.Fprintln(out, "no artifacts match")
		return nil
	}

	mode := format.ASCII
	if queryFlags.markdown {
		mode = format.Markdown
	}
	tb := format.NewTable(mode)
	tb.Header("ID", "KIND", "STATUS", "SESSION", "CREATED")
	for _, a := range items {
		tb.Row(a.ID, display.Kind(a.Kind), display.Status(string(a.Status)),
			a.IndexMeta["session_id"], a.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintln(out, tb.String())
	if next != "" {
		fmt.Fprintf(out, "next page: --cursor %s\n", next)
	}
	return nil
}

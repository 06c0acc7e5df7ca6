package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"chamfer/internal/display"
)

var showFlags struct {
	raw bool
}

var showCmd = &cobra.Command{
	Use:   "show <artifact-id>",
	Short: "Show one artifact with its full payload",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showFlags.raw, "json", false, "print the raw artifact as JSON")
}

func runShow(cmd *cobra.Command, args []string) error {
	d, err := openDeps()
	if err != nil {
		return err
	}
	defer d.close()

	a, err := d.store.Get(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if showFlags.raw {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(a)
	}

	fmt.Fprintf(out, "ID:       %s\n", a.ID)
	fmt.Fprintf(out, "Kind:     %s\n", display.Kind(a.Kind))
	fmt.Fprintf(out, "Stage:    %s\n", display.Stage(string(a.Stage)))
	fmt.Fprintf(out, "Status:   %s\n", display.Status(string(a.Status)))
	fmt.Fprintf(out, "Created:  %s\n", a.CreatedAt.Format("2006-01-02 15:04:05.000 MST"))
	if a.RequestHash != "" {
		fmt.Fprintf(out, "Request:  %s\n", a.RequestHash)
	}
	if a.OutputHash != "" {
		fmt.Fprintf(out, "Output:   %s\n", a.OutputHash)
	}
	if len(a.IndexMeta) > 0 {
		fmt.Fprintln(out, "Index:")
		for k, v := range a.IndexMeta {
			fmt.Fprintf(out, "  %s: %s\n", k, v)
		}
	}
	if len(a.Meta) > 0 {
		fmt.Fprintln(out, "Meta:")
		for k, v := range a.Meta {
			fmt.Fprintf(out, "  %s: %v\n", k, v)
		}
	}
	payload, err := json.MarshalIndent(a.Payload, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Payload:\n%s\n", payload)
	return nil
}

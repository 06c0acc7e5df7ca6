package main

import (
	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "chamfer",
	Short: "Governed execution of CNC machining operations",
	Long: "Chamfer gates machining operations behind a SPEC -> PLAN -> DECISION -> EXECUTE\n" +
		"pipeline. Every stage persists an immutable artifact; execution re-verifies\n" +
		"feasibility and refuses operations the safety gate classifies as RED.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(retryCmd)
	rootCmd.Version = version
}

package main

import (
	"context"

	"github.com/spf13/cobra"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"chamfer/internal/httpapi"
	"chamfer/internal/logging"
	mcpserver "chamfer/internal/mcp"
)

var serveFlags struct {
	mcp  bool
	addr string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the governance API over HTTP, or MCP tools over stdio",
	Long: `Starts the HTTP API on the configured address. With --mcp the process
instead speaks MCP over stdin/stdout, exposing read-only artifact query
tools to agent clients, and self-terminates when the parent disconnects.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.BoolVar(&serveFlags.mcp, "mcp", false, "serve MCP tools over stdio instead of HTTP")
	f.StringVar(&serveFlags.addr, "addr", "", "HTTP listen address (overrides CHAMFER_HTTP_ADDR)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	d, err := openDeps()
	if err != nil {
		return err
	}
	defer d.close()

	if serveFlags.mcp {
		srv := mcpserver.NewServer(d.store, d.events)

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		mcpserver.WatchParent(ctx, cancel)

		logging.New("mcp").Info("serving MCP over stdio")
		return srv.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
	}

	addr := d.cfg.HTTPAddr
	if serveFlags.addr != "" {
		addr = serveFlags.addr
	}
	return httpapi.New(addr, d.service, d.store, d.events).Run()
}

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/livemd"
	"github.com/aretw0/livemd/pkg/adapters/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes the runtime as MCP tools so agents can execute documents,
answer forms and read or patch session state.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")
		baseURL, _ := cmd.Flags().GetString("base-url")
		dir, _ := cmd.Flags().GetString("dir")

		env, err := openServerEnv(dir, false)
		if err != nil {
			return err
		}
		defer env.Close()

		opts := []mcp.Option{mcp.WithLogger(env.logger)}
		if env.loader != nil {
			opts = append(opts, mcp.WithLoader(env.loader))
		}
		srv := mcp.NewServer(env.engine, livemd.Version, opts...)

		switch transport {
		case "stdio":
			// Stdout carries JSON-RPC; logs already go to stderr.
			env.logger.Info("starting livemd MCP server", "transport", transport)
			return srv.ServeStdio()
		case "sse":
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			addr := fmt.Sprintf(":%d", port)
			if baseURL == "" {
				baseURL = fmt.Sprintf("http://localhost:%d", port)
			}
			env.logger.Info("starting livemd MCP server", "transport", transport, "addr", addr)
			if err := srv.ServeSSE(ctx, addr, baseURL); err != nil {
				return err
			}
			env.logger.Info("MCP server stopped")
			return nil
		default:
			return fmt.Errorf("unknown transport %q (want stdio or sse)", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
	mcpCmd.Flags().String("base-url", "", "Public base URL advertised to SSE clients")
	mcpCmd.Flags().String("dir", "", "Directory of documents executable by ID")
}

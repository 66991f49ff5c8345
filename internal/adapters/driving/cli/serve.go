package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/conduit-cli/internal/adapters/driving/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the JSON-RPC server aggregating all connectors.

By default, the server communicates over stdio and can be used with
Claude Desktop and other MCP-compatible AI assistants.

Use --port to start an HTTP server instead (POST /rpc).

Examples:
  # Stdio mode (default, for MCP clients)
  conduit serve

  # HTTP mode
  conduit serve --port 8080

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "conduit": {
        "command": "/path/to/conduit",
        "args": ["serve"]
      }
    }
  }`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	server := mcp.NewServer(registry, authStore, usageStore)

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.ErrOrStderr(), "conduit listening on http://localhost%s/rpc\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	// Stdio mode: stdout belongs to the JSON-RPC stream.
	return server.Run(cmd.Context(), os.Stdin, os.Stdout)
}

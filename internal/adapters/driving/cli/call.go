package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/conduit-cli/internal/core/domain"
	"github.com/custodia-labs/conduit-cli/internal/core/ports/driven"
)

var callCmd = &cobra.Command{
	Use:   "call <connector/tool>",
	Short: "Invoke one tool and print the result",
	Long: `Invoke a single connector tool without starting a server.

Examples:
  conduit call hackernews/search --args '{"query":"zig"}'
  conduit call web/fetch --args '{"url":"https://example.com"}'`,
	Args: cobra.ExactArgs(1),
	RunE: runCall,
}

func init() {
	callCmd.Flags().String("args", "{}", "Tool arguments as a JSON object")
	rootCmd.AddCommand(callCmd)
}

func runCall(cmd *cobra.Command, args []string) error {
	connector, tool, ok := strings.Cut(args[0], "/")
	if !ok || connector == "" || tool == "" {
		return domain.InvalidInputf("tool must be named <connector>/<tool>: %q", args[0])
	}

	rawArgs, err := cmd.Flags().GetString("args")
	if err != nil {
		return err
	}
	var toolArgs map[string]any
	if err := json.Unmarshal([]byte(rawArgs), &toolArgs); err != nil {
		return domain.InvalidInputf("--args must be a JSON object: %v", err)
	}

	handle, err := registry.Get(connector)
	if err != nil {
		return err
	}

	var result *domain.CallToolResult
	err = handle.Do(func(c driven.Connector) error {
		var callErr error
		result, callErr = c.CallTool(cmd.Context(), tool, toolArgs)
		return callErr
	})
	if err != nil {
		return err
	}

	var out any = result.StructuredContent
	if out == nil && len(result.Content) > 0 {
		out = result.Content[0].Text
	}
	pretty, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	cmd.Println(string(pretty))
	return nil
}

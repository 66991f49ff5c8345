// Package cli wires the conduit commands. Commands register themselves on
// the root in their init functions; main injects the services before
// Execute runs.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/conduit-cli/internal/core/ports/driven"
	"github.com/custodia-labs/conduit-cli/internal/core/services"
	"github.com/custodia-labs/conduit-cli/internal/logger"
)

// version is stamped at build time via -ldflags.
var version = "dev"

var (
	registry   *services.Registry
	authStore  driven.AuthStore
	usageStore driven.UsageStore
)

// Deps carries the services the commands need.
type Deps struct {
	Registry   *services.Registry
	AuthStore  driven.AuthStore
	UsageStore driven.UsageStore
}

// SetDeps injects the services. Call before Execute.
func SetDeps(deps Deps) {
	registry = deps.Registry
	authStore = deps.AuthStore
	usageStore = deps.UsageStore
}

var rootCmd = &cobra.Command{
	Use:   "conduit",
	Short: "Multi-source MCP data connector server",
	Long: `Conduit exposes multiple data sources (Hacker News, the web, GitHub,
Google Drive) as one MCP server. Tools are namespaced <connector>/<tool>;
credentials are stored locally and never leave this machine.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging to stderr")
}

// Execute runs the root command with the given context.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

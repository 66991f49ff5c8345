package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/conduit-cli/internal/core/domain"
	"github.com/custodia-labs/conduit-cli/internal/core/ports/driven"
)

var connectorsCmd = &cobra.Command{
	Use:   "connectors",
	Short: "List the available connectors and their auth status",
	RunE:  runConnectors,
}

func init() {
	rootCmd.AddCommand(connectorsCmd)
}

func runConnectors(cmd *cobra.Command, _ []string) error {
	for _, name := range registry.SortedNames() {
		handle, err := registry.Get(name)
		if err != nil {
			continue
		}
		var description string
		var authType domain.AuthType
		var hasCreds bool
		handle.Do(func(c driven.Connector) error {
			description = c.Description()
			authType = c.AuthType()
			details, err := c.AuthDetails()
			hasCreds = err == nil && len(details) > 0
			return nil
		})

		status := "ready"
		switch {
		case authType == domain.AuthNone:
		case hasCreds:
			status = "configured"
		default:
			status = "needs setup"
		}
		cmd.Printf("%-14s %-12s %s\n", name, status, description)
	}
	return nil
}

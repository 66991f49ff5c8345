package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show tool call statistics",
	Long:  `Show how often each connector tool was called, with error counts and average latency.`,
	RunE:  runUsage,
}

func init() {
	usageCmd.Flags().Int("hours", 24, "Report window in hours")
	rootCmd.AddCommand(usageCmd)
}

func runUsage(cmd *cobra.Command, _ []string) error {
	if usageStore == nil {
		return errors.New("usage metering is disabled")
	}
	hours, err := cmd.Flags().GetInt("hours")
	if err != nil {
		return err
	}
	if hours <= 0 {
		return errors.New("--hours must be positive")
	}

	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	summaries, err := usageStore.Report(cmd.Context(), since)
	if err != nil {
		return fmt.Errorf("reading usage: %w", err)
	}
	if len(summaries) == 0 {
		cmd.Printf("No tool calls in the last %dh.\n", hours)
		return nil
	}

	cmd.Printf("%-30s %8s %8s %10s\n", "TOOL", "CALLS", "ERRORS", "AVG MS")
	for _, s := range summaries {
		cmd.Printf("%-30s %8d %8d %10d\n", s.Connector+"/"+s.Tool, s.Calls, s.Errors, s.AvgMillis)
	}
	return nil
}

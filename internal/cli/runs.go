package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/entraops/entramap/internal/models"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List and inspect recorded correlation runs",
	Long: `List recorded correlation runs, newest first.

Subcommands:
  show    Show one run with its mappings
  delete  Delete a run and its mappings

Examples:
  entramap runs
  entramap runs --limit 5
  entramap runs show 2f1e...
  entramap runs delete 2f1e...`,
	RunE: runListRuns,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run with its mappings",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowRun,
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a run and its mappings",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeleteRun,
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "max runs to list")

	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsDeleteCmd)
}

func runListRuns(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	client, err := ensureDB(ctx)
	if err != nil {
		return err
	}

	runs, err := client.ListRuns(ctx, runsLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	fmt.Printf("Runs (%d):\n\n", len(runs))
	for _, run := range runs {
		id, err := models.RecordIDString(run.ID)
		if err != nil {
			return err
		}
		fmt.Printf("- %s  %s  [%s]  %d/%d mapped\n",
			id, run.StartedAt.Format("2006-01-02 15:04:05"), run.Status, run.MappingCount, run.AgentCount)
		if verbose {
			fmt.Printf("  strategy: %s", run.Strategy)
			if run.Tenant != nil {
				fmt.Printf("  tenant: %s", *run.Tenant)
			}
			fmt.Println()
		}
	}

	return nil
}

func runShowRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	runID := args[0]

	client, err := ensureDB(ctx)
	if err != nil {
		return err
	}

	run, err := client.GetRun(ctx, runID)
	if err != nil {
		return err
	}

	fmt.Printf("Run %s\n", runID)
	fmt.Printf("  Status:    %s\n", run.Status)
	fmt.Printf("  Started:   %s\n", run.StartedAt.Format("2006-01-02 15:04:05"))
	if run.CompletedAt != nil {
		fmt.Printf("  Completed: %s\n", run.CompletedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Printf("  Strategy:  %s\n", run.Strategy)
	fmt.Printf("  Agents:    %d (excluded %d)\n", run.AgentCount, run.Excluded)
	fmt.Printf("  Records:   %d (filtered %d)\n", run.RecordCount, run.FilteredOut)
	if run.UnpairedObjectID != nil {
		fmt.Printf("  Unpaired:  %s (dropped, no pair)\n", *run.UnpairedObjectID)
	}
	if run.ArtifactPath != nil {
		fmt.Printf("  Artifact:  %s\n", *run.ArtifactPath)
	}
	if run.Error != nil {
		fmt.Printf("  Error:     %s\n", *run.Error)
	}

	mappings, err := client.GetRunMappings(ctx, runID)
	if err != nil {
		return err
	}
	if len(mappings) == 0 {
		fmt.Println("\nNo mappings recorded.")
		return nil
	}

	fmt.Printf("\nMappings (%d):\n", len(mappings))
	for _, m := range mappings {
		fmt.Printf("  %-32s -> %s  [%s]\n", m.AgentName, m.ObjectID, m.Confidence)
	}

	return nil
}

func runDeleteRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	runID := args[0]

	client, err := ensureDB(ctx)
	if err != nil {
		return err
	}

	// Fail loudly for unknown ids instead of silently deleting nothing.
	if _, err := client.GetRun(ctx, runID); err != nil {
		return err
	}

	if err := client.DeleteRun(ctx, runID); err != nil {
		return err
	}

	fmt.Printf("Deleted run %s\n", runID)
	return nil
}

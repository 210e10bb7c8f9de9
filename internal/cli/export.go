package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/entraops/entramap/internal/models"
)

var exportRunID string

var exportCmd = &cobra.Command{
	Use:   "export <path>",
	Short: "Write the mapping file of a stored run",
	Long: `Export re-emits the JSON mapping file from a stored run, for when
the original artifact was lost or written somewhere transient.

Defaults to the latest completed run.

Examples:
  entramap export ./agent_mapping.json
  entramap export ./mapping.json --run 2f1e...`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportRunID, "run", "", "run id to export (default: latest completed)")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	exportPath := args[0]

	client, err := ensureDB(ctx)
	if err != nil {
		return err
	}

	runID := exportRunID
	if runID == "" {
		latest, err := client.LatestCompletedRun(ctx)
		if err != nil {
			return err
		}
		runID, err = models.RecordIDString(latest.ID)
		if err != nil {
			return err
		}
	}

	stored, err := client.GetRunMappings(ctx, runID)
	if err != nil {
		return err
	}
	if len(stored) == 0 {
		fmt.Println("No mappings to export.")
		return nil
	}

	results := make([]models.MappingResult, len(stored))
	for i, m := range stored {
		results[i], err = m.Result()
		if err != nil {
			return fmt.Errorf("mapping %s: %w", m.AgentName, err)
		}
	}

	artifact, err := models.MarshalArtifact(results)
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}
	if err := os.WriteFile(exportPath, artifact, 0644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}

	fmt.Printf("Exported %d mappings from run %s to %s\n", len(results), runID, exportPath)
	return nil
}

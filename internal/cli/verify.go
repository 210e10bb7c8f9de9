package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/entraops/entramap/internal/directory"
	"github.com/entraops/entramap/internal/service"
)

var verifyRunID string

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check a stored run against the live directory",
	Long: `Verify re-queries the directory for every mapped object id of a
stored run and reports the ones that no longer exist. A mapped service
principal disappearing usually means the agent was deleted or the
identity was re-minted, and the run should be repeated.

Defaults to the latest completed run.

Examples:
  entramap verify
  entramap verify --run 2f1e...`,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyRunID, "run", "", "run id to verify (default: latest completed)")
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	client, err := ensureDB(ctx)
	if err != nil {
		return err
	}

	cred, err := newCredential()
	if err != nil {
		return err
	}
	dir := directory.NewClient(directory.Config{
		BaseURL:  cfg.GraphBaseURL,
		PageSize: cfg.GraphPageSize,
	}, cred, logger)

	result, err := service.NewVerificationService(client, dir, logger).VerifyRun(ctx, verifyRunID)
	if err != nil {
		return err
	}

	fmt.Printf("Verified run %s: %d mappings checked\n", result.RunID, result.Checked)

	if len(result.Drift) == 0 {
		fmt.Println("All mapped service principals still exist.")
		return nil
	}

	fmt.Printf("\nMissing from directory (%d):\n", len(result.Drift))
	for _, d := range result.Drift {
		fmt.Printf("  %-32s -> %s\n", d.Mapping.AgentName, d.Mapping.ObjectID)
	}
	fmt.Println("\nRe-run 'entramap correlate' to rebuild the mapping.")
	return nil
}

package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/entraops/entramap/internal/correlate"
	"github.com/entraops/entramap/internal/directory"
	"github.com/entraops/entramap/internal/registry"
	"github.com/entraops/entramap/internal/service"
)

var (
	correlateAgentsFile  string
	correlateExclude     []string
	correlateExcludeFile string
	correlateStrategy    string
	correlateSameDay     bool
	correlateWindow      time.Duration
	correlateOutput      string
	correlateNoStore     bool
	correlateNamePrefix  string
	correlateNoProgress  bool
)

var correlateCmd = &cobra.Command{
	Use:   "correlate",
	Short: "Correlate published agents with directory service principals",
	Long: `Correlate fetches the published agent list and the directory's
service principals, pairs them by creation-time ordering, writes the
JSON mapping file, and records the run.

The published side comes from the project API (ENTRAMAP_PROJECT_ENDPOINT)
or from a local YAML file via --agents-file. Known-bad agents can be
dropped with --exclude / --exclude-file before any pairing happens.

Examples:
  entramap correlate
  entramap correlate --agents-file agents.yaml --out mapping.json
  entramap correlate --exclude rogue-agent --same-day
  entramap correlate --strategy every-record --no-store`,
	RunE: runCorrelate,
}

func init() {
	correlateCmd.Flags().StringVarP(&correlateAgentsFile, "agents-file", "f", "", "read published agents from a YAML file instead of the project API")
	correlateCmd.Flags().StringSliceVarP(&correlateExclude, "exclude", "x", nil, "agent names to exclude before correlation")
	correlateCmd.Flags().StringVar(&correlateExcludeFile, "exclude-file", "", "YAML file with agent names to exclude")
	correlateCmd.Flags().StringVarP(&correlateStrategy, "strategy", "s", "alternate-pairs", "candidate strategy: alternate-pairs or every-record")
	correlateCmd.Flags().BoolVar(&correlateSameDay, "same-day", false, "restrict to records created on the majority calendar day")
	correlateCmd.Flags().DurationVarP(&correlateWindow, "window", "w", 0, "high-confidence pair spacing (default from config, 5m)")
	correlateCmd.Flags().StringVarP(&correlateOutput, "out", "o", "", "mapping file path (default from config)")
	correlateCmd.Flags().BoolVar(&correlateNoStore, "no-store", false, "skip recording the run in SurrealDB")
	correlateCmd.Flags().StringVar(&correlateNamePrefix, "name-prefix", "", "only consider service principals whose display name starts with this prefix")
	correlateCmd.Flags().BoolVar(&correlateNoProgress, "no-progress", false, "disable the interactive progress display")
}

func runCorrelate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	strategy, ok := correlate.StrategyByName(correlateStrategy)
	if !ok {
		return fmt.Errorf("unknown strategy %q", correlateStrategy)
	}

	window := cfg.ConfidenceWindow
	if correlateWindow > 0 {
		window = correlateWindow
	}
	correlator := correlate.New(
		correlate.WithStrategy(strategy),
		correlate.WithSameDayFilter(correlateSameDay),
		correlate.WithConfidenceWindow(window),
	)

	cred, err := newCredential()
	if err != nil {
		return err
	}

	var agents service.AgentSource
	if correlateAgentsFile != "" {
		agents = registry.NewFileSource(correlateAgentsFile)
	} else {
		if cfg.ProjectEndpoint == "" {
			return fmt.Errorf("no agent source: set ENTRAMAP_PROJECT_ENDPOINT or pass --agents-file")
		}
		agents = registry.NewClient(registry.Config{
			Endpoint:   cfg.ProjectEndpoint,
			APIVersion: cfg.ProjectAPIVersion,
		}, cred, logger)
	}

	dir := directory.NewClient(directory.Config{
		BaseURL:    cfg.GraphBaseURL,
		PageSize:   cfg.GraphPageSize,
		NamePrefix: correlateNamePrefix,
	}, cred, logger)

	exclusions, err := loadExclusions()
	if err != nil {
		return err
	}

	var store service.RunStore
	if !correlateNoStore {
		client, err := ensureDB(ctx)
		if err != nil {
			return err
		}
		store = client
	}

	output := correlateOutput
	if output == "" {
		output = cfg.OutputPath
	}

	svc := service.NewCorrelationService(agents, dir, store, correlator, logger)
	opts := service.RunOptions{
		Exclusions: exclusions,
		OutputPath: output,
		Tenant:     cfg.TenantID,
	}

	var summary *service.RunSummary
	if !correlateNoProgress && term.IsTerminal(int(os.Stdout.Fd())) {
		summary, err = RunCorrelateProgress(ctx, svc, opts)
	} else {
		summary, err = svc.Run(ctx, opts)
	}
	if err != nil {
		return err
	}

	printSummary(summary)
	return nil
}

// loadExclusions merges --exclude names with the --exclude-file list.
func loadExclusions() (*registry.Exclusions, error) {
	names := append([]string(nil), correlateExclude...)
	if correlateExcludeFile != "" {
		fromFile, err := registry.LoadExclusionsFile(correlateExcludeFile)
		if err != nil {
			return nil, err
		}
		names = append(names, fromFile.Names()...)
	}
	return registry.NewExclusions(names), nil
}

func printSummary(s *service.RunSummary) {
	fmt.Printf("\nMapped %d of %d agents (%d directory records)\n",
		len(s.Mappings), s.AgentCount, s.RecordCount)

	for _, m := range s.Mappings {
		fmt.Printf("  %-32s -> %s  [%s, Δ%s]\n", m.AgentName, m.ObjectID, m.Confidence, m.TimeDelta)
	}

	if s.Excluded > 0 {
		fmt.Printf("\nExcluded agents: %d\n", s.Excluded)
	}
	if len(s.Report.Dropped) > 0 {
		fmt.Printf("Warning: %d directory record(s) could not form a pair and were dropped\n", len(s.Report.Dropped))
	}
	if s.Report.Unmatched > 0 {
		fmt.Printf("Warning: %d agent(s) had no directory candidate\n", s.Report.Unmatched)
	}
	if s.ArtifactPath != "" {
		fmt.Printf("\nMapping file written to %s\n", s.ArtifactPath)
	}
	if s.RunID != "" && !correlateNoStore {
		fmt.Printf("Run recorded as %s\n", s.RunID)
	}
}

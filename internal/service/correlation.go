// Package service orchestrates the correlation pipeline: fetch both
// sides, apply exclusions, correlate, persist, write the artifact.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/entraops/entramap/internal/correlate"
	"github.com/entraops/entramap/internal/db"
	"github.com/entraops/entramap/internal/metrics"
	"github.com/entraops/entramap/internal/models"
	"github.com/entraops/entramap/internal/registry"
)

// AgentSource supplies published agents in publish order.
type AgentSource interface {
	ListPublishedAgents(ctx context.Context) ([]models.PublishedAgent, error)
}

// PrincipalSource supplies directory records, unordered.
type PrincipalSource interface {
	ListServicePrincipals(ctx context.Context, onPage func(fetched int)) ([]models.DirectoryRecord, error)
}

// RunStore persists run history. Satisfied by *db.Client.
type RunStore interface {
	CreateRun(ctx context.Context, id string, tenant *string, strategy string) (*models.CorrelationRun, error)
	CompleteRun(ctx context.Context, id string, done db.RunCompletion) (*models.CorrelationRun, error)
	FailRun(ctx context.Context, id string, reason string) error
	InsertMappings(ctx context.Context, runID string, results []models.MappingResult) error
}

// Stage identifies a pipeline phase for progress reporting.
type Stage string

const (
	StageFetchAgents    Stage = "fetching published agents"
	StageFetchDirectory Stage = "querying directory"
	StageCorrelate      Stage = "correlating"
	StageSave           Stage = "saving results"
	StageDone           Stage = "done"
)

// StatusUpdate is one progress notification during a run.
type StatusUpdate struct {
	Stage   Stage
	Fetched int
}

// RunOptions configures a single correlation run.
type RunOptions struct {
	// Exclusions removes known-bad agent names before correlation.
	Exclusions *registry.Exclusions
	// OutputPath is where the JSON mapping artifact goes; empty skips
	// the file entirely.
	OutputPath string
	// Tenant is recorded on the run for later reference.
	Tenant string
	// Notify, when non-nil, receives stage updates for the progress UI.
	Notify func(StatusUpdate)
}

// RunSummary is the outcome of one correlation run.
type RunSummary struct {
	RunID        string
	Mappings     []models.MappingResult
	Report       correlate.Report
	AgentCount   int
	RecordCount  int
	Excluded     int
	ArtifactPath string
}

// CorrelationService runs the correlation pipeline end to end.
type CorrelationService struct {
	agents     AgentSource
	directory  PrincipalSource
	store      RunStore // nil disables persistence
	correlator *correlate.Correlator
	logger     *slog.Logger
}

// NewCorrelationService wires the pipeline. store may be nil for
// fire-and-forget runs.
func NewCorrelationService(agents AgentSource, directory PrincipalSource, store RunStore, correlator *correlate.Correlator, logger *slog.Logger) *CorrelationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CorrelationService{
		agents:     agents,
		directory:  directory,
		store:      store,
		correlator: correlator,
		logger:     logger,
	}
}

// Run executes one correlation run. Fetch failures abort the run and
// mark it failed in the store; correlation itself cannot fail, only
// shrink, and every shrink is logged.
func (s *CorrelationService) Run(ctx context.Context, opts RunOptions) (*RunSummary, error) {
	notify := opts.Notify
	if notify == nil {
		notify = func(StatusUpdate) {}
	}

	runID := uuid.NewString()
	var tenant *string
	if opts.Tenant != "" {
		tenant = &opts.Tenant
	}

	if s.store != nil {
		if _, err := s.store.CreateRun(ctx, runID, tenant, s.correlator.Strategy()); err != nil {
			return nil, fmt.Errorf("record run start: %w", err)
		}
	}

	summary, err := s.run(ctx, runID, opts, notify)
	if err != nil {
		if s.store != nil {
			if failErr := s.store.FailRun(ctx, runID, err.Error()); failErr != nil {
				s.logger.Error("failed to mark run failed", "run", runID, "error", failErr)
			}
		}
		return nil, err
	}
	return summary, nil
}

func (s *CorrelationService) run(ctx context.Context, runID string, opts RunOptions, notify func(StatusUpdate)) (*RunSummary, error) {
	timer := metrics.NewCollector()

	notify(StatusUpdate{Stage: StageFetchAgents})
	timer.Start(string(StageFetchAgents))
	agents, err := s.agents.ListPublishedAgents(ctx)
	timer.Stop(string(StageFetchAgents))
	if err != nil {
		return nil, fmt.Errorf("fetch published agents: %w", err)
	}

	agents, excluded := opts.Exclusions.Apply(agents)
	if excluded > 0 {
		s.logger.Info("excluded agents before correlation", "run", runID, "excluded", excluded)
	}

	notify(StatusUpdate{Stage: StageFetchDirectory})
	timer.Start(string(StageFetchDirectory))
	records, err := s.directory.ListServicePrincipals(ctx, func(fetched int) {
		notify(StatusUpdate{Stage: StageFetchDirectory, Fetched: fetched})
	})
	timer.Stop(string(StageFetchDirectory))
	if err != nil {
		return nil, fmt.Errorf("query directory: %w", err)
	}

	notify(StatusUpdate{Stage: StageCorrelate})
	timer.Start(string(StageCorrelate))
	results, report := s.correlator.Correlate(agents, records)
	timer.Stop(string(StageCorrelate))

	// Shape mismatches degrade silently inside the correlator; the
	// warnings live here.
	for _, rec := range report.Dropped {
		s.logger.Warn("directory record dropped, cannot form a pair",
			"run", runID, "object_id", rec.ObjectID, "created_at", rec.CreatedAt)
	}
	if report.FilteredOut > 0 {
		s.logger.Warn("records outside the majority day were ignored",
			"run", runID, "filtered_out", report.FilteredOut)
	}
	if report.Unmatched > 0 {
		s.logger.Warn("published agents without a directory candidate",
			"run", runID, "unmatched", report.Unmatched)
	}

	summary := &RunSummary{
		RunID:       runID,
		Mappings:    results,
		Report:      report,
		AgentCount:  len(agents),
		RecordCount: len(records),
		Excluded:    excluded,
	}

	notify(StatusUpdate{Stage: StageSave})
	timer.Start(string(StageSave))
	if opts.OutputPath != "" {
		artifact, err := models.MarshalArtifact(results)
		if err != nil {
			return nil, fmt.Errorf("marshal artifact: %w", err)
		}
		if err := os.WriteFile(opts.OutputPath, artifact, 0644); err != nil {
			return nil, fmt.Errorf("write artifact: %w", err)
		}
		summary.ArtifactPath = opts.OutputPath
	}

	if s.store != nil {
		if err := s.store.InsertMappings(ctx, runID, results); err != nil {
			return nil, fmt.Errorf("persist mappings: %w", err)
		}

		done := db.RunCompletion{
			AgentCount:   len(agents),
			RecordCount:  len(records),
			MappingCount: len(results),
			FilteredOut:  report.FilteredOut,
			Excluded:     excluded,
		}
		if len(report.Dropped) > 0 {
			done.UnpairedObjectID = &report.Dropped[len(report.Dropped)-1].ObjectID
		}
		if summary.ArtifactPath != "" {
			done.ArtifactPath = &summary.ArtifactPath
		}
		if _, err := s.store.CompleteRun(ctx, runID, done); err != nil {
			return nil, fmt.Errorf("record run completion: %w", err)
		}
	}

	timer.Stop(string(StageSave))
	notify(StatusUpdate{Stage: StageDone})
	s.logger.Info("correlation run complete",
		"run", runID, "agents", len(agents), "records", len(records), "mappings", len(results))
	s.logger.Debug("stage timings", timer.Attrs()...)
	return summary, nil
}

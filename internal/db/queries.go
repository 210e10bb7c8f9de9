// Package db provides SurrealDB query functions for run history.
package db

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/entraops/entramap/internal/models"
)

func runRecordID(id string) surrealmodels.RecordID {
	return surrealmodels.NewRecordID("run", id)
}

// CreateRun records the start of a correlation run.
func (c *Client) CreateRun(ctx context.Context, id string, tenant *string, strategy string) (*models.CorrelationRun, error) {
	const sql = `
		CREATE $rid CONTENT {
			status: $status,
			tenant: $tenant,
			strategy: $strategy
		}
	`
	vars := map[string]any{
		"rid":      runRecordID(id),
		"status":   string(models.RunStatusRunning),
		"tenant":   tenant,
		"strategy": strategy,
	}

	results, err := surrealdb.Query[[]models.CorrelationRun](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("create run: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create run: empty result")
	}
	run := (*results)[0].Result[0]
	return &run, nil
}

// RunCompletion carries the final counters written when a run
// finishes successfully.
type RunCompletion struct {
	AgentCount       int
	RecordCount      int
	MappingCount     int
	UnpairedObjectID *string
	FilteredOut      int
	Excluded         int
	ArtifactPath     *string
}

// CompleteRun marks a run completed and stores its counters.
func (c *Client) CompleteRun(ctx context.Context, id string, done RunCompletion) (*models.CorrelationRun, error) {
	const sql = `
		UPDATE $rid SET
			status = $status,
			agent_count = $agent_count,
			record_count = $record_count,
			mapping_count = $mapping_count,
			unpaired_object_id = $unpaired_object_id,
			filtered_out = $filtered_out,
			excluded = $excluded,
			artifact_path = $artifact_path,
			completed_at = time::now()
	`
	vars := map[string]any{
		"rid":                runRecordID(id),
		"status":             string(models.RunStatusCompleted),
		"agent_count":        done.AgentCount,
		"record_count":       done.RecordCount,
		"mapping_count":      done.MappingCount,
		"unpaired_object_id": done.UnpairedObjectID,
		"filtered_out":       done.FilteredOut,
		"excluded":           done.Excluded,
		"artifact_path":      done.ArtifactPath,
	}

	results, err := surrealdb.Query[[]models.CorrelationRun](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("complete run: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("complete run %s: %w", id, ErrNotFound)
	}
	run := (*results)[0].Result[0]
	return &run, nil
}

// FailRun marks a run failed with the given reason.
func (c *Client) FailRun(ctx context.Context, id string, reason string) error {
	const sql = `
		UPDATE $rid SET
			status = $status,
			error = $error,
			completed_at = time::now()
	`
	vars := map[string]any{
		"rid":    runRecordID(id),
		"status": string(models.RunStatusFailed),
		"error":  reason,
	}
	if _, err := surrealdb.Query[any](ctx, c.db, sql, vars); err != nil {
		return fmt.Errorf("fail run: %w", wrapQueryError(err))
	}
	return nil
}

// InsertMappings persists the mapping results of a run.
func (c *Client) InsertMappings(ctx context.Context, runID string, results []models.MappingResult) error {
	if len(results) == 0 {
		return nil
	}

	rows := make([]map[string]any, len(results))
	for i, m := range results {
		rows[i] = map[string]any{
			"run_id":             runID,
			"agent_name":         m.AgentName,
			"object_id":          m.ObjectID,
			"confidence":         string(m.Confidence),
			"time_delta_seconds": m.TimeDelta.Seconds(),
			"position":           i,
		}
	}

	const sql = `INSERT INTO mapping $rows`
	if _, err := surrealdb.Query[any](ctx, c.db, sql, map[string]any{"rows": rows}); err != nil {
		return fmt.Errorf("insert mappings: %w", wrapQueryError(err))
	}
	return nil
}

// GetRun fetches a run by id.
func (c *Client) GetRun(ctx context.Context, id string) (*models.CorrelationRun, error) {
	const sql = `SELECT * FROM $rid`
	results, err := surrealdb.Query[[]models.CorrelationRun](ctx, c.db, sql, map[string]any{"rid": runRecordID(id)})
	if err != nil {
		return nil, fmt.Errorf("get run: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("get run %s: %w", id, ErrNotFound)
	}
	run := (*results)[0].Result[0]
	return &run, nil
}

// GetRunMappings fetches the stored mappings of a run in position order.
func (c *Client) GetRunMappings(ctx context.Context, runID string) ([]models.StoredMapping, error) {
	const sql = `SELECT * FROM mapping WHERE run_id = $run_id ORDER BY position ASC`
	results, err := surrealdb.Query[[]models.StoredMapping](ctx, c.db, sql, map[string]any{"run_id": runID})
	if err != nil {
		return nil, fmt.Errorf("get run mappings: %w", wrapQueryError(err))
	}
	if results != nil && len(*results) > 0 {
		return (*results)[0].Result, nil
	}
	return []models.StoredMapping{}, nil
}

// ListRuns returns runs newest-first. limit <= 0 means no limit.
func (c *Client) ListRuns(ctx context.Context, limit int) ([]models.CorrelationRun, error) {
	sql := `SELECT * FROM run ORDER BY started_at DESC`
	vars := map[string]any{}
	if limit > 0 {
		sql += ` LIMIT $limit`
		vars["limit"] = limit
	}

	results, err := surrealdb.Query[[]models.CorrelationRun](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", wrapQueryError(err))
	}
	if results != nil && len(*results) > 0 {
		return (*results)[0].Result, nil
	}
	return []models.CorrelationRun{}, nil
}

// LatestCompletedRun returns the most recent completed run, or
// ErrNotFound when no run has completed yet.
func (c *Client) LatestCompletedRun(ctx context.Context) (*models.CorrelationRun, error) {
	const sql = `SELECT * FROM run WHERE status = $status ORDER BY started_at DESC LIMIT 1`
	results, err := surrealdb.Query[[]models.CorrelationRun](ctx, c.db, sql, map[string]any{
		"status": string(models.RunStatusCompleted),
	})
	if err != nil {
		return nil, fmt.Errorf("latest completed run: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("latest completed run: %w", ErrNotFound)
	}
	run := (*results)[0].Result[0]
	return &run, nil
}

// DeleteRun removes a run and its mappings.
func (c *Client) DeleteRun(ctx context.Context, id string) error {
	const sql = `
		DELETE mapping WHERE run_id = $run_id;
		DELETE $rid;
	`
	vars := map[string]any{
		"run_id": id,
		"rid":    runRecordID(id),
	}
	if _, err := surrealdb.Query[any](ctx, c.db, sql, vars); err != nil {
		return fmt.Errorf("delete run: %w", wrapQueryError(err))
	}
	return nil
}

package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// RunStatus is the lifecycle state of a persisted correlation run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// CorrelationRun is one recorded execution of the correlation
// pipeline: what was fetched, what came out, and what was dropped
// along the way.
type CorrelationRun struct {
	ID           surrealmodels.RecordID `json:"id"`
	Status       RunStatus              `json:"status"`
	Tenant       *string                `json:"tenant,omitempty"`
	AgentCount   int                    `json:"agent_count"`
	RecordCount  int                    `json:"record_count"`
	MappingCount int                    `json:"mapping_count"`
	// ObjectID of the final unpaired directory record, when the
	// record list had odd length. Recorded so the silent drop stays
	// visible after the fact.
	UnpairedObjectID *string    `json:"unpaired_object_id,omitempty"`
	FilteredOut      int        `json:"filtered_out"`
	Excluded         int        `json:"excluded"`
	Strategy         string     `json:"strategy"`
	ArtifactPath     *string    `json:"artifact_path,omitempty"`
	Error            *string    `json:"error,omitempty"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// StoredMapping is a MappingResult as persisted alongside its run.
// The delta is stored as plain seconds, same as the artifact file.
type StoredMapping struct {
	ID               surrealmodels.RecordID `json:"id"`
	RunID            string                 `json:"run_id"`
	AgentName        string                 `json:"agent_name"`
	ObjectID         string                 `json:"object_id"`
	Confidence       string                 `json:"confidence"`
	TimeDeltaSeconds float64                `json:"time_delta_seconds"`
	Position         int                    `json:"position"`
}

// Result converts a stored mapping back to its in-memory form.
func (m StoredMapping) Result() (MappingResult, error) {
	conf, err := ParseConfidence(m.Confidence)
	if err != nil {
		return MappingResult{}, err
	}
	return MappingResult{
		AgentName:  m.AgentName,
		ObjectID:   m.ObjectID,
		Confidence: conf,
		TimeDelta:  time.Duration(m.TimeDeltaSeconds * float64(time.Second)),
	}, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/entraops/entramap/internal/directory"
	"github.com/entraops/entramap/internal/models"
)

// RunHistory reads stored runs. Satisfied by *db.Client.
type RunHistory interface {
	LatestCompletedRun(ctx context.Context) (*models.CorrelationRun, error)
	GetRun(ctx context.Context, id string) (*models.CorrelationRun, error)
	GetRunMappings(ctx context.Context, runID string) ([]models.StoredMapping, error)
}

// PrincipalLookup checks whether a single directory object still
// exists. Satisfied by *directory.Client.
type PrincipalLookup interface {
	GetServicePrincipal(ctx context.Context, objectID string) (*models.DirectoryRecord, error)
}

// Drift is one stored mapping whose directory object no longer
// resolves. Display names are not compared: the whole reason the
// correlation exists is that names on the two sides do not line up.
type Drift struct {
	Mapping models.StoredMapping
}

// VerifyResult reports how a stored run compares to the directory now.
type VerifyResult struct {
	RunID   string
	Checked int
	Drift   []Drift
}

// VerificationService re-checks stored mappings against the live
// directory.
type VerificationService struct {
	history RunHistory
	lookup  PrincipalLookup
	logger  *slog.Logger
}

// NewVerificationService creates a verifier over stored run history.
func NewVerificationService(history RunHistory, lookup PrincipalLookup, logger *slog.Logger) *VerificationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &VerificationService{history: history, lookup: lookup, logger: logger}
}

// VerifyRun checks every mapping of the given run (or the latest
// completed run when runID is empty) against the directory.
func (s *VerificationService) VerifyRun(ctx context.Context, runID string) (*VerifyResult, error) {
	var run *models.CorrelationRun
	var err error
	if runID == "" {
		run, err = s.history.LatestCompletedRun(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve latest run: %w", err)
		}
	} else {
		run, err = s.history.GetRun(ctx, runID)
		if err != nil {
			return nil, fmt.Errorf("resolve run %s: %w", runID, err)
		}
	}

	id, err := models.RecordIDString(run.ID)
	if err != nil {
		return nil, fmt.Errorf("run id: %w", err)
	}

	mappings, err := s.history.GetRunMappings(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load mappings: %w", err)
	}

	result := &VerifyResult{RunID: id}
	for _, m := range mappings {
		_, err := s.lookup.GetServicePrincipal(ctx, m.ObjectID)
		switch {
		case errors.Is(err, directory.ErrNotFound):
			s.logger.Warn("mapped service principal is gone",
				"run", id, "agent", m.AgentName, "object_id", m.ObjectID)
			result.Drift = append(result.Drift, Drift{Mapping: m})
		case err != nil:
			return nil, fmt.Errorf("check %s: %w", m.ObjectID, err)
		}
		result.Checked++
	}
	return result, nil
}

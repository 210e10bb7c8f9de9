package correlate

import "github.com/entraops/entramap/internal/models"

// Candidate is a directory record eligible to become an agent
// identity, together with the partner record it was paired against.
// Partner is nil when the strategy pairs nothing (first record under
// EveryRecord, for example).
type Candidate struct {
	Record  models.DirectoryRecord
	Partner *models.DirectoryRecord
}

// CandidateStrategy selects the eligible identity records from a list
// already sorted by creation time ascending. It returns the candidates
// in sorted order plus any records it had to drop.
//
// The platform behavior behind the default strategy has been observed
// to change between directory releases, so callers pick the strategy
// rather than the correlator hard-coding one.
type CandidateStrategy interface {
	// Name identifies the strategy in run records and logs.
	Name() string
	Candidates(sorted []models.DirectoryRecord) (candidates []Candidate, dropped []models.DirectoryRecord)
}

// AlternatePairs implements the observed Entra behavior of minting two
// service principals per published agent: records are taken as
// consecutive pairs and the second of each pair is the agent identity.
// An odd trailing record cannot form a pair and is dropped.
type AlternatePairs struct{}

func (AlternatePairs) Name() string { return "alternate-pairs" }

func (AlternatePairs) Candidates(sorted []models.DirectoryRecord) ([]Candidate, []models.DirectoryRecord) {
	var candidates []Candidate
	for i := 1; i < len(sorted); i += 2 {
		partner := sorted[i-1]
		candidates = append(candidates, Candidate{Record: sorted[i], Partner: &partner})
	}
	if len(sorted)%2 != 0 {
		return candidates, []models.DirectoryRecord{sorted[len(sorted)-1]}
	}
	return candidates, nil
}

// EveryRecord treats each directory record as its own candidate,
// disabling the pairing heuristic entirely. The partner is the
// preceding record, so time deltas still reflect creation spacing.
type EveryRecord struct{}

func (EveryRecord) Name() string { return "every-record" }

func (EveryRecord) Candidates(sorted []models.DirectoryRecord) ([]Candidate, []models.DirectoryRecord) {
	candidates := make([]Candidate, 0, len(sorted))
	for i, rec := range sorted {
		c := Candidate{Record: rec}
		if i > 0 {
			prev := sorted[i-1]
			c.Partner = &prev
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// StrategyByName resolves a strategy from its CLI/config name.
func StrategyByName(name string) (CandidateStrategy, bool) {
	switch name {
	case "", AlternatePairs{}.Name():
		return AlternatePairs{}, true
	case EveryRecord{}.Name():
		return EveryRecord{}, true
	default:
		return nil, false
	}
}

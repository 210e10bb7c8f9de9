// Package correlate pairs published agents with the directory service
// principals minted for them, using creation-time ordering as the only
// shared signal. The correlator is pure: no I/O, no ambient state, no
// mutation of its inputs.
package correlate

import (
	"sort"
	"time"

	"github.com/entraops/entramap/internal/models"
)

// DefaultConfidenceWindow is the largest pair spacing still reported
// as a high-confidence match.
const DefaultConfidenceWindow = 5 * time.Minute

// Correlator maps published agents to directory records.
type Correlator struct {
	strategy CandidateStrategy
	sameDay  bool
	window   time.Duration
}

// Option configures a Correlator.
type Option func(*Correlator)

// WithStrategy replaces the default AlternatePairs candidate strategy.
func WithStrategy(s CandidateStrategy) Option {
	return func(c *Correlator) { c.strategy = s }
}

// WithSameDayFilter restricts correlation to the records created on
// the majority calendar day, discarding stragglers from unrelated
// batches that share the query result.
func WithSameDayFilter(enabled bool) Option {
	return func(c *Correlator) { c.sameDay = enabled }
}

// WithConfidenceWindow overrides the high-confidence time window.
func WithConfidenceWindow(d time.Duration) Option {
	return func(c *Correlator) {
		if d > 0 {
			c.window = d
		}
	}
}

// New creates a Correlator. Defaults: AlternatePairs strategy, no
// same-day filter, 5 minute confidence window.
func New(opts ...Option) *Correlator {
	c := &Correlator{
		strategy: AlternatePairs{},
		window:   DefaultConfidenceWindow,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Strategy returns the name of the active candidate strategy.
func (c *Correlator) Strategy() string {
	return c.strategy.Name()
}

// Report describes what a Correlate call discarded. Shape mismatches
// never fail the call; they shrink the output and show up here so the
// caller can log them.
type Report struct {
	// Dropped holds records the strategy could not place, such as the
	// odd trailing record that cannot form a pair.
	Dropped []models.DirectoryRecord
	// FilteredOut counts records removed by the same-day filter.
	FilteredOut int
	// Unmatched counts published agents beyond the candidate supply.
	Unmatched int
}

// Correlate maps agents (in publish order) onto directory records.
//
// Records are sorted by creation time ascending, optionally reduced to
// the majority calendar day, passed through the candidate strategy,
// and zipped against the agents pairwise. The result has length
// min(len(agents), candidates); empty inputs yield an empty result.
// Calling twice with the same inputs returns the same output.
func (c *Correlator) Correlate(agents []models.PublishedAgent, records []models.DirectoryRecord) ([]models.MappingResult, Report) {
	var report Report

	sorted := make([]models.DirectoryRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].ObjectID < sorted[j].ObjectID
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	if c.sameDay {
		sorted, report.FilteredOut = sameDayMajority(sorted)
	}

	candidates, dropped := c.strategy.Candidates(sorted)
	report.Dropped = dropped

	n := min(len(agents), len(candidates))
	report.Unmatched = len(agents) - n

	results := make([]models.MappingResult, 0, n)
	for i := 0; i < n; i++ {
		cand := candidates[i]
		var delta time.Duration
		conf := models.ConfidenceMedium
		if cand.Partner != nil {
			delta = cand.Record.CreatedAt.Sub(cand.Partner.CreatedAt)
			if delta < 0 {
				delta = -delta
			}
			if delta <= c.window {
				conf = models.ConfidenceHigh
			}
		}
		results = append(results, models.MappingResult{
			AgentName:  agents[i].Name,
			ObjectID:   cand.Record.ObjectID,
			Confidence: conf,
			TimeDelta:  delta,
		})
	}
	return results, report
}

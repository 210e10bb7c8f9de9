package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Confidence labels how much trust the correlation places in a mapping.
type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
)

// ParseConfidence converts a stored label back to a Confidence.
func ParseConfidence(s string) (Confidence, error) {
	switch Confidence(s) {
	case ConfidenceHigh, ConfidenceMedium:
		return Confidence(s), nil
	default:
		return "", fmt.Errorf("unknown confidence label %q", s)
	}
}

// MappingResult associates one published agent with one directory
// object id. Immutable once created.
type MappingResult struct {
	AgentName  string        `json:"agent_name"`
	ObjectID   string        `json:"object_id"`
	Confidence Confidence    `json:"confidence"`
	TimeDelta  time.Duration `json:"time_delta"`
}

// artifactEntry is the on-disk shape of one mapping. The mapping file
// is a disposable run artifact: no versioning, no compatibility
// contract.
type artifactEntry struct {
	AgentName        string  `json:"agent_name"`
	ObjectID         string  `json:"object_id"`
	Confidence       string  `json:"confidence"`
	TimeDeltaSeconds float64 `json:"time_delta_seconds"`
}

// MarshalArtifact renders mappings as the JSON mapping file written at
// the end of a correlation run.
func MarshalArtifact(mappings []MappingResult) ([]byte, error) {
	entries := make([]artifactEntry, len(mappings))
	for i, m := range mappings {
		entries[i] = artifactEntry{
			AgentName:        m.AgentName,
			ObjectID:         m.ObjectID,
			Confidence:       string(m.Confidence),
			TimeDeltaSeconds: m.TimeDelta.Seconds(),
		}
	}
	return json.MarshalIndent(map[string]any{"mappings": entries}, "", "  ")
}

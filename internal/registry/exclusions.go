package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/entraops/entramap/internal/models"
)

// Exclusions is a caller-supplied set of agent names to drop before
// correlation. This is how deleted or rogue agents that still appear
// upstream are kept out of the pairing; the correlator itself never
// filters by name.
type Exclusions struct {
	names map[string]struct{}
}

// NewExclusions builds an exclusion set from a list of names.
func NewExclusions(names []string) *Exclusions {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return &Exclusions{names: set}
}

// exclusionsFile is the YAML shape of an exclusion file:
//
//	exclude:
//	  - rogue-agent
type exclusionsFile struct {
	Exclude []string `yaml:"exclude"`
}

// LoadExclusionsFile reads an exclusion set from a YAML file.
func LoadExclusionsFile(path string) (*Exclusions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read exclusions file: %w", err)
	}

	var parsed exclusionsFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse exclusions file %s: %w", path, err)
	}
	return NewExclusions(parsed.Exclude), nil
}

// Names returns the excluded names in no particular order.
func (e *Exclusions) Names() []string {
	if e == nil {
		return nil
	}
	names := make([]string, 0, len(e.names))
	for name := range e.names {
		names = append(names, name)
	}
	return names
}

// Len reports how many names are excluded.
func (e *Exclusions) Len() int {
	if e == nil {
		return 0
	}
	return len(e.names)
}

// Apply removes excluded agents, preserving the relative order of the
// rest. Returns the kept agents and the number removed.
func (e *Exclusions) Apply(agents []models.PublishedAgent) ([]models.PublishedAgent, int) {
	if e.Len() == 0 {
		return agents, 0
	}
	kept := make([]models.PublishedAgent, 0, len(agents))
	for _, agent := range agents {
		if _, excluded := e.names[agent.Name]; excluded {
			continue
		}
		kept = append(kept, agent)
	}
	return kept, len(agents) - len(kept)
}

package registry

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/entraops/entramap/internal/models"
)

// agentsFile is the YAML shape of a local agent list:
//
//	agents:
//	  - planner
//	  - reviewer
//
// The file order is taken as the publish order.
type agentsFile struct {
	Agents []string `yaml:"agents"`
}

// FileSource serves published agents from a YAML file instead of the
// project API, for scripted or offline runs.
type FileSource struct {
	path string
}

// NewFileSource creates a file-backed agent source.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// ListPublishedAgents reads the file fresh on every call.
func (s *FileSource) ListPublishedAgents(_ context.Context) ([]models.PublishedAgent, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read agents file: %w", err)
	}

	var parsed agentsFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse agents file %s: %w", s.path, err)
	}

	agents := make([]models.PublishedAgent, len(parsed.Agents))
	for i, name := range parsed.Agents {
		agents[i] = models.PublishedAgent{Name: name, PublishOrder: i}
	}
	return agents, nil
}

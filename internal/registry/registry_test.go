package registry

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"

	"github.com/entraops/entramap/internal/models"
)

type staticCredential string

func (s staticCredential) GetToken(ctx context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	return azcore.AccessToken{Token: string(s), ExpiresOn: time.Now().Add(time.Hour)}, nil
}

func TestListPublishedAgentsPagination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("order"); got != "asc" {
			t.Errorf("expected ascending order, got %q", got)
		}
		if r.URL.Query().Get("after") == "a-2" {
			fmt.Fprint(w, `{"data":[{"id":"a-3","name":"triage"}],"has_more":false}`)
			return
		}
		fmt.Fprint(w, `{"data":[{"id":"a-1","name":"planner"},{"id":"a-2","name":"reviewer"}],"has_more":true,"last_id":"a-2"}`)
	}))
	defer srv.Close()

	client := NewClient(Config{Endpoint: srv.URL, APIVersion: "2025-05-01"}, staticCredential("t"), nil)
	agents, err := client.ListPublishedAgents(context.Background())
	if err != nil {
		t.Fatalf("ListPublishedAgents failed: %v", err)
	}

	want := []string{"planner", "reviewer", "triage"}
	if len(agents) != len(want) {
		t.Fatalf("expected %d agents, got %d", len(want), len(agents))
	}
	for i, name := range want {
		if agents[i].Name != name {
			t.Errorf("agent %d: expected %q, got %q", i, name, agents[i].Name)
		}
		if agents[i].PublishOrder != i {
			t.Errorf("agent %q: expected publish order %d, got %d", name, i, agents[i].PublishOrder)
		}
	}
}

func TestListPublishedAgentsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "project not found", http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(Config{Endpoint: srv.URL, APIVersion: "2025-05-01"}, staticCredential("t"), nil)
	if _, err := client.ListPublishedAgents(context.Background()); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.yaml")
	content := "agents:\n  - planner\n  - reviewer\n  - triage\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	agents, err := NewFileSource(path).ListPublishedAgents(context.Background())
	if err != nil {
		t.Fatalf("ListPublishedAgents failed: %v", err)
	}
	if len(agents) != 3 {
		t.Fatalf("expected 3 agents, got %d", len(agents))
	}
	if agents[1].Name != "reviewer" || agents[1].PublishOrder != 1 {
		t.Errorf("unexpected second agent: %+v", agents[1])
	}
}

func TestFileSourceMissingFile(t *testing.T) {
	_, err := NewFileSource("/nonexistent/agents.yaml").ListPublishedAgents(context.Background())
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestExclusionsApply(t *testing.T) {
	agents := []models.PublishedAgent{
		{Name: "planner", PublishOrder: 0},
		{Name: "rogue", PublishOrder: 1},
		{Name: "reviewer", PublishOrder: 2},
	}

	kept, removed := NewExclusions([]string{"rogue"}).Apply(agents)
	if removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
	if len(kept) != 2 || kept[0].Name != "planner" || kept[1].Name != "reviewer" {
		t.Errorf("unexpected kept agents: %+v", kept)
	}
}

func TestExclusionsNilSafe(t *testing.T) {
	var e *Exclusions
	agents := []models.PublishedAgent{{Name: "planner"}}
	kept, removed := e.Apply(agents)
	if removed != 0 || len(kept) != 1 {
		t.Errorf("nil exclusions should be a no-op, got %d kept, %d removed", len(kept), removed)
	}
}

func TestLoadExclusionsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exclude.yaml")
	if err := os.WriteFile(path, []byte("exclude:\n  - rogue\n  - retired\n"), 0644); err != nil {
		t.Fatal(err)
	}

	exclusions, err := LoadExclusionsFile(path)
	if err != nil {
		t.Fatalf("LoadExclusionsFile failed: %v", err)
	}
	if exclusions.Len() != 2 {
		t.Errorf("expected 2 exclusions, got %d", exclusions.Len())
	}
}

// Package db provides integration tests for the run-history store.
package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/entraops/entramap/internal/models"
)

var testDB *Client
var testContainer testcontainers.Container

// TestMain sets up and tears down the SurrealDB container for all tests.
func TestMain(m *testing.M) {
	// Disable ryuk (cleanup container) as it can cause issues in some environments
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()

	var err error
	testContainer, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v3.0.0-beta.1",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--log", "info", "--user", "root", "--pass", "root"},
			WaitingFor:   wait.ForLog("Started web server").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("Failed to start SurrealDB container: %v", err)
	}

	host, err := testContainer.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	// Workaround: testcontainers may return "null" as host in some environments
	if host == "" || host == "null" {
		host = "localhost"
	}
	mappedPort, err := testContainer.MappedPort(ctx, "8000")
	if err != nil {
		log.Fatalf("Failed to get mapped port: %v", err)
	}

	testDB, err = NewClient(ctx, Config{
		URL:       fmt.Sprintf("ws://%s:%s/rpc", host, mappedPort.Port()),
		Namespace: "test",
		Database:  "test",
		Username:  "root",
		Password:  "root",
		AuthLevel: "root",
	}, nil)
	if err != nil {
		log.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := testDB.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	code := m.Run()

	_ = testDB.Close(ctx)
	_ = testContainer.Terminate(ctx)

	os.Exit(code)
}

func newTestRun(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	id := uuid.NewString()
	tenant := "contoso.onmicrosoft.com"
	run, err := testDB.CreateRun(ctx, id, &tenant, "alternate-pairs")
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if run.Status != models.RunStatusRunning {
		t.Fatalf("expected status running, got %s", run.Status)
	}
	return id
}

func TestCreateAndGetRun(t *testing.T) {
	ctx := context.Background()
	id := newTestRun(t)

	run, err := testDB.GetRun(ctx, id)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.Strategy != "alternate-pairs" {
		t.Errorf("expected strategy alternate-pairs, got %q", run.Strategy)
	}
	if run.Tenant == nil || *run.Tenant != "contoso.onmicrosoft.com" {
		t.Errorf("unexpected tenant: %v", run.Tenant)
	}
	if run.StartedAt.IsZero() {
		t.Error("expected started_at to be set")
	}
}

func TestGetRunNotFound(t *testing.T) {
	_, err := testDB.GetRun(context.Background(), uuid.NewString())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCompleteRun(t *testing.T) {
	ctx := context.Background()
	id := newTestRun(t)

	unpaired := "obj-99"
	artifact := "/tmp/agent_mapping.json"
	run, err := testDB.CompleteRun(ctx, id, RunCompletion{
		AgentCount:       4,
		RecordCount:      9,
		MappingCount:     4,
		UnpairedObjectID: &unpaired,
		FilteredOut:      0,
		Excluded:         1,
		ArtifactPath:     &artifact,
	})
	if err != nil {
		t.Fatalf("CompleteRun failed: %v", err)
	}

	if run.Status != models.RunStatusCompleted {
		t.Errorf("expected status completed, got %s", run.Status)
	}
	if run.MappingCount != 4 || run.RecordCount != 9 {
		t.Errorf("unexpected counters: %+v", run)
	}
	if run.UnpairedObjectID == nil || *run.UnpairedObjectID != "obj-99" {
		t.Errorf("expected unpaired object to be recorded, got %v", run.UnpairedObjectID)
	}
	if run.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}
}

func TestFailRun(t *testing.T) {
	ctx := context.Background()
	id := newTestRun(t)

	if err := testDB.FailRun(ctx, id, "directory query failed"); err != nil {
		t.Fatalf("FailRun failed: %v", err)
	}

	run, err := testDB.GetRun(ctx, id)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.Status != models.RunStatusFailed {
		t.Errorf("expected status failed, got %s", run.Status)
	}
	if run.Error == nil || *run.Error != "directory query failed" {
		t.Errorf("unexpected error field: %v", run.Error)
	}
}

func TestInsertAndGetMappings(t *testing.T) {
	ctx := context.Background()
	id := newTestRun(t)

	results := []models.MappingResult{
		{AgentName: "planner", ObjectID: "obj-1", Confidence: models.ConfidenceHigh, TimeDelta: time.Minute},
		{AgentName: "reviewer", ObjectID: "obj-3", Confidence: models.ConfidenceMedium, TimeDelta: 7 * time.Minute},
	}
	if err := testDB.InsertMappings(ctx, id, results); err != nil {
		t.Fatalf("InsertMappings failed: %v", err)
	}

	stored, err := testDB.GetRunMappings(ctx, id)
	if err != nil {
		t.Fatalf("GetRunMappings failed: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 mappings, got %d", len(stored))
	}
	if stored[0].AgentName != "planner" || stored[1].AgentName != "reviewer" {
		t.Errorf("mappings out of position order: %+v", stored)
	}

	roundTrip, err := stored[1].Result()
	if err != nil {
		t.Fatalf("Result conversion failed: %v", err)
	}
	if roundTrip.Confidence != models.ConfidenceMedium || roundTrip.TimeDelta != 7*time.Minute {
		t.Errorf("unexpected round-trip mapping: %+v", roundTrip)
	}
}

func TestInsertMappingsEmpty(t *testing.T) {
	if err := testDB.InsertMappings(context.Background(), uuid.NewString(), nil); err != nil {
		t.Errorf("empty insert should be a no-op, got %v", err)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	first := newTestRun(t)
	time.Sleep(10 * time.Millisecond)
	second := newTestRun(t)

	runs, err := testDB.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) < 2 {
		t.Fatalf("expected at least 2 runs, got %d", len(runs))
	}

	var firstIdx, secondIdx = -1, -1
	for i, run := range runs {
		id, err := models.RecordIDString(run.ID)
		if err != nil {
			t.Fatalf("unexpected run id: %v", err)
		}
		switch id {
		case first:
			firstIdx = i
		case second:
			secondIdx = i
		}
	}
	if firstIdx == -1 || secondIdx == -1 {
		t.Fatal("created runs missing from list")
	}
	if secondIdx > firstIdx {
		t.Errorf("expected newest run first, got positions %d and %d", secondIdx, firstIdx)
	}
}

func TestLatestCompletedRun(t *testing.T) {
	ctx := context.Background()
	id := newTestRun(t)
	if _, err := testDB.CompleteRun(ctx, id, RunCompletion{AgentCount: 1, MappingCount: 1}); err != nil {
		t.Fatalf("CompleteRun failed: %v", err)
	}

	latest, err := testDB.LatestCompletedRun(ctx)
	if err != nil {
		t.Fatalf("LatestCompletedRun failed: %v", err)
	}
	if latest.Status != models.RunStatusCompleted {
		t.Errorf("expected completed run, got %s", latest.Status)
	}
}

func TestDeleteRun(t *testing.T) {
	ctx := context.Background()
	id := newTestRun(t)
	if err := testDB.InsertMappings(ctx, id, []models.MappingResult{
		{AgentName: "planner", ObjectID: "obj-1", Confidence: models.ConfidenceHigh},
	}); err != nil {
		t.Fatalf("InsertMappings failed: %v", err)
	}

	if err := testDB.DeleteRun(ctx, id); err != nil {
		t.Fatalf("DeleteRun failed: %v", err)
	}

	if _, err := testDB.GetRun(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	mappings, err := testDB.GetRunMappings(ctx, id)
	if err != nil {
		t.Fatalf("GetRunMappings failed: %v", err)
	}
	if len(mappings) != 0 {
		t.Errorf("expected mappings removed with run, got %d", len(mappings))
	}
}

// Package registry supplies the published-agent side of a correlation:
// agent names in the order they were published, from the agent project
// API or from a local file.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"

	"github.com/entraops/entramap/internal/models"
)

const projectScope = "https://ai.azure.com/.default"

// Config holds agent project API configuration.
type Config struct {
	// Endpoint is the project root, e.g.
	// https://myproject.services.ai.azure.com/api/projects/myproject.
	Endpoint   string
	APIVersion string
}

// Client lists published agents from an agent project endpoint.
type Client struct {
	cfg        Config
	cred       azcore.TokenCredential
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a project API client. A nil logger falls back to
// slog.Default().
func NewClient(cfg Config, cred azcore.TokenCredential, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:        cfg,
		cred:       cred,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
	}
}

// agentEntry is the wire shape of one published agent.
type agentEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type listAgentsResponse struct {
	Data    []agentEntry `json:"data"`
	HasMore bool         `json:"has_more"`
	LastID  string       `json:"last_id"`
}

// ListPublishedAgents returns all agents in ascending publish order,
// following cursor pagination until exhausted.
func (c *Client) ListPublishedAgents(ctx context.Context) ([]models.PublishedAgent, error) {
	token, err := c.cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{projectScope}})
	if err != nil {
		return nil, fmt.Errorf("acquire project token: %w", err)
	}

	var agents []models.PublishedAgent
	after := ""
	for {
		query := url.Values{}
		query.Set("api-version", c.cfg.APIVersion)
		query.Set("order", "asc")
		query.Set("limit", "100")
		if after != "" {
			query.Set("after", after)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Endpoint+"/agents?"+query.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token.Token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("list agents: %w", err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("project API error: %s - %s", resp.Status, string(body))
		}

		var page listAgentsResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("unmarshal response: %w", err)
		}

		for _, entry := range page.Data {
			agents = append(agents, models.PublishedAgent{
				Name:         entry.Name,
				PublishOrder: len(agents),
			})
		}
		if !page.HasMore || page.LastID == "" {
			break
		}
		after = page.LastID
	}

	c.logger.Debug("project query complete", "agents", len(agents))
	return agents, nil
}

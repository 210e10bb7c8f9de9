// Package directory queries Microsoft Graph for service principals.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/cenkalti/backoff/v4"

	"github.com/entraops/entramap/internal/models"
)

const graphScope = "https://graph.microsoft.com/.default"

// ErrNotFound indicates the requested service principal does not
// exist (or was deleted since the last correlation run).
var ErrNotFound = errors.New("service principal not found")

// Config holds Graph client configuration.
type Config struct {
	// BaseURL is the Graph API root, e.g. https://graph.microsoft.com/v1.0.
	BaseURL string
	// PageSize is the $top value per page (Graph caps this at 999).
	PageSize int
	// NamePrefix, when set, becomes a startswith(displayName, ...) filter.
	NamePrefix string
}

// Client lists service principals from Microsoft Graph. Authentication
// comes from the injected credential; the client itself never touches
// the environment.
type Client struct {
	cfg        Config
	cred       azcore.TokenCredential
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Graph client. A nil logger falls back to
// slog.Default().
func NewClient(cfg Config, cred azcore.TokenCredential, logger *slog.Logger) *Client {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
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

// servicePrincipal is the Graph wire shape, reduced to the fields the
// correlator needs.
type servicePrincipal struct {
	ID              string    `json:"id"`
	AppID           string    `json:"appId"`
	DisplayName     string    `json:"displayName"`
	CreatedDateTime time.Time `json:"createdDateTime"`
}

func (sp servicePrincipal) record() models.DirectoryRecord {
	return models.DirectoryRecord{
		ObjectID:    sp.ID,
		AppID:       sp.AppID,
		DisplayName: sp.DisplayName,
		CreatedAt:   sp.CreatedDateTime,
	}
}

type listResponse struct {
	Value    []servicePrincipal `json:"value"`
	NextLink string             `json:"@odata.nextLink"`
}

type graphError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ListServicePrincipals fetches all service principals, following
// @odata.nextLink until exhausted. onPage, when non-nil, is called
// after each page with the running record count.
func (c *Client) ListServicePrincipals(ctx context.Context, onPage func(fetched int)) ([]models.DirectoryRecord, error) {
	token, err := c.cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{graphScope}})
	if err != nil {
		return nil, fmt.Errorf("acquire graph token: %w", err)
	}

	query := url.Values{}
	query.Set("$select", "id,appId,displayName,createdDateTime")
	query.Set("$top", fmt.Sprintf("%d", c.cfg.PageSize))
	if c.cfg.NamePrefix != "" {
		query.Set("$filter", fmt.Sprintf("startswith(displayName,'%s')", c.cfg.NamePrefix))
	}

	next := c.cfg.BaseURL + "/servicePrincipals?" + query.Encode()
	var records []models.DirectoryRecord
	pages := 0
	for next != "" {
		var page listResponse
		if err := c.get(ctx, next, token.Token, &page); err != nil {
			return nil, fmt.Errorf("list service principals (page %d): %w", pages+1, err)
		}
		for _, sp := range page.Value {
			records = append(records, sp.record())
		}
		pages++
		if onPage != nil {
			onPage(len(records))
		}
		next = page.NextLink
	}

	c.logger.Debug("directory query complete", "records", len(records), "pages", pages)
	return records, nil
}

// GetServicePrincipal fetches a single service principal by object id.
// Returns ErrNotFound when the directory no longer has the object.
func (c *Client) GetServicePrincipal(ctx context.Context, objectID string) (*models.DirectoryRecord, error) {
	token, err := c.cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{graphScope}})
	if err != nil {
		return nil, fmt.Errorf("acquire graph token: %w", err)
	}

	u := fmt.Sprintf("%s/servicePrincipals/%s?%s", c.cfg.BaseURL, url.PathEscape(objectID),
		url.Values{"$select": []string{"id,appId,displayName,createdDateTime"}}.Encode())

	var sp servicePrincipal
	if err := c.get(ctx, u, token.Token, &sp); err != nil {
		return nil, fmt.Errorf("get service principal %s: %w", objectID, err)
	}
	rec := sp.record()
	return &rec, nil
}

// get performs an authenticated GET with retry on throttling and
// transient server errors.
func (c *Client) get(ctx context.Context, rawURL, token string, out any) error {
	bo := newGraphBackOff()
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("execute request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			if err := json.Unmarshal(body, out); err != nil {
				return backoff.Permanent(fmt.Errorf("unmarshal response: %w", err))
			}
			return nil
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(ErrNotFound)
		case retriable(resp.StatusCode):
			c.logger.Warn("graph request throttled, retrying",
				"status", resp.StatusCode, "retry_after", resp.Header.Get("Retry-After"))
			bo.noteRetryAfter(parseRetryAfter(resp.Header.Get("Retry-After")))
			return &transientError{status: resp.Status}
		default:
			var ge graphError
			if json.Unmarshal(body, &ge) == nil && ge.Error.Code != "" {
				return backoff.Permanent(fmt.Errorf("graph error %s: %s", ge.Error.Code, ge.Error.Message))
			}
			return backoff.Permanent(fmt.Errorf("graph error: %s", resp.Status))
		}
	}

	return backoff.Retry(op, backoff.WithContext(bo, ctx))
}

func retriable(status int) bool {
	return status == http.StatusTooManyRequests ||
		status == http.StatusServiceUnavailable ||
		status == http.StatusGatewayTimeout ||
		status == http.StatusBadGateway
}

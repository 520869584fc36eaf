package hass

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RequestTimeout bounds every request made by the client
const RequestTimeout = 10 * time.Second

// Client calls the Home Assistant REST API with a long-lived access token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a new Home Assistant client
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: RequestTimeout,
		},
	}
}

// RunAction invokes the entity identified by "<domain>.<name>", choosing the
// service verb from its domain.
func (c *Client) RunAction(ctx context.Context, entityID string) error {
	domain, _, err := SplitEntityID(entityID)
	if err != nil {
		return err
	}

	return c.CallService(ctx, domain, ServiceForDomain(domain), entityID)
}

// CallService calls POST /api/services/<domain>/<service> targeting one entity.
func (c *Client) CallService(ctx context.Context, domain, service, entityID string) error {
	body, err := json.Marshal(map[string]string{"entity_id": entityID})
	if err != nil {
		return fmt.Errorf("failed to marshal service data: %w", err)
	}

	path := fmt.Sprintf("/api/services/%s/%s", url.PathEscape(domain), url.PathEscape(service))
	resp, err := c.do(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to call %s.%s: %w", domain, service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to call %s.%s: HTTP %d", domain, service, resp.StatusCode)
	}

	return nil
}

// GetState retrieves the current state of one entity.
func (c *Client) GetState(ctx context.Context, entityID string) (*EntityState, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/states/"+url.PathEscape(entityID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get state of %s: %w", entityID, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("entity %s not found", entityID)
	default:
		return nil, fmt.Errorf("failed to get state of %s: HTTP %d", entityID, resp.StatusCode)
	}

	var state EntityState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return nil, fmt.Errorf("failed to parse state of %s: %w", entityID, err)
	}

	return &state, nil
}

// Snapshot builds a snapshot holding the given entities.
// Entities that cannot be fetched are left out; an error is returned only
// when none could be fetched.
func (c *Client) Snapshot(ctx context.Context, entityIDs []string) (Snapshot, error) {
	snapshot := make(Snapshot, len(entityIDs))

	var lastErr error
	for _, id := range entityIDs {
		state, err := c.GetState(ctx, id)
		if err != nil {
			lastErr = err
			continue
		}
		snapshot[id] = *state
	}

	if len(snapshot) == 0 && lastErr != nil {
		return nil, lastErr
	}

	return snapshot, nil
}

// do issues an authenticated request. The client timeout bounds the whole
// exchange including reading the body.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	return c.httpClient.Do(req)
}

package nws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	// DefaultBaseURL is the public weather.gov API root
	DefaultBaseURL = "https://api.weather.gov"

	// RequestTimeout bounds every request made by the client
	RequestTimeout = 10 * time.Second
)

// Client talks to the National Weather Service API.
// Every request identifies the caller with the configured contact address,
// as the API's terms of use require.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewClient creates a new NWS API client. An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL, contact string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		baseURL:   baseURL,
		userAgent: fmt.Sprintf("Home Assistant Custom Card / %s", contact),
		httpClient: &http.Client{
			Timeout: RequestTimeout,
		},
	}
}

// FetchActiveAlerts retrieves the active alerts for a zone.
func (c *Client) FetchActiveAlerts(ctx context.Context, zone string) (*AlertsResponse, error) {
	var resp AlertsResponse
	if err := c.get(ctx, "/alerts/active/zone/"+url.PathEscape(zone), &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch alerts for zone %s: %w", zone, err)
	}

	return &resp, nil
}

// LookupPoint resolves a coordinate pair to its points metadata.
func (c *Client) LookupPoint(ctx context.Context, lat, lon float64) (*PointResponse, error) {
	path := fmt.Sprintf("/points/%s,%s",
		strconv.FormatFloat(lat, 'f', -1, 64),
		strconv.FormatFloat(lon, 'f', -1, 64))

	var resp PointResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("failed to look up point %v,%v: %w", lat, lon, err)
	}

	return &resp, nil
}

// FetchZone retrieves forecast zone metadata.
func (c *Client) FetchZone(ctx context.Context, zone string) (*ZoneResponse, error) {
	var resp ZoneResponse
	if err := c.get(ctx, "/zones/forecast/"+url.PathEscape(zone), &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch zone %s: %w", zone, err)
	}

	return &resp, nil
}

// ListZones retrieves every zone known to the API.
func (c *Client) ListZones(ctx context.Context) ([]ZoneProperties, error) {
	var resp ZoneListResponse
	if err := c.get(ctx, "/zones", &resp); err != nil {
		return nil, fmt.Errorf("failed to list zones: %w", err)
	}

	zones := make([]ZoneProperties, 0, len(resp.Features))
	for _, f := range resp.Features {
		zones = append(zones, f.Properties)
	}

	return zones, nil
}

// get issues a GET request and decodes a JSON body into out.
// Any non-2xx status is an error.
func (c *Client) get(ctx context.Context, path string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/geo+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var problem ProblemDetail
		if err := json.NewDecoder(resp.Body).Decode(&problem); err == nil && problem.Title != "" {
			return fmt.Errorf("HTTP %d: %s", resp.StatusCode, problem.Error())
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	return nil
}

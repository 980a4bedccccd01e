package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/velstore/posgo/internal/config"
)

// HTTPClient implements Client over the backend's JSON REST API
type HTTPClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewHTTPClient creates a remote client from configuration
func NewHTTPClient(cfg config.RemoteConfig) *HTTPClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:    100,
				IdleConnTimeout: 90 * time.Second,
			},
		},
	}
}

func (c *HTTPClient) entityURL(tenantID, entityType, entityID string) string {
	u := fmt.Sprintf("%s/api/v1/%s/%s", c.baseURL, url.PathEscape(tenantID), url.PathEscape(entityType))
	if entityID != "" {
		u += "/" + url.PathEscape(entityID)
	}
	return u
}

func (c *HTTPClient) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	return c.http.Do(req)
}

// Push applies one local mutation remotely
func (c *HTTPClient) Push(ctx context.Context, tenantID, entityType, operation, entityID string, payload json.RawMessage) error {
	var req *http.Request
	var err error

	switch operation {
	case "delete":
		req, err = http.NewRequestWithContext(ctx, http.MethodDelete, c.entityURL(tenantID, entityType, entityID), nil)
	case "create", "update":
		req, err = http.NewRequestWithContext(ctx, http.MethodPut, c.entityURL(tenantID, entityType, entityID), bytes.NewReader(payload))
	default:
		return fmt.Errorf("unsupported operation %q", operation)
	}
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("remote push failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("remote rejected %s %s/%s: HTTP %d: %s",
			operation, entityType, entityID, resp.StatusCode, string(body))
	}
	return nil
}

// PullSince fetches the delta window for one entity type
func (c *HTTPClient) PullSince(ctx context.Context, tenantID, entityType string, since time.Time) ([]Record, error) {
	u := c.entityURL(tenantID, entityType, "") + "?updated_since=" + url.QueryEscape(since.UTC().Format(time.RFC3339Nano))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("remote pull failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("remote pull of %s: HTTP %d: %s", entityType, resp.StatusCode, string(body))
	}

	var out struct {
		Records []Record `json:"records"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode %s delta: %w", entityType, err)
	}
	return out.Records, nil
}

// Healthy probes the backend health endpoint
func (c *HTTPClient) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 400
}

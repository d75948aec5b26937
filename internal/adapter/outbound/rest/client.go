// Package rest calls the org platform's REST API directly for operations
// where the CLI round trip is needless overhead. Connection details come
// from the CLI's credential store via the runner port.
package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/orggate/orggate/internal/port/outbound"
)

// maxResponseBytes caps a single REST response body.
const maxResponseBytes = 10 << 20

const defaultAPIVersion = "62.0"

// Client issues authenticated REST requests against an org instance.
type Client struct {
	http *http.Client
}

// New creates a REST client. httpClient may be nil for a default with a
// 30 second timeout.
func New(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{http: httpClient}
}

// QueryResult is the platform's paged query response.
type QueryResult struct {
	TotalSize      int               `json:"totalSize"`
	Done           bool              `json:"done"`
	NextRecordsURL string            `json:"nextRecordsUrl,omitempty"`
	Records        []json.RawMessage `json:"records"`
}

// Query runs a SOQL query against the org. The platform's error body is
// mapped to *outbound.RunnerError so callers see the same structured
// failure shape as CLI errors.
func (c *Client) Query(ctx context.Context, conn *outbound.OrgConnection, soql string) (*QueryResult, error) {
	endpoint := fmt.Sprintf("%s/services/data/v%s/query?q=%s",
		strings.TrimRight(conn.InstanceURL, "/"),
		apiVersion(conn),
		url.QueryEscape(soql),
	)

	body, err := c.get(ctx, conn, endpoint)
	if err != nil {
		return nil, err
	}
	var result QueryResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parsing query response: %w", err)
	}
	return &result, nil
}

// QueryMore fetches the next page of a previous query.
func (c *Client) QueryMore(ctx context.Context, conn *outbound.OrgConnection, nextRecordsURL string) (*QueryResult, error) {
	endpoint := strings.TrimRight(conn.InstanceURL, "/") + nextRecordsURL
	body, err := c.get(ctx, conn, endpoint)
	if err != nil {
		return nil, err
	}
	var result QueryResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parsing query response: %w", err)
	}
	return &result, nil
}

func (c *Client) get(ctx context.Context, conn *outbound.OrgConnection, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+conn.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling org REST API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, restError(resp.StatusCode, body)
	}
	return body, nil
}

// restError maps the platform's error body, a JSON array of
// {message, errorCode} objects, into a structured runner error.
func restError(status int, body []byte) *outbound.RunnerError {
	var apiErrs []struct {
		Message   string `json:"message"`
		ErrorCode string `json:"errorCode"`
	}
	if err := json.Unmarshal(body, &apiErrs); err == nil && len(apiErrs) > 0 {
		return &outbound.RunnerError{
			Name:     apiErrs[0].ErrorCode,
			Message:  apiErrs[0].Message,
			ExitCode: status,
		}
	}
	return &outbound.RunnerError{
		Name:     "RestError",
		Message:  fmt.Sprintf("org REST API returned HTTP %d", status),
		ExitCode: status,
		Context:  map[string]any{"body": string(body)},
	}
}

func apiVersion(conn *outbound.OrgConnection) string {
	if conn.APIVersion != "" {
		return conn.APIVersion
	}
	return defaultAPIVersion
}

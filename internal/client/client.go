// Package client provides an HTTP client for the factgraph server API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/mwierzba/factgraph/internal/db"
	"github.com/mwierzba/factgraph/internal/metrics"
	"github.com/mwierzba/factgraph/internal/models"
	"github.com/mwierzba/factgraph/internal/pipeline"
)

// Client talks to a running factgraph server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new API client.
// If endpoint is empty, uses FACTGRAPH_SERVER_URL env var or defaults to
// localhost:8080. Timeout can be configured via FACTGRAPH_CLIENT_TIMEOUT
// env var (default 10m; pipeline runs triggered by submit can be slow).
func New(endpoint string) *Client {
	if endpoint == "" {
		endpoint = os.Getenv("FACTGRAPH_SERVER_URL")
	}
	if endpoint == "" {
		endpoint = "http://localhost:8080"
	}

	timeout := 10 * time.Minute
	if t := os.Getenv("FACTGRAPH_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// apiError is the echo error envelope.
type apiError struct {
	Message any `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr apiError
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Message != nil {
			return fmt.Errorf("server error (%d): %v", resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, string(data))
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// Health checks the server is reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// SubmitResult is the server's answer to a submit call.
type SubmitResult struct {
	JobUUID string `json:"job_uuid"`
	Status  string `json:"status"`
}

// Submit sends an item batch for analysis. When process is false the job
// is stored without starting a run.
func (c *Client) Submit(ctx context.Context, items []models.ItemSpec, language string, process bool, opts *pipeline.Options) (*SubmitResult, error) {
	req := map[string]any{
		"items":    items,
		"language": language,
		"process":  process,
	}
	if opts != nil {
		req["options"] = opts
	}

	var result SubmitResult
	if err := c.do(ctx, http.MethodPost, "/api/submit", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListJobs returns recent jobs, newest first.
func (c *Client) ListJobs(ctx context.Context, limit int) ([]models.Job, error) {
	path := "/api/jobs"
	if limit > 0 {
		path += "?limit=" + url.QueryEscape(fmt.Sprint(limit))
	}

	var jobs []models.Job
	if err := c.do(ctx, http.MethodGet, path, nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// JobStatus is the full job view the server returns.
type JobStatus struct {
	models.JobDetail
	Steps []models.Step `json:"steps"`
	Facts []models.Fact `json:"facts"`
}

// GetJob fetches the job with its items, steps and facts.
func (c *Client) GetJob(ctx context.Context, jobUUID string) (*JobStatus, error) {
	var status JobStatus
	if err := c.do(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(jobUUID), nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetJobNodes lists a job's graph nodes, optionally filtered by kind.
func (c *Client) GetJobNodes(ctx context.Context, jobUUID string, kind models.NodeKind) ([]models.Node, error) {
	path := "/api/jobs/" + url.PathEscape(jobUUID) + "/nodes"
	if kind != "" {
		path += "?type=" + url.QueryEscape(string(kind))
	}

	var nodes []models.Node
	if err := c.do(ctx, http.MethodGet, path, nil, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

// GetNodeRelations lists a node's edges in the given direction.
func (c *Client) GetNodeRelations(ctx context.Context, nodeID string, direction models.RelationDirection) ([]models.Relation, error) {
	path := "/api/nodes/" + url.PathEscape(nodeID) + "/relations"
	if direction != "" {
		path += "?direction=" + url.QueryEscape(string(direction))
	}

	var relations []models.Relation
	if err := c.do(ctx, http.MethodGet, path, nil, &relations); err != nil {
		return nil, err
	}
	return relations, nil
}

// GetReport fetches a completed job's report.
func (c *Client) GetReport(ctx context.Context, jobUUID string) (*models.Report, error) {
	var report models.Report
	if err := c.do(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(jobUUID)+"/report", nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// SearchResult mirrors the server's corpus search payload.
type SearchResult struct {
	Query   string           `json:"query"`
	Matches []db.CorpusMatch `json:"matches"`
}

// Search finds validated corpus facts similar to the query text.
func (c *Client) Search(ctx context.Context, query string, limit int) (*SearchResult, error) {
	path := "/api/search?q=" + url.QueryEscape(query)
	if limit > 0 {
		path += "&limit=" + url.QueryEscape(fmt.Sprint(limit))
	}

	var result SearchResult
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Stats mirrors the server's stats payload.
type Stats struct {
	Database *db.Stats         `json:"database"`
	Runtime  *metrics.Snapshot `json:"runtime,omitempty"`
}

// GetStats fetches table counts and runtime metrics.
func (c *Client) GetStats(ctx context.Context) (*Stats, error) {
	var stats Stats
	if err := c.do(ctx, http.MethodGet, "/api/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

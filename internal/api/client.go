package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client talks to a running daemon over its localhost HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for the daemon bound at bind (host:port).
func NewClient(bind string) *Client {
	return &Client{
		baseURL: "http://" + strings.TrimSpace(bind),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Status fetches the daemon status summary.
func (c *Client) Status(ctx context.Context) (StatusView, error) {
	var view StatusView
	err := c.get(ctx, "/api/status", nil, &view)
	return view, err
}

// Submit enqueues a conversion job and returns its ID.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode submit request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/jobs", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var resp SubmitResponse
	if err := c.do(httpReq, &resp); err != nil {
		return "", err
	}
	return resp.JobID, nil
}

// ListJobs fetches jobs newest-first, optionally filtered by status.
func (c *Client) ListJobs(ctx context.Context, status string, limit, offset int) ([]JobView, error) {
	query := url.Values{}
	if status != "" {
		query.Set("status", status)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		query.Set("offset", strconv.Itoa(offset))
	}
	var resp JobListResponse
	if err := c.get(ctx, "/api/jobs", query, &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

// GetJob fetches one job by ID.
func (c *Client) GetJob(ctx context.Context, jobID string) (JobView, error) {
	var view JobView
	err := c.get(ctx, "/api/jobs/"+url.PathEscape(jobID), nil, &view)
	return view, err
}

// GetProgress fetches the current progress estimate for a job.
func (c *Client) GetProgress(ctx context.Context, jobID string) (ProgressView, error) {
	var view ProgressView
	err := c.get(ctx, "/api/jobs/"+url.PathEscape(jobID)+"/progress", nil, &view)
	return view, err
}

// GetResult fetches the terminal result for a job.
func (c *Client) GetResult(ctx context.Context, jobID string) (ResultView, error) {
	var view ResultView
	err := c.get(ctx, "/api/jobs/"+url.PathEscape(jobID)+"/result", nil, &view)
	return view, err
}

// Cleanup asks the daemon to sweep terminal jobs older than the given number
// of hours. A negative value defers to the daemon's configured retention.
func (c *Client) Cleanup(ctx context.Context, olderThanHours int) (CleanupResponse, error) {
	target := c.baseURL + "/api/cleanup"
	if olderThanHours >= 0 {
		target += "?older_than_hours=" + strconv.Itoa(olderThanHours)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, nil)
	if err != nil {
		return CleanupResponse{}, err
	}
	var resp CleanupResponse
	if err := c.do(req, &resp); err != nil {
		return CleanupResponse{}, err
	}
	return resp, nil
}

// Cancel requests cooperative cancellation of a job.
func (c *Client) Cancel(ctx context.Context, jobID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/jobs/"+url.PathEscape(jobID), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon error (%d): %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("daemon error: %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode daemon response: %w", err)
	}
	return nil
}

package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"gomokuplane/pkg/api"
)

// Client handles API calls to the gomokuplane server.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewClient creates a new client with the given base URL and token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// do sends the request and decodes a 2xx body into out when out is non-nil.
func (c *Client) do(method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	target := c.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequest(method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// errorMessage prefers the "error" field of a JSON error body.
func errorMessage(body []byte) string {
	var e api.ErrorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return e.Error
	}
	return string(bytes.TrimSpace(body))
}

func limitQuery(limit int) url.Values {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}

// CreateAgent sends POST /agents.
func (c *Client) CreateAgent(req api.CreateAgentRequest) (*api.Agent, error) {
	var out api.Agent
	if err := c.do(http.MethodPost, "/agents", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListAgents sends GET /agents.
func (c *Client) ListAgents(activeOnly bool) ([]api.Agent, error) {
	q := url.Values{}
	if activeOnly {
		q.Set("active", "true")
	}
	var out []api.Agent
	if err := c.do(http.MethodGet, "/agents", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Leaderboard sends GET /leaderboard.
func (c *Client) Leaderboard(limit int) ([]api.Agent, error) {
	var out []api.Agent
	if err := c.do(http.MethodGet, "/leaderboard", limitQuery(limit), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateTournament sends POST /tournaments, which also enqueues its job.
func (c *Client) CreateTournament(req api.CreateTournamentRequest) (*api.CreateTournamentResponse, error) {
	var out api.CreateTournamentResponse
	if err := c.do(http.MethodPost, "/tournaments", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTournaments sends GET /tournaments.
func (c *Client) ListTournaments(status string, limit int) ([]api.Tournament, error) {
	q := limitQuery(limit)
	if status != "" {
		q.Set("status", status)
	}
	var out []api.Tournament
	if err := c.do(http.MethodGet, "/tournaments", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTournament sends GET /tournaments/{id}.
func (c *Client) GetTournament(id int64) (*api.TournamentDetail, error) {
	var out api.TournamentDetail
	if err := c.do(http.MethodGet, fmt.Sprintf("/tournaments/%d", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelTournament sends POST /tournaments/{id}/cancel.
func (c *Client) CancelTournament(id int64) error {
	return c.do(http.MethodPost, fmt.Sprintf("/tournaments/%d/cancel", id), nil, nil, nil)
}

// DeleteTournament sends DELETE /tournaments/{id}.
func (c *Client) DeleteTournament(id int64) error {
	return c.do(http.MethodDelete, fmt.Sprintf("/tournaments/%d", id), nil, nil, nil)
}

// QueueStatus sends GET /admin/queue.
func (c *Client) QueueStatus() (*api.QueueStatus, error) {
	var out api.QueueStatus
	if err := c.do(http.MethodGet, "/admin/queue", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health sends GET /admin/health.
func (c *Client) Health() (*api.HealthStatus, error) {
	var out api.HealthStatus
	if err := c.do(http.MethodGet, "/admin/health", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RecoveryStatus sends GET /admin/recovery.
func (c *Client) RecoveryStatus() (*api.RecoveryStatus, error) {
	var out api.RecoveryStatus
	if err := c.do(http.MethodGet, "/admin/recovery", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListWorkers sends GET /admin/workers.
func (c *Client) ListWorkers(status string) ([]api.Worker, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	var out []api.Worker
	if err := c.do(http.MethodGet, "/admin/workers", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListJobs sends GET /admin/jobs.
func (c *Client) ListJobs(status string, limit int) ([]api.Job, error) {
	q := limitQuery(limit)
	if status != "" {
		q.Set("status", status)
	}
	var out []api.Job
	if err := c.do(http.MethodGet, "/admin/jobs", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ForceCleanupTournament sends POST /admin/tournaments/{id}/force-cleanup.
func (c *Client) ForceCleanupTournament(id int64) (*api.CleanupResponse, error) {
	var out api.CleanupResponse
	if err := c.do(http.MethodPost, fmt.Sprintf("/admin/tournaments/%d/force-cleanup", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ForceCleanupWorker sends POST /admin/workers/{id}/force-cleanup.
func (c *Client) ForceCleanupWorker(id string) (*api.CleanupResponse, error) {
	var out api.CleanupResponse
	path := "/admin/workers/" + url.PathEscape(id) + "/force-cleanup"
	if err := c.do(http.MethodPost, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Package sdk provides a Go client for the expflow HTTP API.
package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/skillsenselab/expflow/engine"
	apperrors "github.com/skillsenselab/expflow/errors"
	"github.com/skillsenselab/expflow/pipeline"
	"github.com/skillsenselab/expflow/resilience"
)

// Config configures the API client.
type Config struct {
	// BaseURL is the server address, e.g. "http://localhost:8080".
	BaseURL string
	// Token is an optional bearer token sent on every request.
	Token string
	// Timeout bounds each request. Defaults to 30 seconds.
	Timeout time.Duration
	// Breaker enables a circuit breaker around requests when non-nil.
	Breaker *resilience.CircuitBreakerConfig
}

// Client calls the expflow API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	breaker *resilience.CircuitBreaker
}

// New creates a client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("sdk: base URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.Breaker != nil {
		c.breaker = resilience.NewCircuitBreaker(*cfg.Breaker)
	}
	return c, nil
}

// RunRequest starts a pipeline run.
type RunRequest struct {
	// Name selects a pipeline definition known to the server.
	Name string `json:"name,omitempty"`
	// Pipeline is an inline definition; takes precedence over Name.
	Pipeline *pipeline.Pipeline `json:"pipeline,omitempty"`
	// ExperimentID tags the run.
	ExperimentID string `json:"experiment_id,omitempty"`
	// Config is the run-scoped payload handed to every task.
	Config map[string]any `json:"config,omitempty"`
}

// RunHandle identifies a run the server accepted.
type RunHandle struct {
	RunID      string `json:"run_id"`
	PipelineID string `json:"pipeline_id"`
	Status     string `json:"status"`
}

// StartRun submits a pipeline for execution and returns its handle.
func (c *Client) StartRun(ctx context.Context, req RunRequest) (*RunHandle, error) {
	var handle RunHandle
	if err := c.do(ctx, http.MethodPost, "/api/v1/pipelines/run", req, &handle); err != nil {
		return nil, err
	}
	return &handle, nil
}

// GetRun fetches the report of a finished run. For a run that is still
// executing the report carries only the run id, pipeline id and status.
func (c *Client) GetRun(ctx context.Context, runID string) (*engine.RunReport, error) {
	var report engine.RunReport
	if err := c.do(ctx, http.MethodGet, "/api/v1/runs/"+runID, nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// WaitForRun polls until the run leaves the running state, the context
// expires, or the poll interval elapses too many times.
func (c *Client) WaitForRun(ctx context.Context, runID string, poll time.Duration) (*engine.RunReport, error) {
	if poll <= 0 {
		poll = time.Second
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		report, err := c.GetRun(ctx, runID)
		if err != nil {
			return nil, err
		}
		if report.Status != "" && report.Status != "running" {
			return report, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// ListRuns returns all run ids the server knows about.
func (c *Client) ListRuns(ctx context.Context) ([]string, error) {
	var body struct {
		Runs []string `json:"runs"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/runs", nil, &body); err != nil {
		return nil, err
	}
	return body.Runs, nil
}

// CancelRun requests cooperative cancellation of an active run.
func (c *Client) CancelRun(ctx context.Context, runID string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/runs/"+runID+"/cancel", nil, nil)
}

// DeleteRun removes the persisted report of a finished run.
func (c *Client) DeleteRun(ctx context.Context, runID string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/runs/"+runID, nil, nil)
}

// Health reports whether the server answers its health endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// do executes one JSON request, unwrapping the server's data envelope into
// out and converting error envelopes back into AppErrors.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	call := func() error {
		return c.doOnce(ctx, method, path, body, out)
	}
	if c.breaker != nil {
		return c.breaker.Execute(call)
	}
	return call()
}

func (c *Client) doOnce(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("sdk: encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("sdk: building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sdk: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("sdk: reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil || envelope.Data == nil {
		return json.Unmarshal(data, out)
	}
	return json.Unmarshal(envelope.Data, out)
}

// decodeError turns an error envelope back into an AppError so callers can
// switch on the code. Undecodable bodies become a plain error with the status.
func decodeError(status int, data []byte) error {
	var envelope apperrors.ErrorResponse
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error.Code != "" {
		return &apperrors.AppError{
			Code:       envelope.Error.Code,
			Message:    envelope.Error.Message,
			Retryable:  envelope.Error.Retryable,
			Details:    envelope.Error.Details,
			HTTPStatus: status,
		}
	}
	return fmt.Errorf("sdk: server returned status %d: %s", status, strings.TrimSpace(string(data)))
}

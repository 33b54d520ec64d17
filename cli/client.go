package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"litebridge/models"

	"github.com/goccy/go-json"
)

// Client is the HTTP client for talking to the litebridge server
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new HTTP client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// BaseURL returns the server the client talks to
func (c *Client) BaseURL() string { return c.baseURL }

// envelope mirrors the server response wrapper
type envelope struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// APIError is a non-2xx answer from the server
type APIError struct {
	Status  int
	Code    string
	Message string
	Detail  string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("HTTP %d %s: %s (%s)", e.Status, e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("HTTP %d %s: %s", e.Status, e.Code, e.Message)
}

// doRequest executes an HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// handleResponse unwraps the envelope into result
func (c *Client) handleResponse(resp *http.Response, result any) error {
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &APIError{Status: resp.StatusCode, Message: string(raw)}
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Message}
		var detail struct {
			Detail any `json:"detail"`
		}
		if json.Unmarshal(env.Data, &detail) == nil && detail.Detail != nil {
			apiErr.Detail = fmt.Sprint(detail.Detail)
		}
		return apiErr
	}

	if result != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}

func (c *Client) call(ctx context.Context, method, path string, body, result any) error {
	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	return c.handleResponse(resp, result)
}

// getDocument decodes an endpoint that answers without the envelope
func (c *Client) getDocument(ctx context.Context, path string) (map[string]any, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &APIError{Status: resp.StatusCode, Message: string(body)}
	}
	var doc map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return doc, nil
}

// HealthCheck pings the health endpoint
func (c *Client) HealthCheck(ctx context.Context) (map[string]any, error) {
	return c.getDocument(ctx, "/api/health")
}

// Sample API

// SamplePage is one page of the sample listing
type SamplePage struct {
	Items    []models.Sample `json:"items"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// ListSamples fetches a page of samples. order is a column name, prefixed
// with '-' for descending.
func (c *Client) ListSamples(ctx context.Context, page, pageSize int, order string) (*SamplePage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(pageSize))
	if order != "" {
		q.Set("order", order)
	}
	var result SamplePage
	if err := c.call(ctx, http.MethodGet, "/api/samples?"+q.Encode(), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetSample fetches a single sample
func (c *Client) GetSample(ctx context.Context, id int64) (*models.Sample, error) {
	var sample models.Sample
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/api/samples/%d", id), nil, &sample); err != nil {
		return nil, err
	}
	return &sample, nil
}

// CreateSample creates a sample, or replaces an existing one when replace is set
func (c *Client) CreateSample(ctx context.Context, req models.SampleCreate, replace bool) (int64, error) {
	path := "/api/samples"
	if replace {
		path += "?replace=true"
	}
	var result struct {
		ID int64 `json:"id"`
	}
	if err := c.call(ctx, http.MethodPost, path, req, &result); err != nil {
		return 0, err
	}
	return result.ID, nil
}

// UpdateSample writes the listed columns of a sample
func (c *Client) UpdateSample(ctx context.Context, id int64, req models.SampleUpdate) (*models.Sample, error) {
	var sample models.Sample
	if err := c.call(ctx, http.MethodPatch, fmt.Sprintf("/api/samples/%d", id), req, &sample); err != nil {
		return nil, err
	}
	return &sample, nil
}

// DeleteSample deletes a sample
func (c *Client) DeleteSample(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/api/samples/%d", id), nil, nil)
}

// Database maintenance API

// CheckIntegrity runs an integrity check and reports corruption
func (c *Client) CheckIntegrity(ctx context.Context) (bool, error) {
	var result struct {
		Corrupted bool `json:"corrupted"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/database/integrity", nil, &result); err != nil {
		return false, err
	}
	return result.Corrupted, nil
}

// Checkpoint runs a WAL checkpoint: passive or truncate
func (c *Client) Checkpoint(ctx context.Context, mode string) error {
	return c.call(ctx, http.MethodPost, "/api/database/checkpoint?mode="+url.QueryEscape(mode), nil, nil)
}

// Backup refreshes the backup copy
func (c *Client) Backup(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/api/database/backup", nil, nil)
}

// Deposit moves the current files aside
func (c *Client) Deposit(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/api/database/deposit", nil, nil)
}

// Retrieve rebuilds the database from backups and deposits
func (c *Client) Retrieve(ctx context.Context) (float64, error) {
	var result struct {
		Score float64 `json:"score"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/database/retrieve", nil, &result); err != nil {
		return 0, err
	}
	return result.Score, nil
}

// Metrics fetches the metrics document
func (c *Client) Metrics(ctx context.Context) (map[string]any, error) {
	return c.getDocument(ctx, "/api/metrics")
}

// Error log API

// GetErrorLogs fetches the recorded database errors, latest first
func (c *Client) GetErrorLogs(ctx context.Context) ([]models.ErrorLog, error) {
	var logs []models.ErrorLog
	if err := c.call(ctx, http.MethodGet, "/api/error-logs", nil, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// GetErrorLogByID fetches a single error log entry
func (c *Client) GetErrorLogByID(ctx context.Context, id int) (*models.ErrorLog, error) {
	var entry models.ErrorLog
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/api/error-logs/%d", id), nil, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// ClearErrorLogs deletes all error logs
func (c *Client) ClearErrorLogs(ctx context.Context) error {
	return c.call(ctx, http.MethodDelete, "/api/error-logs", nil, nil)
}

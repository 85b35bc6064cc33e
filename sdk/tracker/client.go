// Package tracker is a Go client for the Pool Care API. It talks to the
// backend the way the web UI does, including the debounced field
// synchronizer used to coalesce keystroke-level edits to notes and cost
// inputs into single outbound writes.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/poolworks/poolcare-api/models"
	"github.com/poolworks/poolcare-api/services"
)

// Client is an authenticated Pool Care API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// New creates a client for the API at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// SetToken installs a bearer token obtained outside of Login.
func (c *Client) SetToken(token string) {
	c.token = token
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// loginData matches the payload of a successful login response.
type loginData struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	User        models.User `json:"user"`
}

// Login exchanges credentials for a token and stores it on the client.
func (c *Client) Login(ctx context.Context, username, password string) (*models.User, error) {
	var data loginData
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, &data)
	if err != nil {
		return nil, err
	}

	c.token = data.AccessToken
	return &data.User, nil
}

// CreateReportParams carries the fields for reporting a new service call.
type CreateReportParams struct {
	ClientID    string   `json:"client_id"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	Photos      []string `json:"photos,omitempty"`
}

// CreateReport reports a new service call.
func (c *Client) CreateReport(ctx context.Context, params CreateReportParams) (*models.ServiceReport, error) {
	var report models.ServiceReport
	if err := c.do(ctx, http.MethodPost, "/api/v1/reports", params, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// Reports lists the reports visible to the authenticated user.
func (c *Client) Reports(ctx context.Context) ([]models.ServiceReport, error) {
	var reports []models.ServiceReport
	if err := c.do(ctx, http.MethodGet, "/api/v1/reports", nil, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

// UpdateReport sends a partial patch for a report. The fields map carries
// only the fields being replaced.
func (c *Client) UpdateReport(ctx context.Context, reportID string, fields map[string]interface{}) (*models.ServiceReport, error) {
	var report models.ServiceReport
	if err := c.do(ctx, http.MethodPut, "/api/v1/reports/"+reportID, fields, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// NewSynchronizer returns a field synchronizer that flushes coalesced
// edits through this client. A non-positive delay falls back to
// DefaultDebounce.
func (c *Client) NewSynchronizer(delay time.Duration) *Synchronizer {
	return NewSynchronizer(func(reportID, field string, value interface{}) error {
		_, err := c.UpdateReport(context.Background(), reportID, map[string]interface{}{field: value})
		return err
	}, delay)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &services.TransportError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return &services.TransportError{Op: method + " " + path, Err: err}
	}

	if !envelope.Success {
		apiErr := &APIError{Status: resp.StatusCode, Code: "UNKNOWN", Message: "request failed"}
		if envelope.Error != nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
		return apiErr
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/exp/slog"
)

// RemoteStore is the server-side record store the client syncs against.
type RemoteStore interface {
	CreateRecord(ctx context.Context, table string, payload map[string]interface{}, idempotencyKey string) (string, error)
	UpdateRecord(ctx context.Context, table, id string, payload map[string]interface{}) error
	DeleteRecord(ctx context.Context, table, id string) error
	ListRecords(ctx context.Context, table string) ([]map[string]interface{}, error)
	Health(ctx context.Context) error
}

// RemoteError is a non-2xx response from the remote store.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote store returned %d: %s", e.StatusCode, e.Message)
}

// Permanent reports whether retrying the same request can ever succeed.
// Client errors are permanent except request timeout and rate limiting.
func (e *RemoteError) Permanent() bool {
	if e.StatusCode == http.StatusRequestTimeout || e.StatusCode == http.StatusTooManyRequests {
		return false
	}
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// httpClient talks to the roundkeeper server over its JSON API.
type httpClient struct {
	baseURL string
	client  *http.Client
	log     *slog.Logger
}

// NewHTTPClient builds a RemoteStore for the server at address.
func NewHTTPClient(address string, enableTLS bool, log *slog.Logger) RemoteStore {
	scheme := "http"
	if enableTLS {
		scheme = "https"
	}

	return &httpClient{
		baseURL: fmt.Sprintf("%s://%s", scheme, address),
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log.With("component", "http_client"),
	}
}

type recordResponse struct {
	ID      string                 `json:"id"`
	Table   string                 `json:"table"`
	Payload map[string]interface{} `json:"payload"`
}

type listResponse struct {
	Records []recordResponse `json:"records"`
}

// CreateRecord inserts a record and returns the server-assigned id. The
// idempotency key lets the server collapse duplicate creates from retried
// drain runs.
func (c *httpClient) CreateRecord(ctx context.Context, table string, payload map[string]interface{}, idempotencyKey string) (string, error) {
	url := fmt.Sprintf("%s/api/v1/tables/%s/records", c.baseURL, table)

	headers := map[string]string{}
	if idempotencyKey != "" {
		headers["Idempotency-Key"] = idempotencyKey
	}

	body, err := c.doRequest(ctx, http.MethodPost, url, payload, headers)
	if err != nil {
		return "", err
	}

	var resp recordResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode create response: %w", err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("create response missing record id")
	}

	return resp.ID, nil
}

// UpdateRecord merges payload into the record with the given id.
func (c *httpClient) UpdateRecord(ctx context.Context, table, id string, payload map[string]interface{}) error {
	url := fmt.Sprintf("%s/api/v1/tables/%s/records/%s", c.baseURL, table, id)
	_, err := c.doRequest(ctx, http.MethodPatch, url, payload, nil)
	return err
}

// DeleteRecord removes the record with the given id.
func (c *httpClient) DeleteRecord(ctx context.Context, table, id string) error {
	url := fmt.Sprintf("%s/api/v1/tables/%s/records/%s", c.baseURL, table, id)
	_, err := c.doRequest(ctx, http.MethodDelete, url, nil, nil)
	return err
}

// ListRecords fetches every record in a table. Each map carries the record
// payload plus its "id".
func (c *httpClient) ListRecords(ctx context.Context, table string) ([]map[string]interface{}, error) {
	url := fmt.Sprintf("%s/api/v1/tables/%s/records", c.baseURL, table)

	body, err := c.doRequest(ctx, http.MethodGet, url, nil, nil)
	if err != nil {
		return nil, err
	}

	var resp listResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode list response: %w", err)
	}

	out := make([]map[string]interface{}, 0, len(resp.Records))
	for _, rec := range resp.Records {
		row := make(map[string]interface{}, len(rec.Payload)+1)
		for k, v := range rec.Payload {
			row[k] = v
		}
		row["id"] = rec.ID
		out = append(out, row)
	}

	return out, nil
}

// Health probes the server liveness endpoint.
func (c *httpClient) Health(ctx context.Context) error {
	url := fmt.Sprintf("%s/api/v1/health", c.baseURL)
	_, err := c.doRequest(ctx, http.MethodGet, url, nil, nil)
	return err
}

func (c *httpClient) doRequest(ctx context.Context, method, url string, payload interface{}, headers map[string]string) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RemoteError{
			StatusCode: resp.StatusCode,
			Message:    parseErrorMessage(body),
		}
	}

	return body, nil
}

func parseErrorMessage(body []byte) string {
	var errResp struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil {
		if errResp.Detail != "" {
			return errResp.Detail
		}
		if errResp.Title != "" {
			return errResp.Title
		}
	}
	if len(body) > 0 {
		return string(body)
	}
	return "no error details"
}

var _ RemoteStore = (*httpClient)(nil)

// Package client is a Go client for the folio HTTP API.
//
// It covers the operational endpoints: health, backup downloads, restores
// and maintenance mode. Envelopes are passed through as bytes so callers
// can store them untouched:
//
//	c := client.NewClient("http://localhost:8080")
//
//	envelope, err := c.DownloadUserBackup(ctx, "alice", backup.FormatCBOR)
//	if err != nil {
//		return err
//	}
//	stats, err := c.RestoreUser(ctx, "alice", bytes.NewReader(envelope), backup.FormatCBOR)
//
// Failed requests return an [*APIError] carrying the status code and the
// error category reported by the server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/foliohq/folio/pkg/backup"
)

// Client provides access to the folio API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL, for example
// "http://localhost:8080" (no trailing slash).
//
// Restores of large snapshots can take a while, so the timeout is more
// generous than for typical API calls.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Minute,
		},
	}
}

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Kind       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("API error: status=%d, body=%s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error: status=%d, kind=%s: %s", e.StatusCode, e.Kind, e.Message)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.httpClient.Do(req)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	return c.doRequest(ctx, method, path, reader, "application/json")
}

// decodeResponse decodes a JSON response into target, or the error body
// into an *APIError.
func decodeResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return apiError(resp)
	}
	if target != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	var payload struct {
		Error string `json:"error"`
		Kind  string `json:"kind"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		apiErr.Message = payload.Error
		apiErr.Kind = payload.Kind
	}
	return apiErr
}

// Health checks the health status of the server.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/health", nil, "")
	if err != nil {
		return nil, err
	}
	var result map[string]any
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// DownloadUserBackup returns the encoded user snapshot of the owner with
// the given slug.
func (c *Client) DownloadUserBackup(ctx context.Context, slug string, f backup.Format) ([]byte, error) {
	return c.download(ctx, fmt.Sprintf("/api/users/%s/backup", url.PathEscape(slug)), f)
}

// DownloadSystemBackup returns the encoded system snapshot.
func (c *Client) DownloadSystemBackup(ctx context.Context, f backup.Format) ([]byte, error) {
	return c.download(ctx, "/api/admin/backup", f)
}

func (c *Client) download(ctx context.Context, path string, f backup.Format) ([]byte, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, path+"?format="+url.QueryEscape(string(f)), nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, apiError(resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup: %w", err)
	}
	return data, nil
}

// RestoreUser replaces the owner's portfolio with envelope. An empty f
// lets the server detect the encoding.
func (c *Client) RestoreUser(ctx context.Context, slug string, envelope io.Reader, f backup.Format) (*backup.RestoreStats, error) {
	return c.restore(ctx, fmt.Sprintf("/api/users/%s/restore", url.PathEscape(slug)), envelope, f)
}

// RestoreSystem replaces all data with envelope.
func (c *Client) RestoreSystem(ctx context.Context, envelope io.Reader, f backup.Format) (*backup.RestoreStats, error) {
	return c.restore(ctx, "/api/admin/restore", envelope, f)
}

func (c *Client) restore(ctx context.Context, path string, envelope io.Reader, f backup.Format) (*backup.RestoreStats, error) {
	var contentType string
	if f != "" {
		contentType = f.ContentType()
	}
	resp, err := c.doRequest(ctx, http.MethodPost, path, envelope, contentType)
	if err != nil {
		return nil, err
	}
	var stats backup.RestoreStats
	if err := decodeResponse(resp, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// GetMode reports whether the server is in maintenance (read-only) mode.
func (c *Client) GetMode(ctx context.Context) (bool, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/admin/mode", nil, "")
	if err != nil {
		return false, err
	}
	var result struct {
		ReadOnly bool `json:"read_only"`
	}
	if err := decodeResponse(resp, &result); err != nil {
		return false, err
	}
	return result.ReadOnly, nil
}

// SetMode turns maintenance mode on or off.
func (c *Client) SetMode(ctx context.Context, readOnly bool) error {
	resp, err := c.doJSON(ctx, http.MethodPost, "/api/admin/mode", map[string]bool{"read_only": readOnly})
	if err != nil {
		return err
	}
	return decodeResponse(resp, nil)
}

// Package backend is the HTTP client for the CRASH backend API. All console
// pages reach the backend through it.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/crash-ph/admin-console/internal/metrics"
	"github.com/crash-ph/admin-console/models"
	"golang.org/x/sync/singleflight"
)

const (
	loginPath   = "auth/login/"
	refreshPath = "auth/refresh/"
)

var (
	// ErrSessionExpired is returned once the tokens of a session can no
	// longer be refreshed. The session has been cleared by then.
	ErrSessionExpired = errors.New("session expired")

	// ErrFeaturePending is returned for calls the backend does not serve yet.
	ErrFeaturePending = errors.New("feature not yet available")
)

// FeaturePendingMessage is shown to users in place of ErrFeaturePending.
const FeaturePendingMessage = "This feature is not yet available on the server."

// HTTPError is a non-2xx answer from the backend.
type HTTPError struct {
	Message string
	Status  int
}

func (e *HTTPError) Error() string {
	return e.Message
}

// StatusOf returns the backend status code carried by err, or 0.
func StatusOf(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}
	return 0
}

// Client talks to the backend API. It is safe for concurrent use; per-user
// calls go through the SessionClient returned by Session.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	refreshes singleflight.Group
}

// NewClient creates a client for the API rooted at baseURL, which should
// include the versioned prefix (e.g. https://api.example.org/api/v1).
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	respBody, _, err := c.makeRequest(ctx, http.MethodPost, c.endpoint(loginPath, nil), "",
		models.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	var resp models.LoginResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode login response: %w", err)
	}
	if resp.Access == "" {
		return nil, errors.New("login response carried no access token")
	}
	return &resp, nil
}

// Refresh exchanges a refresh token for a new access token.
func (c *Client) Refresh(ctx context.Context, refresh string) (*models.RefreshResponse, error) {
	respBody, _, err := c.makeRequest(ctx, http.MethodPost, c.endpoint(refreshPath, nil), "",
		models.RefreshRequest{Refresh: refresh})
	if err != nil {
		return nil, err
	}

	var resp models.RefreshResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode refresh response: %w", err)
	}
	if resp.Access == "" {
		return nil, errors.New("refresh response carried no access token")
	}
	return &resp, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.BaseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// makeRequest sends one request and returns the body and status. Responses
// with a status of 400 or above are returned as *HTTPError along with the
// status code.
func (c *Client) makeRequest(ctx context.Context, method, url, token string, payload any) ([]byte, int, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		metrics.RecordBackendRequest(method, 0, time.Since(start))
		return nil, 0, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()
	metrics.RecordBackendRequest(method, resp.StatusCode, time.Since(start))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return respBody, resp.StatusCode, &HTTPError{
			Message: errorMessage(respBody, resp.StatusCode),
			Status:  resp.StatusCode,
		}
	}

	return respBody, resp.StatusCode, nil
}

// errorMessage flattens the error bodies the backend produces: {"detail": ...},
// {"error": ...} or a map of field names to messages.
func errorMessage(body []byte, status int) string {
	var known models.ErrorBody
	if err := json.Unmarshal(body, &known); err == nil {
		if known.Detail != "" {
			return known.Detail
		}
		if known.Error != "" {
			return known.Error
		}
	}

	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err == nil && len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s: %s", k, flatten(fields[k])))
		}
		return strings.Join(parts, "; ")
	}

	text := strings.TrimSpace(string(body))
	if text != "" && len(text) <= 200 && !strings.HasPrefix(text, "<") {
		return text
	}
	return fmt.Sprintf("backend returned %d %s", status, http.StatusText(status))
}

func flatten(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, flatten(item))
		}
		return strings.Join(parts, " ")
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s: %s", k, flatten(val[k])))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(val)
	}
}

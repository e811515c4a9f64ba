package data

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"converse/internal/pkg/errors"
	"converse/internal/pkg/logger"

	"go.uber.org/zap"
)

// Client is the shared HTTP client for the backend API. Authentication
// rides on the access_token cookie held by the client's jar.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates an API client. httpClient must carry a cookie jar;
// its timeout applies to plain requests only, streams use their own
// client.
func NewClient(baseURL string, httpClient *http.Client, log *logger.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     log.Named("api"),
	}
}

// BaseURL returns the configured backend base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HTTPClient exposes the underlying client so collaborators can share
// its cookie jar
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// url joins an API path onto the base URL
func (c *Client) url(path string) string {
	return c.baseURL + "/api" + path
}

// doRequest executes an HTTP request with a JSON body and decodes the
// JSON response into result (when non-nil)
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	url := c.url(path)

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	c.logger.Debug("api request",
		zap.String("method", method),
		zap.String("url", url),
	)

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("api request failed",
			zap.String("method", method),
			zap.String("url", url),
			zap.Error(err),
		)
		return errors.Wrap(err, errors.ErrRemoteUnavail)
	}
	defer resp.Body.Close()

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("api response",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(respData)),
	)

	if err := statusError(resp.StatusCode, respData); err != nil {
		return err
	}

	if result != nil && len(respData) > 0 {
		if err := json.Unmarshal(respData, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// statusError maps HTTP failure statuses onto the client error taxonomy
func statusError(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	detail := apiDetail(body)
	switch status {
	case http.StatusUnauthorized:
		return errors.New(errors.ErrNotAuthenticated, detail)
	case http.StatusForbidden:
		return errors.New(errors.ErrForbidden, detail)
	case http.StatusNotFound:
		return errors.New(errors.ErrNotFound, detail)
	case http.StatusBadRequest:
		return errors.New(errors.ErrInvalidParams, detail)
	case http.StatusConflict:
		return errors.New(errors.ErrConflict, detail)
	default:
		if detail == "" {
			detail = fmt.Sprintf("status %d", status)
		}
		return errors.New(errors.ErrRemoteUnavail, detail)
	}
}

// apiDetail pulls FastAPI's {"detail": "..."} message out of an error body
func apiDetail(body []byte) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return strings.TrimSpace(string(body))
	}
	return payload.Detail
}

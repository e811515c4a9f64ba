package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"converse/internal/pkg/errors"
	"converse/internal/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Client is the authorization collaborator. The backend issues a JWT in
// the access_token cookie; the client keeps it in the shared cookie jar
// and persists it between runs so the CLI stays logged in.
type Client struct {
	baseURL    string
	apiURL     *url.URL
	httpClient *http.Client
	cookieName string
	statePath  string
	logger     *logger.Logger
}

// NewClient creates an auth client. httpClient must be the same
// jar-carrying client the data layer uses, so a login is visible to
// every subsequent API call.
func NewClient(baseURL string, httpClient *http.Client, cookieName, statePath string, log *logger.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiURL:     u,
		httpClient: httpClient,
		cookieName: cookieName,
		statePath:  statePath,
		logger:     log.Named("auth"),
	}
	c.restoreState()
	return c, nil
}

// Login authenticates with the backend and persists the session cookie
func (c *Client) Login(ctx context.Context, email, password string) error {
	body := map[string]string{"email": email, "password": password}
	status, err := c.post(ctx, "/login/", body)
	if err != nil {
		return errors.Wrap(err, errors.ErrRemoteUnavail)
	}

	switch {
	case status == http.StatusUnauthorized:
		return errors.New(errors.ErrAuthInvalidCredentials)
	case status < 200 || status >= 300:
		return errors.New(errors.ErrRemoteUnavail, fmt.Sprintf("login returned status %d", status))
	}

	c.saveState()
	c.logger.Info("logged in", zap.String("email", email))
	return nil
}

// Register creates a new account
func (c *Client) Register(ctx context.Context, email, password string, age int) error {
	body := map[string]interface{}{"email": email, "password": password, "age": age}
	status, err := c.post(ctx, "/users/", body)
	if err != nil {
		return errors.Wrap(err, errors.ErrRemoteUnavail)
	}

	switch {
	case status == http.StatusBadRequest:
		return errors.New(errors.ErrAuthEmailExists, email)
	case status < 200 || status >= 300:
		return errors.New(errors.ErrRemoteUnavail, fmt.Sprintf("register returned status %d", status))
	}
	return nil
}

// Logout invalidates the remote session, best-effort. The local cookie
// and persisted state are dropped regardless of the outcome.
func (c *Client) Logout(ctx context.Context) error {
	status, err := c.post(ctx, "/logout/", nil)
	c.clearState()

	if err != nil {
		return errors.Wrap(err, errors.ErrAuthLogoutFailed)
	}
	if status < 200 || status >= 300 {
		return errors.New(errors.ErrAuthLogoutFailed, fmt.Sprintf("status %d", status))
	}
	return nil
}

// CheckSession reports whether the held access token is present and not
// expired. The signature is not verified here: only the backend holds
// the secret, the client just avoids sending requests it knows are dead.
func (c *Client) CheckSession(ctx context.Context) bool {
	token := c.sessionToken()
	if token == "" {
		return false
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		c.logger.Warn("held access token is unparseable", zap.Error(err))
		return false
	}
	if claims.ExpiresAt == nil {
		return true
	}
	return claims.ExpiresAt.After(time.Now())
}

// post sends a JSON POST and returns the HTTP status
func (c *Client) post(ctx context.Context, path string, body interface{}) (int, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api"+path, reqBody)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

// sessionToken returns the access token currently in the jar
func (c *Client) sessionToken() string {
	if c.httpClient.Jar == nil {
		return ""
	}
	for _, cookie := range c.httpClient.Jar.Cookies(c.apiURL) {
		if cookie.Name == c.cookieName {
			return cookie.Value
		}
	}
	return ""
}

// persistedState is what survives between CLI runs
type persistedState struct {
	Cookie string `json:"cookie"`
}

// saveState writes the session cookie to the state file
func (c *Client) saveState() {
	if c.statePath == "" {
		return
	}
	token := c.sessionToken()
	if token == "" {
		return
	}

	data, err := json.Marshal(persistedState{Cookie: token})
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.statePath), 0700); err != nil {
		c.logger.Warn("failed to create state directory", zap.Error(err))
		return
	}
	if err := os.WriteFile(c.statePath, data, 0600); err != nil {
		c.logger.Warn("failed to persist session state", zap.Error(err))
	}
}

// restoreState loads a previously persisted session cookie into the jar
func (c *Client) restoreState() {
	if c.statePath == "" || c.httpClient.Jar == nil {
		return
	}
	data, err := os.ReadFile(c.statePath)
	if err != nil {
		return
	}

	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil || state.Cookie == "" {
		return
	}
	c.httpClient.Jar.SetCookies(c.apiURL, []*http.Cookie{{
		Name:  c.cookieName,
		Value: state.Cookie,
		Path:  "/",
	}})
}

// clearState drops the persisted session state and the jar cookie
func (c *Client) clearState() {
	if c.statePath != "" {
		if err := os.Remove(c.statePath); err != nil && !os.IsNotExist(err) {
			c.logger.Warn("failed to remove session state", zap.Error(err))
		}
	}
	if c.httpClient.Jar != nil {
		c.httpClient.Jar.SetCookies(c.apiURL, []*http.Cookie{{
			Name:   c.cookieName,
			Value:  "",
			Path:   "/",
			MaxAge: -1,
		}})
	}
}

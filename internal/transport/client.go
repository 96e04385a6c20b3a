// Package transport performs authenticated HTTP calls against the board
// backend. It attaches the stored bearer token to every request and
// recovers transparently from token expiry: a 401 on any call that is
// not itself login or refresh triggers exactly one token refresh and one
// replay of the original request. Refreshes are serialized across
// concurrent requests: refresh tokens are single-use on the server, so a
// caller whose token was already replaced while it waited reuses the new
// pair instead of spending another exchange. A failed refresh clears the
// session and invokes the configured logout hook.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"
)

// TokenSource provides and replaces the stored token pair.
type TokenSource interface {
	SessionToken() string
	RefreshToken() string
	SetTokens(sessionToken, refreshToken string) error
	Clear() error
}

// Client is an authenticated HTTP client for the board API.
type Client struct {
	baseURL  string
	http     *http.Client
	tokens   TokenSource
	onLogout func()
	logger   *slog.Logger

	// Serializes token refreshes. Refresh tokens are single-use on the
	// server, so concurrent 401s must not each spend one.
	refreshMu sync.Mutex
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.http = httpClient }
}

// WithLogoutHook registers a callback invoked when the session becomes
// irrecoverable (the navigation-to-login analogue).
func WithLogoutHook(hook func()) Option {
	return func(c *Client) { c.onLogout = hook }
}

// NewClient creates a client for the API at baseURL.
func NewClient(baseURL string, tokens TokenSource, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		tokens:  tokens,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs an authenticated GET and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, "", out)
}

// Post performs an authenticated POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	payload, err := encodeBody(body)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, payload, "application/json", out)
}

// Patch performs an authenticated PATCH with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	payload, err := encodeBody(body)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPatch, path, payload, "application/json", out)
}

// Delete performs an authenticated DELETE.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, "", nil)
}

// PostMultipart uploads a single file as a multipart form.
func (c *Client) PostMultipart(ctx context.Context, path, field, filename string, content io.Reader, out any) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("writing form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing form: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, buf.Bytes(), writer.FormDataContentType(), out)
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}
	return payload, nil
}

// do sends one request, refreshing the token and replaying once on 401.
// The body is kept as bytes so the replay can resend it.
func (c *Client) do(ctx context.Context, method, path string, body []byte, contentType string, out any) error {
	token := c.tokens.SessionToken()
	resp, err := c.send(ctx, method, path, body, contentType, token)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && !authExempt(path) {
		_ = resp.Body.Close()

		if err := c.refresh(ctx, token); err != nil {
			return err
		}

		// One replay with the new token; a second 401 is surfaced as-is.
		resp, err = c.send(ctx, method, path, body, contentType, c.tokens.SessionToken())
		if err != nil {
			return err
		}
	}

	return decodeResponse(resp, out)
}

func (c *Client) send(ctx context.Context, method, path string, body []byte, contentType, token string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrUnreachable, method, path, err)
	}
	return resp, nil
}

// refresh exchanges the stored refresh token for a new token pair. On any
// failure the session is cleared and the logout hook fires. staleToken is
// the session token the 401'd request carried: refreshes run one at a
// time, and a caller that waited its turn skips the exchange when another
// refresh already replaced that token.
func (c *Client) refresh(ctx context.Context, staleToken string) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if current := c.tokens.SessionToken(); current != "" && current != staleToken {
		return nil
	}

	refreshToken := c.tokens.RefreshToken()
	if refreshToken == "" {
		return c.forceLogout("no refresh token stored")
	}

	payload, err := json.Marshal(map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return fmt.Errorf("encoding refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/refresh", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: refresh: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.forceLogout(fmt.Sprintf("refresh rejected with status %d", resp.StatusCode))
	}

	var tokens struct {
		SessionToken string `json:"sessionToken"`
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return c.forceLogout("refresh response malformed")
	}
	if err := c.tokens.SetTokens(tokens.SessionToken, tokens.RefreshToken); err != nil {
		return fmt.Errorf("storing refreshed tokens: %w", err)
	}

	c.logger.Info("session token refreshed")
	return nil
}

func (c *Client) forceLogout(reason string) error {
	c.logger.Warn("session expired, logging out", "reason", reason)
	if err := c.tokens.Clear(); err != nil {
		c.logger.Error("failed to clear session", "error", err)
	}
	if c.onLogout != nil {
		c.onLogout()
	}
	return ErrSessionExpired
}

// authExempt reports whether a 401 on this path must not trigger a
// refresh. Login failures are credential errors, and a 401 from refresh
// itself means the refresh token is dead.
func authExempt(path string) bool {
	return strings.Contains(path, "/auth/login") || strings.Contains(path, "/auth/refresh")
}

func decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return &StatusError{Code: resp.StatusCode, Body: body}
	}

	if out == nil {
		return nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

package authprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt"
	"golang.org/x/oauth2"

	"github.com/pitchside/internal/domain"
	"github.com/pitchside/internal/session"
)

// APIError is an error reported by the auth service
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Is lets callers match any APIError against domain.ErrAuthFailed
func (e *APIError) Is(target error) bool {
	return target == domain.ErrAuthFailed
}

type errorBody struct {
	Code             any    `json:"code"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Client talks to a GoTrue-compatible auth service. It keeps the current
// session in memory and, when storage is set, persists it across runs.
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
	storage    session.KeyValue
	logger     *slog.Logger
	now        func() time.Time

	mu      sync.Mutex
	current *session.Session
	loaded  bool
}

// Option configures a Client
type Option func(*Client)

// WithStorage persists the session and PKCE verifier in kv
func WithStorage(kv session.KeyValue) Option {
	return func(c *Client) {
		c.storage = kv
	}
}

// WithHTTPClient overrides the transport
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a client for the auth service at baseURL (e.g.
// https://xyz.supabase.co/auth/v1).
func NewClient(baseURL, anonKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		anonKey:    anonKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ session.Provider = (*Client)(nil)

// SignInWithPassword exchanges email and password for a session
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*session.Session, error) {
	body := map[string]string{"email": email, "password": password}
	var s session.Session
	if err := c.do(ctx, http.MethodPost, "/token?grant_type=password", "", body, &s); err != nil {
		return nil, err
	}
	return c.saveSession(ctx, &s)
}

// SignUp registers a user. Providers that auto-confirm return a session too.
func (c *Client) SignUp(ctx context.Context, req session.SignUpRequest) (*session.User, *session.Session, error) {
	path := "/signup"
	if req.EmailRedirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(req.EmailRedirectTo)
	}
	body := map[string]any{"email": req.Email, "password": req.Password}
	if len(req.Data) > 0 {
		body["data"] = req.Data
	}

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, path, "", body, &raw); err != nil {
		return nil, nil, err
	}

	var tokenBody struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(raw, &tokenBody); err != nil {
		return nil, nil, fmt.Errorf("failed to decode sign-up response: %w", err)
	}
	if tokenBody.AccessToken == "" {
		var u session.User
		if err := json.Unmarshal(raw, &u); err != nil {
			return nil, nil, fmt.Errorf("failed to decode sign-up user: %w", err)
		}
		return &u, nil, nil
	}

	var s session.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, nil, fmt.Errorf("failed to decode sign-up session: %w", err)
	}
	saved, err := c.saveSession(ctx, &s)
	if err != nil {
		return nil, nil, err
	}
	return saved.User, saved, nil
}

// SignOut revokes the current session and forgets it locally
func (c *Client) SignOut(ctx context.Context) error {
	current, err := c.GetSession(ctx)
	if err != nil {
		return err
	}
	if current != nil {
		if err := c.do(ctx, http.MethodPost, "/logout", current.AccessToken, nil, nil); err != nil {
			var apiErr *APIError
			// An already-invalid token means the remote session is gone anyway.
			if !errors.As(err, &apiErr) || (apiErr.Status != http.StatusUnauthorized && apiErr.Status != http.StatusNotFound) {
				return err
			}
		}
	}
	return c.clearSession(ctx)
}

// GetSession returns the current session, loading it from storage on first
// use. It returns nil without error when there is none.
func (c *Client) GetSession(ctx context.Context) (*session.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded || c.storage == nil {
		return c.current, nil
	}
	c.loaded = true

	raw, ok, err := c.storage.Get(ctx, session.KeySession)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var s session.Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		c.logger.Warn("discarding unreadable stored session", "error", err)
		return nil, nil
	}
	c.current = &s
	return c.current, nil
}

// GetUser fetches the user for the current session
func (c *Client) GetUser(ctx context.Context) (*session.User, error) {
	current, err := c.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, domain.ErrNoSession
	}
	var u session.User
	if err := c.do(ctx, http.MethodGet, "/user", current.AccessToken, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// RefreshSession trades the refresh token for a new session
func (c *Client) RefreshSession(ctx context.Context) (*session.Session, error) {
	current, err := c.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if current == nil || current.RefreshToken == "" {
		return nil, domain.ErrNoSession
	}
	body := map[string]string{"refresh_token": current.RefreshToken}
	var s session.Session
	if err := c.do(ctx, http.MethodPost, "/token?grant_type=refresh_token", "", body, &s); err != nil {
		return nil, err
	}
	return c.saveSession(ctx, &s)
}

// ResetPasswordForEmail sends a password recovery email
func (c *Client) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	path := "/recover"
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}
	return c.do(ctx, http.MethodPost, path, "", map[string]string{"email": email}, nil)
}

// UpdateUser applies profile changes for the current session's user
func (c *Client) UpdateUser(ctx context.Context, update session.UserUpdate) (*session.User, error) {
	current, err := c.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, domain.ErrNoSession
	}
	var u session.User
	if err := c.do(ctx, http.MethodPut, "/user", current.AccessToken, update, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Resend re-sends a confirmation email of the given kind (e.g. "signup")
func (c *Client) Resend(ctx context.Context, kind, email, redirectTo string) error {
	body := map[string]any{"type": kind, "email": email}
	if redirectTo != "" {
		body["options"] = map[string]string{"email_redirect_to": redirectTo}
	}
	return c.do(ctx, http.MethodPost, "/resend", "", body, nil)
}

// AuthorizeURL starts a PKCE OAuth sign-in and returns the URL to visit.
// The verifier is kept until ExchangeCodeForSession consumes it.
func (c *Client) AuthorizeURL(ctx context.Context, provider, redirectTo string) (string, error) {
	verifier := oauth2.GenerateVerifier()
	if c.storage != nil {
		if err := c.storage.Set(ctx, session.KeyCodeVerifier, verifier); err != nil {
			return "", err
		}
	}
	q := url.Values{}
	q.Set("provider", provider)
	if redirectTo != "" {
		q.Set("redirect_to", redirectTo)
	}
	q.Set("code_challenge", oauth2.S256ChallengeFromVerifier(verifier))
	q.Set("code_challenge_method", "s256")
	return c.baseURL + "/authorize?" + q.Encode(), nil
}

// ExchangeCodeForSession completes a PKCE flow using the stored verifier
func (c *Client) ExchangeCodeForSession(ctx context.Context, code string) (*session.Session, error) {
	verifier := ""
	if c.storage != nil {
		v, _, err := c.storage.Get(ctx, session.KeyCodeVerifier)
		if err != nil {
			return nil, err
		}
		verifier = v
	}
	return c.ExchangeCodeWithVerifier(ctx, code, verifier)
}

// ExchangeCodeWithVerifier completes a PKCE flow with an explicit verifier
func (c *Client) ExchangeCodeWithVerifier(ctx context.Context, code, verifier string) (*session.Session, error) {
	body := map[string]string{"auth_code": code, "code_verifier": verifier}
	var s session.Session
	if err := c.do(ctx, http.MethodPost, "/token?grant_type=pkce", "", body, &s); err != nil {
		return nil, err
	}
	if c.storage != nil {
		if err := c.storage.Remove(ctx, session.KeyCodeVerifier); err != nil {
			c.logger.Warn("failed to clear code verifier", "error", err)
		}
	}
	return c.saveSession(ctx, &s)
}

// saveSession fills a missing expires_at and makes s the current session
func (c *Client) saveSession(ctx context.Context, s *session.Session) (*session.Session, error) {
	if s.ExpiresAt == 0 {
		s.ExpiresAt = c.expiresAt(s)
	}

	c.mu.Lock()
	c.current = s
	c.loaded = true
	c.mu.Unlock()

	if c.storage != nil {
		data, err := json.Marshal(s)
		if err != nil {
			return nil, fmt.Errorf("failed to encode session: %w", err)
		}
		if err := c.storage.Set(ctx, session.KeySession, string(data)); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (c *Client) clearSession(ctx context.Context) error {
	c.mu.Lock()
	c.current = nil
	c.loaded = true
	c.mu.Unlock()

	if c.storage != nil {
		return c.storage.Remove(ctx, session.KeySession)
	}
	return nil
}

// expiresAt derives epoch seconds from expires_in, falling back to the
// access token's exp claim.
func (c *Client) expiresAt(s *session.Session) int64 {
	if s.ExpiresIn > 0 {
		return c.now().Unix() + s.ExpiresIn
	}
	return TokenExpiry(s.AccessToken)
}

// TokenExpiry reads the exp claim of a JWT without verifying it, or 0
func TokenExpiry(accessToken string) int64 {
	if accessToken == "" {
		return 0
	}
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(accessToken, claims); err != nil {
		return 0
	}
	switch exp := claims["exp"].(type) {
	case float64:
		return int64(exp)
	case json.Number:
		n, _ := exp.Int64()
		return n
	}
	return 0
}

func (c *Client) do(ctx context.Context, method, path, bearer string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.anonKey != "" {
		req.Header.Set("apikey", c.anonKey)
	}
	if bearer == "" {
		bearer = c.anonKey
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WrapNetworkOperation("auth "+strings.SplitN(path, "?", 2)[0], err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseAPIError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func parseAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	apiErr := &APIError{Status: resp.StatusCode}

	var eb errorBody
	if err := json.Unmarshal(data, &eb); err == nil {
		for _, m := range []string{eb.Msg, eb.Message, eb.ErrorDescription, eb.Error} {
			if m != "" {
				apiErr.Message = m
				break
			}
		}
		apiErr.Code = eb.ErrorCode
		if apiErr.Code == "" {
			if s, ok := eb.Code.(string); ok {
				apiErr.Code = s
			} else {
				apiErr.Code = eb.Error
			}
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = fmt.Sprintf("auth service returned status %d", resp.StatusCode)
	}
	return apiErr
}

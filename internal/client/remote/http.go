package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/avolkova/keepsafe/internal/api"
	"github.com/avolkova/keepsafe/internal/client/models"
	"github.com/avolkova/keepsafe/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sethvargo/go-retry"
)

const defaultTimeout = 10 * time.Second

// HTTPClient implements Client over the JSON API described in internal/api.
// The access token of the most recent sign-in is attached as a bearer token
// to every request.
type HTTPClient struct {
	baseURL string
	http    *http.Client

	mu    sync.Mutex
	token string
}

// NewHTTPClient builds a client for the service at baseURL (no trailing slash).
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// SetToken installs a previously persisted access token, e.g. when resuming
// a session after a restart.
func (c *HTTPClient) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *HTTPClient) accessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// TokenExpired reports whether the given access token is past its expiry.
// The signature is not verified — only the server can do that — this is a
// local pre-check to avoid presenting a token that is certain to be refused.
func TokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return exp.Before(now)
}

func (c *HTTPClient) Close() error { return nil }

func (c *HTTPClient) SignUp(ctx context.Context, email, password, fullName string) (*models.Session, error) {
	var resp api.AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/signup",
		api.SignUpRequest{Email: email, Password: password, FullName: fullName}, &resp)
	if err != nil {
		return nil, err
	}
	c.SetToken(resp.AccessToken)
	return sessionFrom(resp), nil
}

func (c *HTTPClient) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	var resp api.AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/signin",
		api.SignInRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	c.SetToken(resp.AccessToken)
	return sessionFrom(resp), nil
}

func (c *HTTPClient) Session(ctx context.Context) (*models.Session, error) {
	var user api.User
	if err := c.do(ctx, http.MethodGet, "/api/auth/session", nil, &user); err != nil {
		return nil, err
	}
	return &models.Session{
		UserID:      user.ID,
		Email:       user.Email,
		FullName:    user.FullName,
		AccessToken: c.accessToken(),
	}, nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/ping", nil, nil)
}

// List retries transient failures with fibonacci backoff: hydration runs
// right after a reconnect, when the link is most likely to still be shaky.
func (c *HTTPClient) List(ctx context.Context, table models.Table) ([]models.Record, error) {
	var recs []models.Record

	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(300*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		recs = nil
		err := c.do(ctx, http.MethodGet, "/api/"+table.String(), nil, &recs)
		if isRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

func (c *HTTPClient) Upsert(ctx context.Context, table models.Table, rec models.Record) error {
	return c.do(ctx, http.MethodPut, "/api/"+table.String()+"/"+rec.ID, rec, nil)
}

func (c *HTTPClient) Update(ctx context.Context, table models.Table, id string, fields map[string]any) error {
	return c.do(ctx, http.MethodPatch, "/api/"+table.String()+"/"+id, fields, nil)
}

func (c *HTTPClient) Delete(ctx context.Context, table models.Table, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/"+table.String()+"/"+id, nil, nil)
}

// do executes one JSON request and decodes the response into out (when
// non-nil), mapping failures onto the common error taxonomy.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.accessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return mapStatus(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: malformed response: %w", common.ErrRemoteRejected, err)
	}
	return nil
}

func mapStatus(resp *http.Response) error {
	var apiErr api.ErrorResponse
	_ = json.NewDecoder(resp.Body).Decode(&apiErr)
	msg := apiErr.Error
	if msg == "" {
		msg = resp.Status
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", common.ErrUnauthenticated, msg)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", common.ErrNotFound, msg)
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%w: %s", common.ErrDuplicateAccount, msg)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s", common.ErrRemoteUnavailable, msg)
	default:
		return fmt.Errorf("%w: %s", common.ErrRemoteRejected, msg)
	}
}

func isRetryable(err error) bool {
	return errors.Is(err, common.ErrRemoteUnavailable)
}

func sessionFrom(resp api.AuthResponse) *models.Session {
	return &models.Session{
		UserID:      resp.User.ID,
		Email:       resp.User.Email,
		FullName:    resp.User.FullName,
		AccessToken: resp.AccessToken,
	}
}

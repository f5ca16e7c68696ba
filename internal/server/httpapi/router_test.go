package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/avolkova/keepsafe/internal/api"
	"github.com/avolkova/keepsafe/internal/logging"
	"github.com/avolkova/keepsafe/internal/server/repositories/rows"
	"github.com/avolkova/keepsafe/internal/server/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	h := NewHandler(
		users.NewMemoryRepository(),
		rows.NewMemoryRepository(),
		logging.NewJSONLogger(io.Discard),
		[]byte("test-secret"),
		time.Hour,
	)
	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func signUp(t *testing.T, srv *httptest.Server, email string) api.AuthResponse {
	t.Helper()
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/auth/signup", "",
		api.SignUpRequest{Email: email, Password: "pw12345", FullName: "Ann"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[api.AuthResponse](t, resp)
}

func TestAuthFlow(t *testing.T) {
	srv := newTestServer(t)

	created := signUp(t, srv, "a@x.io")
	require.NotEmpty(t, created.AccessToken)
	require.NotEmpty(t, created.User.ID)

	t.Run("duplicate signup conflicts", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/auth/signup", "",
			api.SignUpRequest{Email: "a@x.io", Password: "other"})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("signin with right password", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/auth/signin", "",
			api.SignInRequest{Email: "a@x.io", Password: "pw12345"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		auth := decode[api.AuthResponse](t, resp)
		assert.Equal(t, created.User.ID, auth.User.ID)
	})

	t.Run("signin with wrong password", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/auth/signin", "",
			api.SignInRequest{Email: "a@x.io", Password: "wrong"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("session resolves token bearer", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, srv.URL+"/api/auth/session", created.AccessToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		user := decode[api.User](t, resp)
		assert.Equal(t, "a@x.io", user.Email)
	})

	t.Run("session without token rejected", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, srv.URL+"/api/auth/session", "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestRowCRUD(t *testing.T) {
	srv := newTestServer(t)
	auth := signUp(t, srv, "a@x.io")
	token := auth.AccessToken

	now := time.Now().UTC().Truncate(time.Millisecond)
	record := map[string]any{
		"title":      "Doc",
		"url":        "https://x",
		"created_at": now.Format(time.RFC3339Nano),
		"updated_at": now.Format(time.RFC3339Nano),
	}

	t.Run("upsert then list", func(t *testing.T) {
		resp := doJSON(t, http.MethodPut, srv.URL+"/api/links/r1", token, record)
		require.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp = doJSON(t, http.MethodGet, srv.URL+"/api/links", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		listed := decode[[]map[string]any](t, resp)
		require.Len(t, listed, 1)
		assert.Equal(t, "r1", listed[0]["id"])
		assert.Equal(t, "Doc", listed[0]["title"])
		assert.Equal(t, auth.User.ID, listed[0]["user_id"])
	})

	t.Run("list is ordered by created_at", func(t *testing.T) {
		older := map[string]any{
			"title":      "Older",
			"created_at": now.Add(-time.Hour).Format(time.RFC3339Nano),
			"updated_at": now.Add(-time.Hour).Format(time.RFC3339Nano),
		}
		resp := doJSON(t, http.MethodPut, srv.URL+"/api/links/r0", token, older)
		require.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp = doJSON(t, http.MethodGet, srv.URL+"/api/links", token, nil)
		listed := decode[[]map[string]any](t, resp)
		require.Len(t, listed, 2)
		assert.Equal(t, "r0", listed[0]["id"])
		assert.Equal(t, "r1", listed[1]["id"])
	})

	t.Run("patch merges fields only", func(t *testing.T) {
		resp := doJSON(t, http.MethodPatch, srv.URL+"/api/links/r1", token,
			map[string]any{"title": "Doc v2", "id": "evil-override"})
		require.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp = doJSON(t, http.MethodGet, srv.URL+"/api/links", token, nil)
		listed := decode[[]map[string]any](t, resp)
		for _, row := range listed {
			if row["id"] == "r1" {
				assert.Equal(t, "Doc v2", row["title"])
				assert.Equal(t, "https://x", row["url"])
				return
			}
		}
		t.Fatal("row r1 missing from listing")
	})

	t.Run("patch of missing row is 404", func(t *testing.T) {
		resp := doJSON(t, http.MethodPatch, srv.URL+"/api/links/ghost", token,
			map[string]any{"title": "x"})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("delete then 404", func(t *testing.T) {
		resp := doJSON(t, http.MethodDelete, srv.URL+"/api/links/r1", token, nil)
		require.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp = doJSON(t, http.MethodDelete, srv.URL+"/api/links/r1", token, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("unknown table rejected", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, srv.URL+"/api/passwords", token, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("rows are per-user", func(t *testing.T) {
		other := signUp(t, srv, "b@x.io")
		resp := doJSON(t, http.MethodGet, srv.URL+"/api/links", other.AccessToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		listed := decode[[]map[string]any](t, resp)
		assert.Empty(t, listed)
	})
}

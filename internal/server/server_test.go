package server_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/js-playground/internal/auth"
	"github.com/sakif/js-playground/internal/config"
	"github.com/sakif/js-playground/internal/executor"
	"github.com/sakif/js-playground/internal/executor/jsengine"
	"github.com/sakif/js-playground/internal/model"
	"github.com/sakif/js-playground/internal/server"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		DBPath:         ":memory:",
		TemplateDir:    filepath.Join("..", "..", "web", "templates"),
		StaticDir:      filepath.Join("..", "..", "web", "static"),
		SessionTTL:     time.Hour,
		RunTimeout:     2 * time.Second,
		ScriptBackend:  config.BackendEmbedded,
		MaxUploadBytes: 1 << 20,
	}
}

func newTestServer(t *testing.T, cfg config.Config) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := jsengine.New(jsengine.Config{Timeout: cfg.RunTimeout, MaxCallStackSize: 1000}, logger)

	srv, err := server.New(cfg, server.Deps{Units: engine, Scripts: engine}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url, body string, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestServer_HealthAndPage(t *testing.T) {
	ts := newTestServer(t, testConfig(t))

	resp := do(t, http.MethodGet, ts.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]string{"status": "ok"}, decodeBody[map[string]string](t, resp))

	resp = do(t, http.MethodGet, ts.URL+"/", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	resp = do(t, http.MethodGet, ts.URL+"/static/css/playground.css", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_ExecuteUnits(t *testing.T) {
	ts := newTestServer(t, testConfig(t))

	code := `function add(a, b) { return a + b; } function greet() { return "hi"; }`
	body, err := json.Marshal(map[string]string{"code": code})
	require.NoError(t, err)

	resp := do(t, http.MethodPost, ts.URL+"/api/execute", string(body))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	res := decodeBody[executor.ExecutionResult](t, resp)
	assert.Equal(t, executor.ModeUnits, res.Mode)
	assert.Equal(t, []string{"add", "greet"}, res.Units)
	require.Len(t, res.Results, 2)
	assert.Equal(t, "NaN", res.Results[0].Output)
	assert.Equal(t, "hi", res.Results[1].Output)
}

func TestServer_ExecuteScript(t *testing.T) {
	ts := newTestServer(t, testConfig(t))

	resp := do(t, http.MethodPost, ts.URL+"/api/execute", `{"code":"report([1,2,3])","mode":"script"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	res := decodeBody[executor.ExecutionResult](t, resp)
	assert.Equal(t, executor.ModeScript, res.Mode)
	require.Len(t, res.Reports, 1)
	assert.Equal(t, []any{[]any{1.0, 2.0, 3.0}}, res.Reports[0])
}

func TestServer_SnippetLifecycleAnonymous(t *testing.T) {
	ts := newTestServer(t, testConfig(t))

	resp := do(t, http.MethodPost, ts.URL+"/api/snippets", `{"name":"greeter","code":"function greet() { return \"hi\"; }"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody[model.Snippet](t, resp)
	require.NotEmpty(t, created.ID)

	resp = do(t, http.MethodPost, ts.URL+"/api/snippets/"+created.ID+"/run", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decodeBody[executor.ExecutionResult](t, resp)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "hi", res.Results[0].Output)

	resp = do(t, http.MethodGet, ts.URL+"/api/snippets", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeBody[[]model.Snippet](t, resp), 1)

	resp = do(t, http.MethodDelete, ts.URL+"/api/snippets/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/api/snippets/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_AssistWithoutProvider(t *testing.T) {
	ts := newTestServer(t, testConfig(t))

	resp := do(t, http.MethodPost, ts.URL+"/api/assist/generate", `{"description":"sum numbers"}`)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestServer_AuthDisabledHasNoAuthRoutes(t *testing.T) {
	ts := newTestServer(t, testConfig(t))

	assert.Equal(t, http.StatusNotFound, do(t, http.MethodGet, ts.URL+"/api/me", "").StatusCode)
	assert.Equal(t, http.StatusNotFound, do(t, http.MethodPost, ts.URL+"/auth/logout", "").StatusCode)
}

func TestServer_AuthEnabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.JWTSecret = "test-secret-that-is-long-enough-for-hs256"
	cfg.GitHubClientID = "client"
	cfg.GitHubClientSecret = "secret"
	cfg.GitHubCallbackURL = "http://localhost/auth/github/callback"
	ts := newTestServer(t, cfg)

	t.Run("mutations need a session", func(t *testing.T) {
		resp := do(t, http.MethodPost, ts.URL+"/api/snippets", `{"name":"x"}`)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("reads stay public", func(t *testing.T) {
		resp := do(t, http.MethodGet, ts.URL+"/api/snippets", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("a valid cookie is accepted", func(t *testing.T) {
		tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.SessionTTL)
		require.NoError(t, err)
		token, err := tokens.Generate("user-1")
		require.NoError(t, err)

		cookie := &http.Cookie{Name: auth.CookieName, Value: token}
		resp := do(t, http.MethodGet, ts.URL+"/api/snippets?mine=true", "", cookie)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		// The token is valid but no account with that id was ever created.
		resp = do(t, http.MethodGet, ts.URL+"/api/me", "", cookie)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		resp = do(t, http.MethodGet, ts.URL+"/api/snippets?mine=true", "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("login redirects to GitHub", func(t *testing.T) {
		client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}}
		resp, err := client.Get(ts.URL + "/auth/github/login")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Location"), "github.com")
	})
}

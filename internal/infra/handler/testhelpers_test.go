package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"subroute/internal/domain/route"
	"subroute/internal/infra/chirouter"
	"subroute/internal/infra/history"
	"subroute/internal/usecase/journal"
	"subroute/internal/usecase/subrouter"
)

const testAPIBasePath = "/api/v1"

func apiPath(route string) string {
	return testAPIBasePath + route
}

// testServer wraps httptest.Server for integration testing.
type testServer struct {
	*httptest.Server
}

// newTestServer creates a test HTTP server with the given handlers.
func newTestServer(cfg RouterConfig) *testServer {
	if cfg.APIBasePath == "" {
		cfg.APIBasePath = testAPIBasePath
	}
	return &testServer{Server: httptest.NewServer(NewRouter(cfg))}
}

// get performs a GET request to the test server.
func (ts *testServer) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err, "GET %s", path)
	return resp
}

// postJSON performs a POST request with a raw JSON body.
func (ts *testServer) postJSON(t *testing.T, path, body string, headers ...string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, ts.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err, "POST %s", path)
	return resp
}

// delete performs a DELETE request to the test server.
func (ts *testServer) delete(t *testing.T, path string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodDelete, ts.URL+path, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err, "DELETE %s", path)
	return resp
}

// decodeJSON decodes response body as JSON.
func decodeJSON(t *testing.T, resp *http.Response, dest interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

// assertStatus checks HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Errorf("status = %d, want %d (body %s)", resp.StatusCode, want, body)
	}
}

// assertErrorResponse validates error response structure.
func assertErrorResponse(t *testing.T, resp *http.Response, expectedStatus int) map[string]string {
	t.Helper()
	assertStatus(t, resp, expectedStatus)

	var result map[string]string
	decodeJSON(t, resp, &result)
	if _, ok := result["error"]; !ok {
		t.Error("error response missing 'error' field")
	}
	return result
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockHealthChecker is a mock implementation of health checker.
type mockHealthChecker struct {
	healthCheckFunc func(ctx context.Context) error
}

func (m *mockHealthChecker) HealthCheck(ctx context.Context) error {
	if m.healthCheckFunc != nil {
		return m.healthCheckFunc(ctx)
	}
	return nil
}

var errActionFailed = errors.New("action failed")

// testEnv wires a real history, a books sub-router and an in-memory journal.
type testEnv struct {
	history  *history.History
	registry *subrouter.Registry
	journal  *journal.Service

	mu    sync.Mutex
	calls []string
}

func newTestEnv(t *testing.T, initialURL string) *testEnv {
	t.Helper()
	compiler := chirouter.NewCompiler()
	env := &testEnv{
		registry: subrouter.NewRegistry(),
		journal:  journal.NewService(journal.NewMemoryStore(50), quietLogger()),
	}
	env.history = history.New(history.Config{Root: "/"}, compiler, quietLogger(), history.WithRecorder(env.journal))
	_, err := env.history.Start(initialURL, true)
	require.NoError(t, err)

	controller := route.ControllerFunc(func(name string) (route.Action, bool) {
		return func(call route.Call) error {
			env.mu.Lock()
			env.calls = append(env.calls, name+":"+call.Location)
			env.mu.Unlock()
			if name == "fail" {
				return errActionFailed
			}
			return nil
		}, true
	})

	def := subrouter.Definition{
		Routes: route.NewSpec(
			route.Entry{Pattern: "", Handler: route.Ref("index")},
			route.Entry{Pattern: "new", Handler: route.Ref("create")},
			route.Entry{Pattern: "fail", Handler: route.Ref("fail")},
			route.Entry{Pattern: ":id", Handler: route.Ref("show")},
		),
	}
	deps := subrouter.Deps{
		Registrar: env.history,
		Matchers:  compiler,
		Location:  env.history,
		Logger:    quietLogger(),
	}
	books, err := subrouter.New(def, deps, "books",
		subrouter.WithController(controller),
		subrouter.WithTrailingSlashRoutes(true),
	)
	require.NoError(t, err)
	require.NoError(t, env.registry.Add("books", books))
	return env
}

func (e *testEnv) recordedCalls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

func (e *testEnv) routerConfig() RouterConfig {
	return RouterConfig{
		RoutersHandler:  NewRoutersHandler(e.registry),
		NavigateHandler: NewNavigateHandler(e.history, nil),
		DispatchHandler: NewDispatchHandler(e.journal),
		HealthHandler:   &HealthHandler{Routers: e.registry, History: e.history},
	}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return buf.String()
}

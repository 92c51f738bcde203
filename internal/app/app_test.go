package app

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/fastygo/taskboard/api/transport"
	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/internal/config"
	"github.com/fastygo/taskboard/internal/services/lifecycle"
)

func testConfig() *config.Config {
	return &config.Config{
		StoreDriver: config.DriverMemory,
		JWT: config.JWTConfig{
			Secret:     "test-secret",
			Issuer:     "taskboard",
			AccessTTL:  time.Minute,
			SessionTTL: time.Hour,
		},
		Context: config.ContextConfig{RequestTimeout: time.Second},
		Monitor: config.MonitorConfig{Interval: time.Minute},
	}
}

type testServer struct {
	t      *testing.T
	app    *App
	client *fasthttp.Client
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	a := New(testConfig(), MemoryStores(time.Hour), nil)

	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: a.Handler}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Shutdown() })

	return &testServer{
		t:   t,
		app: a,
		client: &fasthttp.Client{
			Dial: func(addr string) (net.Conn, error) { return ln.Dial() },
		},
	}
}

func (s *testServer) do(method, path, token string, body interface{}) (int, transport.RawEnvelope) {
	s.t.Helper()
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(method)
	req.SetRequestURI("http://taskboard" + path)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		req.Header.SetContentType("application/json")
		req.SetBody(raw)
	}

	require.NoError(s.t, s.client.DoTimeout(req, resp, 5*time.Second))

	var env transport.RawEnvelope
	if len(resp.Body()) > 0 {
		require.NoError(s.t, json.Unmarshal(resp.Body(), &env))
	}
	return resp.StatusCode(), env
}

func (s *testServer) login(email string) string {
	s.t.Helper()
	creds := transport.CredentialsRequest{Email: email, Password: "correct horse"}

	status, _ := s.do(http.MethodPost, "/api/v1/auth/register", "", creds)
	require.Equal(s.t, http.StatusCreated, status)

	status, env := s.do(http.MethodPost, "/api/v1/auth/login", "", creds)
	require.Equal(s.t, http.StatusOK, status)

	var tokens transport.TokenResponse
	require.NoError(s.t, json.Unmarshal(env.Data, &tokens))
	require.NotEmpty(s.t, tokens.AccessToken)
	return tokens.AccessToken
}

func decodeTask(t *testing.T, env transport.RawEnvelope) domain.Task {
	t.Helper()
	var task domain.Task
	require.NoError(t, json.Unmarshal(env.Data, &task))
	return task
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	alice := s.login("alice@example.com")

	status, env := s.do(http.MethodPost, "/api/v1/tasks", alice, transport.CreateTaskRequest{Title: "Write spec"})
	require.Equal(t, http.StatusCreated, status)
	created := decodeTask(t, env)
	assert.Equal(t, domain.StatusTodo, created.Status)

	status, env = s.do(http.MethodGet, "/api/v1/tasks", alice, nil)
	require.Equal(t, http.StatusOK, status)
	var list []domain.Task
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Write spec", list[0].Title)

	status, env = s.do(http.MethodPatch, "/api/v1/tasks/"+created.ID, alice, map[string]string{"status": "done"})
	require.Equal(t, http.StatusOK, status)
	updated := decodeTask(t, env)
	assert.Equal(t, domain.StatusDone, updated.Status)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))

	status, env = s.do(http.MethodPut, "/api/v1/tasks/"+created.ID, alice, map[string]string{"title": "Ship spec"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Ship spec", decodeTask(t, env).Title)

	status, env = s.do(http.MethodGet, "/api/v1/tasks/"+created.ID, alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, domain.StatusDone, decodeTask(t, env).Status)

	status, env = s.do(http.MethodDelete, "/api/v1/tasks/"+created.ID, alice, nil)
	require.Equal(t, http.StatusOK, status)
	var deleted transport.DeleteResponse
	require.NoError(t, json.Unmarshal(env.Data, &deleted))
	assert.Equal(t, created.ID, deleted.ID)

	status, env = s.do(http.MethodDelete, "/api/v1/tasks/"+created.ID, alice, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, string(domain.ErrCodeNotFound), env.Code)
}

func TestValidationOverHTTP(t *testing.T) {
	s := newTestServer(t)
	alice := s.login("alice@example.com")

	status, env := s.do(http.MethodPost, "/api/v1/tasks", alice, transport.CreateTaskRequest{Title: "   "})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, string(domain.ErrCodeInvalid), env.Code)

	status, env = s.do(http.MethodPost, "/api/v1/tasks", alice, transport.CreateTaskRequest{Title: "ok"})
	require.Equal(t, http.StatusCreated, status)
	created := decodeTask(t, env)

	status, _ = s.do(http.MethodPatch, "/api/v1/tasks/"+created.ID, alice, map[string]string{"status": "blocked"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(http.MethodPatch, "/api/v1/tasks/"+created.ID, alice, map[string]string{"owner": "someone"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(http.MethodPost, "/api/v1/tasks", alice, "not an object")
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = s.do(http.MethodGet, "/api/v1/tasks/"+created.ID, alice, nil)
	require.Equal(t, http.StatusOK, status)
	got := decodeTask(t, env)
	assert.Equal(t, domain.StatusTodo, got.Status)
	assert.NotEqual(t, "someone", got.Owner)
}

func TestOwnershipOverHTTP(t *testing.T) {
	s := newTestServer(t)
	alice := s.login("alice@example.com")
	bob := s.login("bob@example.com")

	status, env := s.do(http.MethodPost, "/api/v1/tasks", alice, transport.CreateTaskRequest{Title: "private"})
	require.Equal(t, http.StatusCreated, status)
	created := decodeTask(t, env)

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		status, env = s.do(method, "/api/v1/tasks/"+created.ID, bob, nil)
		assert.Equal(t, http.StatusUnauthorized, status, method)
		assert.Equal(t, string(domain.ErrCodeUnauthorized), env.Code)
	}
	status, _ = s.do(http.MethodPatch, "/api/v1/tasks/"+created.ID, bob, map[string]string{"status": "done"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(http.MethodGet, "/api/v1/tasks/does-not-exist", bob, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, env = s.do(http.MethodGet, "/api/v1/tasks", bob, nil)
	require.Equal(t, http.StatusOK, status)
	var list []domain.Task
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Empty(t, list)

	status, _ = s.do(http.MethodGet, "/api/v1/tasks/"+created.ID, alice, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestUpdateChecksExistenceAndOwnerBeforeFields(t *testing.T) {
	s := newTestServer(t)
	alice := s.login("alice@example.com")
	bob := s.login("bob@example.com")

	status, env := s.do(http.MethodPost, "/api/v1/tasks", alice, transport.CreateTaskRequest{Title: "private"})
	require.Equal(t, http.StatusCreated, status)
	created := decodeTask(t, env)

	bodies := map[string]interface{}{
		"bad status":  map[string]string{"status": "blocked"},
		"blank title": map[string]string{"title": "  "},
		"empty patch": map[string]string{},
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			status, env := s.do(http.MethodPatch, "/api/v1/tasks/"+created.ID, bob, body)
			assert.Equal(t, http.StatusUnauthorized, status)
			assert.Equal(t, string(domain.ErrCodeUnauthorized), env.Code)

			status, env = s.do(http.MethodPatch, "/api/v1/tasks/does-not-exist", alice, body)
			assert.Equal(t, http.StatusNotFound, status)
			assert.Equal(t, string(domain.ErrCodeNotFound), env.Code)

			status, env = s.do(http.MethodPatch, "/api/v1/tasks/"+created.ID, alice, body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, string(domain.ErrCodeInvalid), env.Code)
		})
	}
}

func TestAuthOverHTTP(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(http.MethodGet, "/api/v1/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = s.do(http.MethodGet, "/api/v1/tasks", "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	creds := transport.CredentialsRequest{Email: "alice@example.com", Password: "correct horse"}
	status, _ = s.do(http.MethodPost, "/api/v1/auth/register", "", creds)
	require.Equal(t, http.StatusCreated, status)
	status, env := s.do(http.MethodPost, "/api/v1/auth/register", "", creds)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, string(domain.ErrCodeConflict), env.Code)

	status, _ = s.do(http.MethodPost, "/api/v1/auth/login", "", transport.CredentialsRequest{Email: creds.Email, Password: "wrong password"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env = s.do(http.MethodPost, "/api/v1/auth/login", "", creds)
	require.Equal(t, http.StatusOK, status)
	var tokens transport.TokenResponse
	require.NoError(t, json.Unmarshal(env.Data, &tokens))

	status, env = s.do(http.MethodGet, "/api/v1/profile", tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	var user domain.User
	require.NoError(t, json.Unmarshal(env.Data, &user))
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotContains(t, string(env.Data), "password")

	status, env = s.do(http.MethodPost, "/api/v1/auth/refresh", "", transport.RefreshRequest{RefreshToken: tokens.RefreshToken})
	require.Equal(t, http.StatusOK, status)
	var refreshed transport.TokenResponse
	require.NoError(t, json.Unmarshal(env.Data, &refreshed))
	assert.NotEmpty(t, refreshed.AccessToken)

	status, _ = s.do(http.MethodPost, "/api/v1/auth/logout", "", transport.RefreshRequest{RefreshToken: tokens.RefreshToken})
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = s.do(http.MethodPost, "/api/v1/auth/refresh", "", transport.RefreshRequest{RefreshToken: tokens.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = s.do(http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestHealthOverHTTP(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "DEGRADED", env.Code)

	s.app.Monitor.Refresh(context.Background())
	status, _ = s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestOpenStoresMemoryAndBolt(t *testing.T) {
	cfg := testConfig()
	manager := newManager()

	stores, err := OpenStores(context.Background(), cfg, manager, nil)
	require.NoError(t, err)
	assert.NotNil(t, stores.Sessions)
	assert.Len(t, stores.Probes, 1)

	cfg.StoreDriver = config.DriverBolt
	cfg.Bolt.Path = t.TempDir() + "/tasks.db"
	stores, err = OpenStores(context.Background(), cfg, manager, nil)
	require.NoError(t, err)
	require.NoError(t, stores.Tasks.HealthCheck(context.Background()))
	require.NoError(t, manager.Shutdown(context.Background()))

	cfg.StoreDriver = "sqlite"
	_, err = OpenStores(context.Background(), cfg, manager, nil)
	assert.Error(t, err)
}

func newManager() *lifecycle.Manager {
	return lifecycle.New(time.Second, nil)
}

func TestUnknownRoutesKeepEnvelope(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(http.MethodGet, "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "error", env.Status)
	assert.Equal(t, string(domain.ErrCodeNotFound), env.Code)

	status, env = s.do(http.MethodPost, "/health", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, status)
	assert.Equal(t, "METHOD_NOT_ALLOWED", env.Code)
}

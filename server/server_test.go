package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-todo-server/auth"
	"github.com/jrsteele09/go-todo-server/internal/config"
	"github.com/jrsteele09/go-todo-server/server"
	"github.com/jrsteele09/go-todo-server/todos"
	faketodorepo "github.com/jrsteele09/go-todo-server/todos/repofake"
	"github.com/jrsteele09/go-todo-server/token"
	"github.com/jrsteele09/go-todo-server/users"
	fakeuserrepo "github.com/jrsteele09/go-todo-server/users/repofake"
)

type testServer struct {
	srv *server.Server
	now time.Time
}

// advance moves the injected clock forward so consecutive logins never mint
// byte-identical tokens.
func (ts *testServer) advance(d time.Duration) {
	ts.now = ts.now.Add(d)
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithUserRepo(t, fakeuserrepo.NewFakeUserRepo())
}

func newTestServerWithUserRepo(t *testing.T, userRepo users.Repo) *testServer {
	t.Helper()

	ts := &testServer{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}

	tokens, err := token.New(
		[]byte("test-access-secret"),
		[]byte("test-refresh-secret"),
		15*time.Minute,
		7*24*time.Hour,
		token.WithNowFunc(func() time.Time { return ts.now }),
	)
	require.NoError(t, err)

	sessions, err := auth.NewSessionService(userRepo, tokens)
	require.NoError(t, err)

	todoService, err := todos.NewService(faketodorepo.NewFakeTodoRepo())
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.Server.AllowedOrigins = []string{"http://localhost:3000"}

	srv, err := server.New(cfg, sessions, todoService, tokens, nil)
	require.NoError(t, err)

	ts.srv = srv
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	ts.srv.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

type loginBody struct {
	User struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type errorBody struct {
	Error string `json:"error"`
}

type todoBody struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	Position    int    `json:"position"`
}

func register(t *testing.T, ts *testServer, username, password string) {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/auth/register", "", map[string]string{"username": username, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func login(t *testing.T, ts *testServer, username, password string) loginBody {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": username, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeBody[loginBody](t, rec)
}

func TestRegister(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/auth/register", "", map[string]string{"username": "alice", "password": "s3cret"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[struct {
		ID           string `json:"id"`
		Username     string `json:"username"`
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}](t, rec)
	assert.NotEmpty(t, body.ID)
	assert.Equal(t, "alice", body.Username)

	// Registration never returns tokens.
	assert.Empty(t, body.AccessToken)
	assert.Empty(t, body.RefreshToken)

	rec = ts.do(t, http.MethodPost, "/auth/register", "", map[string]string{"username": "alice", "password": "other"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "already_exists", decodeBody[errorBody](t, rec).Error)
}

func TestRegisterValidation(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/auth/register", "", map[string]string{"username": "", "password": "pw"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/auth/register", "", map[string]string{"username": "bob", "password": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)
	register(t, ts, "alice", "s3cret")

	body := login(t, ts, "alice", "s3cret")
	assert.Equal(t, "alice", body.User.Username)
	assert.NotEmpty(t, body.AccessToken)
	assert.NotEmpty(t, body.RefreshToken)

	// Wrong password and unknown user produce the identical error.
	recWrong := ts.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "alice", "password": "nope"})
	recUnknown := ts.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "ghost", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, recWrong.Code)
	assert.Equal(t, http.StatusUnauthorized, recUnknown.Code)
	assert.Equal(t, recWrong.Body.String(), recUnknown.Body.String())
}

func TestRefreshLifecycle(t *testing.T) {
	ts := newTestServer(t)
	register(t, ts, "alice", "s3cret")

	first := login(t, ts, "alice", "s3cret")

	// A later login supersedes the first session's refresh token.
	ts.advance(time.Second)
	second := login(t, ts, "alice", "s3cret")
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	rec := ts.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": first.RefreshToken})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "revoked", decodeBody[errorBody](t, rec).Error)

	// The current refresh token works and is not rotated by use.
	for i := 0; i < 2; i++ {
		rec = ts.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": second.RefreshToken})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		refreshed := decodeBody[struct {
			AccessToken string `json:"accessToken"`
		}](t, rec)
		assert.NotEmpty(t, refreshed.AccessToken)
	}

	// Logout revokes it.
	rec = ts.do(t, http.MethodPost, "/auth/logout", second.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": second.RefreshToken})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "revoked", decodeBody[errorBody](t, rec).Error)
}

func TestRefreshErrors(t *testing.T) {
	ts := newTestServer(t)
	register(t, ts, "alice", "s3cret")
	body := login(t, ts, "alice", "s3cret")

	rec := ts.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": ""})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing_token", decodeBody[errorBody](t, rec).Error)

	rec = ts.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": "not-a-jwt"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "invalid_or_expired", decodeBody[errorBody](t, rec).Error)

	// An access token is signed with the wrong secret for refresh.
	rec = ts.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": body.AccessToken})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "invalid_or_expired", decodeBody[errorBody](t, rec).Error)

	// Expired refresh token.
	ts.advance(8 * 24 * time.Hour)
	rec = ts.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": body.RefreshToken})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "invalid_or_expired", decodeBody[errorBody](t, rec).Error)
}

func TestAuthGate(t *testing.T) {
	ts := newTestServer(t)
	register(t, ts, "alice", "s3cret")
	body := login(t, ts, "alice", "s3cret")

	rec := ts.do(t, http.MethodGet, "/todos", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthenticated", decodeBody[errorBody](t, rec).Error)

	rec = ts.do(t, http.MethodGet, "/todos", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Refresh tokens do not pass the access gate.
	rec = ts.do(t, http.MethodGet, "/todos", body.RefreshToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Expired access token.
	ts.advance(16 * time.Minute)
	rec = ts.do(t, http.MethodGet, "/todos", body.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTodoCRUD(t *testing.T) {
	ts := newTestServer(t)
	register(t, ts, "alice", "s3cret")
	body := login(t, ts, "alice", "s3cret")
	tok := body.AccessToken

	rec := ts.do(t, http.MethodPost, "/todos", tok, map[string]any{"title": "buy milk", "description": "2 liters"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[todoBody](t, rec)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "buy milk", created.Title)
	assert.False(t, created.Completed)

	rec = ts.do(t, http.MethodPost, "/todos", tok, map[string]any{"title": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/todos", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]todoBody](t, rec)
	require.Len(t, list, 1)

	rec = ts.do(t, http.MethodGet, "/todos/"+created.ID, tok, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPut, "/todos/"+created.ID, tok, map[string]any{"completed": true})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeBody[todoBody](t, rec)
	assert.True(t, updated.Completed)
	assert.Equal(t, "buy milk", updated.Title)

	rec = ts.do(t, http.MethodDelete, "/todos/"+created.ID, tok, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/todos/"+created.ID, tok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTodoOwnership(t *testing.T) {
	ts := newTestServer(t)
	register(t, ts, "alice", "s3cret")
	register(t, ts, "bob", "hunter2")

	alice := login(t, ts, "alice", "s3cret")
	ts.advance(time.Second)
	bob := login(t, ts, "bob", "hunter2")

	rec := ts.do(t, http.MethodPost, "/todos", alice.AccessToken, map[string]any{"title": "private"})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[todoBody](t, rec)

	// Bob cannot see, update, or delete Alice's todo.
	rec = ts.do(t, http.MethodGet, "/todos/"+created.ID, bob.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPut, "/todos/"+created.ID, bob.AccessToken, map[string]any{"completed": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/todos/"+created.ID, bob.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/todos", bob.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[[]todoBody](t, rec))
}

func TestTodoReorder(t *testing.T) {
	ts := newTestServer(t)
	register(t, ts, "alice", "s3cret")
	body := login(t, ts, "alice", "s3cret")
	tok := body.AccessToken

	ids := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		rec := ts.do(t, http.MethodPost, "/todos", tok, map[string]any{"title": fmt.Sprintf("task %d", i)})
		require.Equal(t, http.StatusCreated, rec.Code)
		ids = append(ids, decodeBody[todoBody](t, rec).ID)
	}

	reversed := []string{ids[2], ids[1], ids[0]}
	rec := ts.do(t, http.MethodPut, "/todos/reorder", tok, map[string]any{"ids": reversed})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/todos", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]todoBody](t, rec)
	require.Len(t, list, 3)
	for i, todo := range list {
		assert.Equal(t, reversed[i], todo.ID)
	}

	rec = ts.do(t, http.MethodPut, "/todos/reorder", tok, map[string]any{"ids": []string{ids[0], "unknown"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// newTestDeps builds working collaborators for tests that construct the
// server directly.
func newTestDeps(t *testing.T) (*auth.SessionService, *todos.Service, *token.Manager) {
	t.Helper()

	tokens, err := token.New(
		[]byte("test-access-secret"),
		[]byte("test-refresh-secret"),
		15*time.Minute,
		7*24*time.Hour,
	)
	require.NoError(t, err)

	sessions, err := auth.NewSessionService(fakeuserrepo.NewFakeUserRepo(), tokens)
	require.NoError(t, err)

	todoService, err := todos.NewService(faketodorepo.NewFakeTodoRepo())
	require.NoError(t, err)

	return sessions, todoService, tokens
}

func TestNewRequiresConfig(t *testing.T) {
	sessions, todoService, tokens := newTestDeps(t)
	_, err := server.New(nil, sessions, todoService, tokens, nil)
	require.Error(t, err)
}

func TestHealthzTimeoutFromConfig(t *testing.T) {
	sessions, todoService, tokens := newTestDeps(t)

	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.Server.HealthTimeout = 50 * time.Millisecond

	var remaining time.Duration
	health := func(ctx context.Context) error {
		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		remaining = time.Until(deadline)
		return nil
	}

	srv, err := server.New(cfg, sessions, todoService, tokens, health)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Greater(t, remaining, time.Duration(0))
	assert.LessOrEqual(t, remaining, 50*time.Millisecond)
}

func TestHealthzUnhealthyStore(t *testing.T) {
	sessions, todoService, tokens := newTestDeps(t)

	cfg := &config.Config{}
	cfg.App.Env = "test"

	health := func(ctx context.Context) error { return errors.New("connection refused") }
	srv, err := server.New(cfg, sessions, todoService, tokens, health)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

// flakyUserRepo delegates to a working repo until err is set, then fails
// every call with it.
type flakyUserRepo struct {
	users.Repo
	err error
}

func (r *flakyUserRepo) GetByUsername(ctx context.Context, username string) (*users.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.Repo.GetByUsername(ctx, username)
}

func (r *flakyUserRepo) GetByID(ctx context.Context, id string) (*users.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.Repo.GetByID(ctx, id)
}

func (r *flakyUserRepo) SetRefreshToken(ctx context.Context, id, refreshToken string) error {
	if r.err != nil {
		return r.err
	}
	return r.Repo.SetRefreshToken(ctx, id, refreshToken)
}

func TestStoreFailuresReturn500(t *testing.T) {
	repo := &flakyUserRepo{Repo: fakeuserrepo.NewFakeUserRepo()}
	ts := newTestServerWithUserRepo(t, repo)
	register(t, ts, "alice", "s3cret")
	body := login(t, ts, "alice", "s3cret")

	repo.err = errors.New("connection reset by peer")

	// A store failure must never look like bad credentials or a revoked token.
	rec := ts.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "alice", "password": "s3cret"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_error", decodeBody[errorBody](t, rec).Error)

	rec = ts.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": body.RefreshToken})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_error", decodeBody[errorBody](t, rec).Error)

	rec = ts.do(t, http.MethodPost, "/auth/logout", body.AccessToken, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_error", decodeBody[errorBody](t, rec).Error)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	register(t, ts, "alice", "s3cret")

	rec := ts.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	ts.srv.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/auth/login", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	ts.srv.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

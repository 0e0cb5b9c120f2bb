package client

import (
	"context"
	"errors"
	"go/parser"
	"go/token"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/BuzzLyutic/task-tracker-api/internal/auth"
	"github.com/BuzzLyutic/task-tracker-api/internal/handler"
	"github.com/BuzzLyutic/task-tracker-api/internal/repo/memory"
	"github.com/BuzzLyutic/task-tracker-api/internal/service"
	"github.com/BuzzLyutic/task-tracker-api/pkg/respond"
)

func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	users := memory.NewUserRepo()
	tasks := memory.NewTaskRepo()
	tokens := auth.NewTokenManager("client-test-secret", time.Hour)
	logger := zap.NewNop()

	authService, err := service.NewAuthService(users, tokens, bcrypt.MinCost)
	require.NoError(t, err)

	srv := httptest.NewServer(handler.NewRouter(handler.RouterConfig{
		Auth:    handler.NewAuthHandler(authService, logger, false),
		Tasks:   handler.NewTaskHandler(service.NewTaskService(tasks, users), logger, false),
		Tokens:  tokens,
		Version: "test",
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_TaskLifecycle(t *testing.T) {
	srv := startServer(t)
	ctx := context.Background()
	sessions := NewMemoryStore()
	c := New(srv.URL+"/api/v1/", sessions)

	_, err := c.Session()
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	user, err := c.Register(ctx, RegisterRequest{Name: "Ann", Email: "ann@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, RoleUser, user.Role)

	session, err := c.Session()
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, user, session.User)

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, user.ID, me.ID)

	due := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	created, err := c.CreateTask(ctx, CreateTaskRequest{
		Title: "Fix bug", Description: "details", Priority: PriorityHigh, DueDate: &due,
	}, "fix-bug-1")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, created.Status)
	assert.Equal(t, "Ann", created.CreatedBy.DisplayName())
	require.NotNil(t, created.DueDate)
	assert.True(t, created.DueDate.Equal(due))

	again, err := c.CreateTask(ctx, CreateTaskRequest{Title: "Fix bug", Description: "details"}, "fix-bug-1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)

	page, err := c.ListTasks(ctx, ListOptions{Priority: PriorityHigh, Limit: 5})
	require.NoError(t, err)
	require.Len(t, page.Tasks, 1)
	assert.Equal(t, 5, page.Pagination.Limit)

	updated, err := c.UpdateTask(ctx, created.ID, map[string]any{"status": "completed", "dueDate": nil})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, updated.Status)
	assert.Nil(t, updated.DueDate)

	_, err = c.UpdateTask(ctx, created.ID, map[string]any{"createdBy": "someone-else"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)

	_, err = c.ListAllTasks(ctx)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "Access denied. Admin only", apiErr.Message)

	require.NoError(t, c.DeleteTask(ctx, created.ID))

	_, err = c.GetTask(ctx, created.ID)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.False(t, errors.Is(err, ErrSessionExpired))

	require.NoError(t, c.Logout())
	_, err = c.Me(ctx)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestClient_AdminAndLogin(t *testing.T) {
	srv := startServer(t)
	ctx := context.Background()

	admin := New(srv.URL+"/api/v1", NewMemoryStore())
	_, err := admin.Register(ctx, RegisterRequest{Name: "Root", Email: "root@example.com", Password: "secret1", Role: RoleAdmin})
	require.NoError(t, err)

	ann := New(srv.URL+"/api/v1", NewMemoryStore())
	_, err = ann.Register(ctx, RegisterRequest{Name: "Ann", Email: "ann@example.com", Password: "secret1"})
	require.NoError(t, err)
	_, err = ann.CreateTask(ctx, CreateTaskRequest{Title: "Ann task", Description: "d"}, "")
	require.NoError(t, err)

	all, err := admin.ListAllTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	stats, err := admin.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalTasks)
	assert.Equal(t, 1, stats.ByStatus[StatusPending])

	fresh := New(srv.URL+"/api/v1", NewMemoryStore())
	_, err = fresh.Login(ctx, "ann@example.com", "wrong-password")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid credentials", apiErr.Message)
	_, err = fresh.Session()
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	user, err := fresh.Login(ctx, "ann@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "Ann", user.Name)
}

func TestClient_ClearsSessionOn401(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		respond.Error(w, r, http.StatusUnauthorized, "Invalid token")
	}))
	defer srv.Close()

	sessions := NewMemoryStore()
	require.NoError(t, sessions.Save(Session{Token: "stale", User: User{ID: "u1"}}))

	c := New(srv.URL, sessions)
	_, err := c.ListTasks(context.Background(), ListOptions{})

	assert.Equal(t, "Bearer stale", gotAuth)
	assert.ErrorIs(t, err, ErrSessionExpired)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid token", apiErr.Message)

	_, ok, err := sessions.Load()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := NewFileStore(path)

	_, ok, err := store.Load()
	require.NoError(t, err)
	assert.False(t, ok)

	s := Session{Token: "tok", User: User{ID: "u1", Name: "Ann", Email: "ann@example.com", Role: RoleUser}}
	require.NoError(t, store.Save(s))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, ok, err := store.Load()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, s, loaded)

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())
	_, ok, err = store.Load()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListOptionsQuery(t *testing.T) {
	assert.Equal(t, "", ListOptions{}.query())
	assert.Equal(t, "?limit=20&page=2&status=in-progress",
		ListOptions{Status: StatusInProgress, Page: 2, Limit: 20}.query())
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-12-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDate("2026-12-01T10:30:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 12, 1, 8, 30, 0, 0, time.UTC), d)

	_, err = ParseDate("next friday")
	assert.Error(t, err)
}

// The package is meant to be imported from other modules, which cannot reach
// internal packages, so its API must not mention them.
func TestNoInternalImports(t *testing.T) {
	files, err := filepath.Glob("*.go")
	require.NoError(t, err)

	fset := token.NewFileSet()
	for _, name := range files {
		if strings.HasSuffix(name, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, name, nil, parser.ImportsOnly)
		require.NoError(t, err)
		for _, imp := range f.Imports {
			path, err := strconv.Unquote(imp.Path.Value)
			require.NoError(t, err)
			assert.NotContains(t, path, "/internal/", name)
		}
	}
}

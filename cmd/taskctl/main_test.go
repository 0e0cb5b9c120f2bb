package main

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
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
	"github.com/BuzzLyutic/task-tracker-api/pkg/client"
)

func run(t *testing.T, apiURL, session string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--api", apiURL, "--session", session}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestTaskctl(t *testing.T) {
	users := memory.NewUserRepo()
	tokens := auth.NewTokenManager("cli-secret", time.Hour)
	authService, err := service.NewAuthService(users, tokens, bcrypt.MinCost)
	require.NoError(t, err)
	srv := httptest.NewServer(handler.NewRouter(handler.RouterConfig{
		Auth:   handler.NewAuthHandler(authService, zap.NewNop(), false),
		Tasks:  handler.NewTaskHandler(service.NewTaskService(memory.NewTaskRepo(), users), zap.NewNop(), false),
		Tokens: tokens,
	}))
	defer srv.Close()

	api := srv.URL + "/api/v1"
	session := filepath.Join(t.TempDir(), "session.json")

	out, err := run(t, api, session, "register", "--name", "Ann", "--email", "ann@example.com", "--password", "secret1")
	require.NoError(t, err)
	assert.Contains(t, out, "Registered and logged in as Ann")

	out, err = run(t, api, session, "tasks", "create", "--title", "Fix bug", "--description", "details", "--priority", "high", "--due", "2026-12-01")
	require.NoError(t, err)
	var created client.Task
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.Equal(t, client.PriorityHigh, created.Priority)
	require.NotNil(t, created.DueDate)
	assert.Equal(t, "2026-12-01", created.DueDate.Format("2006-01-02"))

	out, err = run(t, api, session, "tasks", "update", created.ID, "--status", "completed", "--clear-due")
	require.NoError(t, err)
	var updated client.Task
	require.NoError(t, json.Unmarshal([]byte(out), &updated))
	assert.Equal(t, client.StatusCompleted, updated.Status)
	assert.Nil(t, updated.DueDate)

	out, err = run(t, api, session, "tasks", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Fix bug")
	assert.Contains(t, out, "page 1 of 1 (1 tasks)")

	_, err = run(t, api, session, "tasks", "update", created.ID)
	assert.Error(t, err)

	_, err = run(t, api, session, "tasks", "all")
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 403, apiErr.StatusCode)

	out, err = run(t, api, session, "tasks", "delete", created.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Task deleted successfully")

	_, err = run(t, api, session, "logout")
	require.NoError(t, err)

	_, err = run(t, api, session, "whoami")
	assert.ErrorIs(t, err, client.ErrSessionExpired)
}

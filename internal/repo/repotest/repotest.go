// Package repotest holds behaviour tests shared by every repository backend.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BuzzLyutic/task-tracker-api/internal/model"
	"github.com/BuzzLyutic/task-tracker-api/internal/repo"
)

// Factory returns repositories over an empty store.
type Factory func(t *testing.T) (repo.UserRepository, repo.TaskRepository)

func RunUserRepositoryTests(t *testing.T, newRepos Factory) {
	ctx := context.Background()

	t.Run("create and fetch", func(t *testing.T) {
		users, _ := newRepos(t)

		created, err := users.Create(ctx, model.User{
			Name: "Ann", Email: "ann@example.com", PasswordHash: "hash", Role: model.RoleUser,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.False(t, created.CreatedAt.IsZero())

		byID, err := users.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "ann@example.com", byID.Email)
		assert.Equal(t, "hash", byID.PasswordHash)
		assert.Equal(t, model.RoleUser, byID.Role)

		byEmail, err := users.GetByEmail(ctx, "ann@example.com")
		require.NoError(t, err)
		assert.Equal(t, created.ID, byEmail.ID)
	})

	t.Run("duplicate email", func(t *testing.T) {
		users, _ := newRepos(t)

		_, err := users.Create(ctx, model.User{Name: "A", Email: "dup@example.com", PasswordHash: "h", Role: model.RoleUser})
		require.NoError(t, err)

		_, err = users.Create(ctx, model.User{Name: "B", Email: "dup@example.com", PasswordHash: "h", Role: model.RoleUser})
		assert.ErrorIs(t, err, repo.ErrorConflict)
	})

	t.Run("unknown ids", func(t *testing.T) {
		users, _ := newRepos(t)

		_, err := users.GetByID(ctx, "not-an-id")
		assert.ErrorIs(t, err, repo.ErrorNotFound)

		_, err = users.GetByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, repo.ErrorNotFound)
	})

	t.Run("get by ids", func(t *testing.T) {
		users, _ := newRepos(t)

		a, err := users.Create(ctx, model.User{Name: "A", Email: "a@example.com", PasswordHash: "h", Role: model.RoleUser})
		require.NoError(t, err)
		b, err := users.Create(ctx, model.User{Name: "B", Email: "b@example.com", PasswordHash: "h", Role: model.RoleAdmin})
		require.NoError(t, err)
		_, err = users.Create(ctx, model.User{Name: "C", Email: "c@example.com", PasswordHash: "h", Role: model.RoleUser})
		require.NoError(t, err)

		got, err := users.GetByIDs(ctx, []string{a.ID, b.ID, "garbage"})
		require.NoError(t, err)

		ids := make([]string, 0, len(got))
		for _, u := range got {
			ids = append(ids, u.ID)
		}
		assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)
	})
}

func RunTaskRepositoryTests(t *testing.T, newRepos Factory) {
	ctx := context.Background()

	newUser := func(t *testing.T, users repo.UserRepository, email string) model.User {
		t.Helper()
		u, err := users.Create(ctx, model.User{Name: email, Email: email, PasswordHash: "h", Role: model.RoleUser})
		require.NoError(t, err)
		return u
	}

	newTask := func(t *testing.T, tasks repo.TaskRepository, title string, owner string, opts ...func(*model.Task)) model.Task {
		t.Helper()
		task := model.Task{
			Title:       title,
			Description: "details",
			Status:      model.StatusPending,
			Priority:    model.PriorityMedium,
			CreatedBy:   owner,
		}
		for _, opt := range opts {
			opt(&task)
		}
		created, err := tasks.Create(ctx, task)
		require.NoError(t, err)
		return created
	}

	t.Run("create and get", func(t *testing.T) {
		users, tasks := newRepos(t)
		owner := newUser(t, users, "owner@example.com")
		due := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)

		created := newTask(t, tasks, "Fix bug", owner.ID, func(task *model.Task) {
			task.Priority = model.PriorityHigh
			task.DueDate = &due
		})
		assert.NotEmpty(t, created.ID)

		got, err := tasks.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Fix bug", got.Title)
		assert.Equal(t, "details", got.Description)
		assert.Equal(t, model.StatusPending, got.Status)
		assert.Equal(t, model.PriorityHigh, got.Priority)
		assert.Equal(t, owner.ID, got.CreatedBy)
		assert.Empty(t, got.AssignedTo)
		require.NotNil(t, got.DueDate)
		assert.True(t, due.Equal(*got.DueDate))
	})

	t.Run("get missing", func(t *testing.T) {
		users, tasks := newRepos(t)
		owner := newUser(t, users, "owner@example.com")
		task := newTask(t, tasks, "Gone", owner.ID)
		require.NoError(t, tasks.Delete(ctx, task.ID))

		_, err := tasks.Get(ctx, task.ID)
		assert.ErrorIs(t, err, repo.ErrorNotFound)

		_, err = tasks.Get(ctx, "not-an-id")
		assert.ErrorIs(t, err, repo.ErrorNotFound)
	})

	t.Run("list filters visibility and pagination", func(t *testing.T) {
		users, tasks := newRepos(t)
		alice := newUser(t, users, "alice@example.com")
		bob := newUser(t, users, "bob@example.com")
		carol := newUser(t, users, "carol@example.com")

		newTask(t, tasks, "alice 1", alice.ID)
		newTask(t, tasks, "alice 2", alice.ID, func(task *model.Task) { task.Status = model.StatusCompleted })
		newTask(t, tasks, "bob for alice", bob.ID, func(task *model.Task) { task.AssignedTo = alice.ID })
		newTask(t, tasks, "bob 1", bob.ID, func(task *model.Task) { task.Priority = model.PriorityHigh })
		newTask(t, tasks, "carol 1", carol.ID)

		all, total, err := tasks.List(ctx, model.TaskFilter{}, model.Page{})
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		require.Len(t, all, 5)
		assert.Equal(t, "carol 1", all[0].Title, "newest first")

		visible, total, err := tasks.List(ctx, model.TaskFilter{VisibleTo: alice.ID}, model.Page{Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		for _, task := range visible {
			assert.True(t, task.CreatedBy == alice.ID || task.AssignedTo == alice.ID, task.Title)
		}

		completed := model.StatusCompleted
		done, total, err := tasks.List(ctx, model.TaskFilter{Status: &completed, VisibleTo: alice.ID}, model.Page{Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, done, 1)
		assert.Equal(t, "alice 2", done[0].Title)

		high := model.PriorityHigh
		urgent, total, err := tasks.List(ctx, model.TaskFilter{Priority: &high}, model.Page{Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, urgent, 1)
		assert.Equal(t, "bob 1", urgent[0].Title)

		page2, total, err := tasks.List(ctx, model.TaskFilter{}, model.Page{Offset: 2, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		require.Len(t, page2, 2)
		assert.Equal(t, "bob for alice", page2[0].Title)
		assert.Equal(t, "alice 2", page2[1].Title)

		empty, total, err := tasks.List(ctx, model.TaskFilter{}, model.Page{Offset: 10, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		assert.Empty(t, empty)
	})

	t.Run("update", func(t *testing.T) {
		users, tasks := newRepos(t)
		owner := newUser(t, users, "owner@example.com")
		other := newUser(t, users, "other@example.com")
		due := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)
		task := newTask(t, tasks, "Original", owner.ID, func(task *model.Task) { task.DueDate = &due })

		title := "Updated"
		status := model.StatusInProgress
		updated, err := tasks.Update(ctx, task.ID, model.TaskPatch{
			Title:        &title,
			Status:       &status,
			AssignedTo:   &other.ID,
			ClearDueDate: true,
		})
		require.NoError(t, err)
		assert.Equal(t, "Updated", updated.Title)
		assert.Equal(t, model.StatusInProgress, updated.Status)
		assert.Equal(t, other.ID, updated.AssignedTo)
		assert.Nil(t, updated.DueDate)
		assert.Equal(t, "details", updated.Description)
		assert.Equal(t, owner.ID, updated.CreatedBy)
		assert.False(t, updated.UpdatedAt.Before(task.UpdatedAt))

		cleared, err := tasks.Update(ctx, task.ID, model.TaskPatch{ClearAssignee: true})
		require.NoError(t, err)
		assert.Empty(t, cleared.AssignedTo)

		_, err = tasks.Update(ctx, "not-an-id", model.TaskPatch{Title: &title})
		assert.ErrorIs(t, err, repo.ErrorNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		users, tasks := newRepos(t)
		owner := newUser(t, users, "owner@example.com")
		task := newTask(t, tasks, "To delete", owner.ID)

		require.NoError(t, tasks.Delete(ctx, task.ID))
		assert.ErrorIs(t, tasks.Delete(ctx, task.ID), repo.ErrorNotFound)
	})

	t.Run("idempotency keys", func(t *testing.T) {
		users, tasks := newRepos(t)
		owner := newUser(t, users, "owner@example.com")
		first := newTask(t, tasks, "First", owner.ID)
		second := newTask(t, tasks, "Second", owner.ID)

		_, err := tasks.GetIdempotencyKey(ctx, "key-1")
		assert.ErrorIs(t, err, repo.ErrorNotFound)

		require.NoError(t, tasks.SaveIdempotencyKey(ctx, "key-1", first.ID))
		require.NoError(t, tasks.SaveIdempotencyKey(ctx, "key-1", second.ID))

		id, err := tasks.GetIdempotencyKey(ctx, "key-1")
		require.NoError(t, err)
		assert.Equal(t, first.ID, id, "first writer wins")

		require.NoError(t, tasks.SaveIdempotencyKey(ctx, "key-2", second.ID))
		require.NoError(t, tasks.Delete(ctx, first.ID))

		_, err = tasks.GetIdempotencyKey(ctx, "key-1")
		assert.ErrorIs(t, err, repo.ErrorNotFound, "deleting a task releases its keys")
		id, err = tasks.GetIdempotencyKey(ctx, "key-2")
		require.NoError(t, err)
		assert.Equal(t, second.ID, id)
	})

	t.Run("stats", func(t *testing.T) {
		users, tasks := newRepos(t)
		owner := newUser(t, users, "owner@example.com")
		newTask(t, tasks, "a", owner.ID)
		newTask(t, tasks, "b", owner.ID, func(task *model.Task) { task.Status = model.StatusCompleted })
		newTask(t, tasks, "c", owner.ID, func(task *model.Task) {
			task.Status = model.StatusCompleted
			task.Priority = model.PriorityHigh
		})

		stats, err := tasks.GetStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, stats.TotalTasks)
		assert.Equal(t, 1, stats.ByStatus["pending"])
		assert.Equal(t, 2, stats.ByStatus["completed"])
		assert.Equal(t, 2, stats.ByPriority["medium"])
		assert.Equal(t, 1, stats.ByPriority["high"])
	})
}

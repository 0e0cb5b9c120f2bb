package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BuzzLyutic/task-tracker-api/internal/model"
	"github.com/BuzzLyutic/task-tracker-api/internal/repo"
	"github.com/BuzzLyutic/task-tracker-api/internal/repo/repotest"
)

func factory(t *testing.T) (repo.UserRepository, repo.TaskRepository) {
	return NewUserRepo(), NewTaskRepo()
}

func TestUserRepo(t *testing.T) {
	repotest.RunUserRepositoryTests(t, factory)
}

func TestTaskRepo(t *testing.T) {
	repotest.RunTaskRepositoryTests(t, factory)
}

func TestUserRepo_ConcurrentRegistration(t *testing.T) {
	users := NewUserRepo()
	ctx := context.Background()

	const goroutines = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, err := users.Create(ctx, model.User{
				Name:  fmt.Sprintf("user %d", idx),
				Email: "same@example.com",
				Role:  model.RoleUser,
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				created++
			} else if assert.ErrorIs(t, err, repo.ErrorConflict) {
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, goroutines-1, conflicts)

	_, err := users.GetByEmail(ctx, "same@example.com")
	require.NoError(t, err)
}

func TestTaskRepo_ListOutOfRangeOffset(t *testing.T) {
	tasks := NewTaskRepo()
	ctx := context.Background()
	_, err := tasks.Create(ctx, model.Task{Title: "only", Description: "d", CreatedBy: "u1",
		Status: model.StatusPending, Priority: model.PriorityMedium})
	require.NoError(t, err)

	for _, offset := range []int{-10, 1 << 30} {
		got, total, err := tasks.List(ctx, model.TaskFilter{}, model.Page{Offset: offset, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		if offset < 0 {
			assert.Len(t, got, 1)
		} else {
			assert.Empty(t, got)
		}
	}
}

package mongodb

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BuzzLyutic/task-tracker-api/internal/repo"
	"github.com/BuzzLyutic/task-tracker-api/internal/repo/repotest"
	"github.com/BuzzLyutic/task-tracker-api/internal/testutil"
)

func TestMongoRepositories(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}

	client := testutil.SetupMongo(t)
	ctx := context.Background()

	// Каждый подтест получает свою базу
	n := 0
	factory := func(t *testing.T) (repo.UserRepository, repo.TaskRepository) {
		n++
		db := client.Database(fmt.Sprintf("taskdb_test_%d", n))
		require.NoError(t, EnsureIndexes(ctx, db))
		t.Cleanup(func() { _ = db.Drop(ctx) })
		return NewUserRepo(db), NewTaskRepo(db)
	}

	t.Run("users", func(t *testing.T) { repotest.RunUserRepositoryTests(t, factory) })
	t.Run("tasks", func(t *testing.T) { repotest.RunTaskRepositoryTests(t, factory) })
}

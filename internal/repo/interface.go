package repo

import (
	"context"
	"errors"

	"github.com/BuzzLyutic/task-tracker-api/internal/model"
)

var (
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("conflict")
)

// TaskRepository определяет интерфейс для работы с задачами
type TaskRepository interface {
	Create(ctx context.Context, t model.Task) (model.Task, error)
	Get(ctx context.Context, id string) (model.Task, error)
	// List returns the requested page and the total number of matches.
	List(ctx context.Context, filter model.TaskFilter, page model.Page) ([]model.Task, int, error)
	Update(ctx context.Context, id string, patch model.TaskPatch) (model.Task, error)
	Delete(ctx context.Context, id string) error
	SaveIdempotencyKey(ctx context.Context, key string, resourceID string) error
	GetIdempotencyKey(ctx context.Context, key string) (string, error)
	GetStats(ctx context.Context) (Stats, error)
}

// UserRepository stores accounts. Emails are unique; Create returns
// ErrorConflict for a duplicate.
type UserRepository interface {
	Create(ctx context.Context, u model.User) (model.User, error)
	GetByID(ctx context.Context, id string) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	// GetByIDs returns the users that exist among ids, in no particular order.
	GetByIDs(ctx context.Context, ids []string) ([]model.User, error)
}

type Stats struct {
	TotalTasks int            `json:"totalTasks"`
	ByStatus   map[string]int `json:"byStatus"`
	ByPriority map[string]int `json:"byPriority"`
}

func NewStats() Stats {
	return Stats{ByStatus: map[string]int{}, ByPriority: map[string]int{}}
}

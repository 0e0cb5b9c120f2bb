// Package memory keeps users and tasks in process memory. It backs local
// development runs and the HTTP tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BuzzLyutic/task-tracker-api/internal/model"
	"github.com/BuzzLyutic/task-tracker-api/internal/repo"
)

type UserRepo struct {
	mu      sync.RWMutex
	users   map[string]model.User
	byEmail map[string]string
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		users:   make(map[string]model.User),
		byEmail: make(map[string]string),
	}
}

func (s *UserRepo) Create(_ context.Context, u model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[u.Email]; exists {
		return u, repo.ErrorConflict
	}

	now := time.Now().UTC()
	u.ID = uuid.NewString()
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = u
	s.byEmail[u.Email] = u.ID
	return u, nil
}

func (s *UserRepo) GetByID(_ context.Context, id string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, exists := s.users[id]
	if !exists {
		return model.User{}, repo.ErrorNotFound
	}
	return u, nil
}

func (s *UserRepo) GetByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.byEmail[email]
	if !exists {
		return model.User{}, repo.ErrorNotFound
	}
	return s.users[id], nil
}

func (s *UserRepo) GetByIDs(_ context.Context, ids []string) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var users []model.User
	for _, id := range ids {
		if u, exists := s.users[id]; exists {
			users = append(users, u)
		}
	}
	return users, nil
}

type storedTask struct {
	task model.Task
	seq  uint64
}

type TaskRepo struct {
	mu    sync.RWMutex
	tasks map[string]storedTask
	keys  map[string]string
	seq   uint64
}

func NewTaskRepo() *TaskRepo {
	return &TaskRepo{
		tasks: make(map[string]storedTask),
		keys:  make(map[string]string),
	}
}

func (s *TaskRepo) Create(_ context.Context, t model.Task) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	t.ID = uuid.NewString()
	t.CreatedAt, t.UpdatedAt = now, now
	s.seq++
	s.tasks[t.ID] = storedTask{task: t, seq: s.seq}
	return t, nil
}

func (s *TaskRepo) Get(_ context.Context, id string) (model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, exists := s.tasks[id]
	if !exists {
		return model.Task{}, repo.ErrorNotFound
	}
	return st.task, nil
}

func (s *TaskRepo) List(_ context.Context, filter model.TaskFilter, page model.Page) ([]model.Task, int, error) {
	s.mu.RLock()
	matched := make([]storedTask, 0, len(s.tasks))
	for _, st := range s.tasks {
		if matches(st.task, filter) {
			matched = append(matched, st)
		}
	}
	s.mu.RUnlock()

	// Newest first; seq breaks ties between tasks created in the same instant.
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.task.CreatedAt.Equal(b.task.CreatedAt) {
			return a.task.CreatedAt.After(b.task.CreatedAt)
		}
		return a.seq > b.seq
	})

	total := len(matched)
	start := min(max(page.Offset, 0), total)
	end := total
	if page.Limit > 0 {
		end = min(start+page.Limit, total)
	}

	tasks := make([]model.Task, 0, end-start)
	for _, st := range matched[start:end] {
		tasks = append(tasks, st.task)
	}
	return tasks, total, nil
}

func matches(t model.Task, f model.TaskFilter) bool {
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if f.Priority != nil && t.Priority != *f.Priority {
		return false
	}
	if f.VisibleTo != "" && t.CreatedBy != f.VisibleTo && t.AssignedTo != f.VisibleTo {
		return false
	}
	return true
}

func (s *TaskRepo) Update(_ context.Context, id string, patch model.TaskPatch) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, exists := s.tasks[id]
	if !exists {
		return model.Task{}, repo.ErrorNotFound
	}
	st.task = patch.Apply(st.task)
	st.task.UpdatedAt = time.Now().UTC()
	s.tasks[id] = st
	return st.task, nil
}

func (s *TaskRepo) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[id]; !exists {
		return repo.ErrorNotFound
	}
	delete(s.tasks, id)
	for key, resourceID := range s.keys {
		if resourceID == id {
			delete(s.keys, key)
		}
	}
	return nil
}

func (s *TaskRepo) SaveIdempotencyKey(_ context.Context, key string, resourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.keys[key]; !exists {
		s.keys[key] = resourceID
	}
	return nil
}

func (s *TaskRepo) GetIdempotencyKey(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.keys[key]
	if !exists {
		return "", repo.ErrorNotFound
	}
	return id, nil
}

func (s *TaskRepo) GetStats(_ context.Context) (repo.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := repo.NewStats()
	for _, st := range s.tasks {
		stats.TotalTasks++
		stats.ByStatus[string(st.task.Status)]++
		stats.ByPriority[string(st.task.Priority)]++
	}
	return stats, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/BuzzLyutic/task-tracker-api/internal/model"
	"github.com/BuzzLyutic/task-tracker-api/internal/repo"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
	minTitleLength   = 3
	maxPageOffset    = math.MaxInt32
)

type TaskService struct {
	repo  repo.TaskRepository
	users repo.UserRepository
}

func NewTaskService(repo repo.TaskRepository, users repo.UserRepository) *TaskService {
	return &TaskService{repo: repo, users: users}
}

func (s *TaskService) Create(ctx context.Context, actor model.Actor, in model.TaskInput, idempKey string) (model.TaskView, error) {
	if err := s.validateInput(ctx, &in); err != nil {
		return model.TaskView{}, err
	}

	if idempKey != "" { // Обеспечение идемпотентности - если ключ с ресурсом уже существует, мы не создаем его еще раз
		idempKey = actor.UserID + ":" + idempKey
		existingID, err := s.repo.GetIdempotencyKey(ctx, idempKey)
		switch {
		case err == nil:
			view, err := s.Get(ctx, actor, existingID)
			if !errors.Is(err, repo.ErrorNotFound) {
				return view, err
			}
			// задача удалена после первой попытки, создаём заново
		case !errors.Is(err, repo.ErrorNotFound):
			return model.TaskView{}, fmt.Errorf("lookup idempotency key: %w", err)
		}
	}

	task := model.Task{
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		CreatedBy:   actor.UserID,
		AssignedTo:  in.AssignedTo,
	}
	if in.DueDate != nil {
		due := in.DueDate.Time
		task.DueDate = &due
	}

	created, err := s.repo.Create(ctx, task)
	if err != nil {
		return model.TaskView{}, err
	}

	if idempKey != "" {
		if err := s.repo.SaveIdempotencyKey(ctx, idempKey, created.ID); err != nil {
			return model.TaskView{}, err
		}
	}

	return s.populateOne(ctx, created)
}

func (s *TaskService) Get(ctx context.Context, actor model.Actor, id string) (model.TaskView, error) {
	task, err := s.repo.Get(ctx, id)
	if err != nil {
		return model.TaskView{}, err
	}
	if !task.CanRead(actor) {
		return model.TaskView{}, ErrForbidden
	}
	return s.populateOne(ctx, task)
}

// List returns one page of the tasks visible to the actor. Non-admins only
// see tasks they created or are assigned to.
func (s *TaskService) List(ctx context.Context, actor model.Actor, filter model.TaskFilter, page, limit int) (model.TaskPage, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return model.TaskPage{}, invalid("Invalid status filter")
	}
	if filter.Priority != nil && !filter.Priority.Valid() {
		return model.TaskPage{}, invalid("Invalid priority filter")
	}

	filter.VisibleTo = ""
	if !actor.IsAdmin() {
		filter.VisibleTo = actor.UserID
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	tasks, total, err := s.repo.List(ctx, filter, model.Page{Offset: pageOffset(page, limit), Limit: limit})
	if err != nil {
		return model.TaskPage{}, err
	}

	views, err := s.populate(ctx, tasks)
	if err != nil {
		return model.TaskPage{}, err
	}

	return model.TaskPage{
		Tasks: views,
		Pagination: model.Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: (total + limit - 1) / limit,
		},
	}, nil
}

// pageOffset returns the number of rows to skip for a 1-based page. Pages
// far past any real data are capped instead of overflowing.
func pageOffset(page, limit int) int {
	if page-1 > maxPageOffset/limit {
		return maxPageOffset
	}
	return (page - 1) * limit
}

// ListAll returns every task regardless of owner. Admin only.
func (s *TaskService) ListAll(ctx context.Context, actor model.Actor) ([]model.TaskView, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	tasks, _, err := s.repo.List(ctx, model.TaskFilter{}, model.Page{})
	if err != nil {
		return nil, err
	}
	return s.populate(ctx, tasks)
}

func (s *TaskService) Update(ctx context.Context, actor model.Actor, id string, patch model.TaskPatch) (model.TaskView, error) {
	task, err := s.repo.Get(ctx, id)
	if err != nil {
		return model.TaskView{}, err
	}
	if !task.CanWrite(actor) {
		return model.TaskView{}, ErrForbidden
	}

	if err := s.validatePatch(ctx, &patch); err != nil {
		return model.TaskView{}, err
	}
	if patch.IsEmpty() {
		return s.populateOne(ctx, task)
	}

	updated, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return model.TaskView{}, err
	}
	return s.populateOne(ctx, updated)
}

func (s *TaskService) Delete(ctx context.Context, actor model.Actor, id string) error {
	task, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !task.CanWrite(actor) {
		return ErrForbidden
	}
	return s.repo.Delete(ctx, id)
}

func (s *TaskService) GetStats(ctx context.Context) (repo.Stats, error) {
	return s.repo.GetStats(ctx)
}

func (s *TaskService) validateInput(ctx context.Context, in *model.TaskInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.AssignedTo = strings.TrimSpace(in.AssignedTo)

	if in.Title == "" || in.Description == "" {
		return invalid("Title and description are required")
	}
	if len([]rune(in.Title)) < minTitleLength {
		return invalid("Title must be at least 3 characters")
	}

	if in.Status == "" {
		in.Status = model.StatusPending
	}
	if !in.Status.Valid() {
		return invalid("Status must be one of: pending, in-progress, completed")
	}
	if in.Priority == "" {
		in.Priority = model.PriorityMedium
	}
	if !in.Priority.Valid() {
		return invalid("Priority must be one of: low, medium, high")
	}

	if in.AssignedTo != "" {
		return s.checkAssignee(ctx, in.AssignedTo)
	}
	return nil
}

func (s *TaskService) validatePatch(ctx context.Context, p *model.TaskPatch) error {
	if err := p.Err(); err != nil {
		return invalid(err.Error())
	}
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return invalid("Title cannot be empty")
		}
		if len([]rune(title)) < minTitleLength {
			return invalid("Title must be at least 3 characters")
		}
		p.Title = &title
	}
	if p.Description != nil {
		desc := strings.TrimSpace(*p.Description)
		if desc == "" {
			return invalid("Description cannot be empty")
		}
		p.Description = &desc
	}
	if p.Status != nil && !p.Status.Valid() {
		return invalid("Status must be one of: pending, in-progress, completed")
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return invalid("Priority must be one of: low, medium, high")
	}
	if p.AssignedTo != nil {
		return s.checkAssignee(ctx, *p.AssignedTo)
	}
	return nil
}

func (s *TaskService) checkAssignee(ctx context.Context, id string) error {
	_, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repo.ErrorNotFound) {
		return invalid("Assigned user does not exist")
	}
	return err
}

func (s *TaskService) populateOne(ctx context.Context, t model.Task) (model.TaskView, error) {
	views, err := s.populate(ctx, []model.Task{t})
	if err != nil {
		return model.TaskView{}, err
	}
	return views[0], nil
}

// populate resolves createdBy/assignedTo to user references with a single
// lookup for the whole batch.
func (s *TaskService) populate(ctx context.Context, tasks []model.Task) ([]model.TaskView, error) {
	views := make([]model.TaskView, 0, len(tasks))
	if len(tasks) == 0 {
		return views, nil
	}

	seen := make(map[string]bool)
	var ids []string
	for _, t := range tasks {
		for _, id := range []string{t.CreatedBy, t.AssignedTo} {
			if id != "" && !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	found, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	users := make(map[string]model.User, len(found))
	for _, u := range found {
		users[u.ID] = u
	}

	for _, t := range tasks {
		views = append(views, t.View(users))
	}
	return views, nil
}

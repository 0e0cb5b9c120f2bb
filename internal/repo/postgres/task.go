package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BuzzLyutic/task-tracker-api/internal/model"
	"github.com/BuzzLyutic/task-tracker-api/internal/repo"
)

const taskColumns = `id::text, title, description, status, priority, due_date,
	created_by::text, COALESCE(assigned_to::text, ''), created_at, updated_at`

type TaskRepo struct { // Репозиторий для работы непосредственно с БД
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{
		pool: pool,
	}
}

func scanTask(row pgx.Row) (model.Task, error) {
	var (
		t                model.Task
		status, priority string
	)
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &status, &priority, &t.DueDate,
		&t.CreatedBy, &t.AssignedTo, &t.CreatedAt, &t.UpdatedAt,
	)
	t.Status = model.Status(status)
	t.Priority = model.Priority(priority)
	return t, err
}

func (r *TaskRepo) Create(ctx context.Context, t model.Task) (model.Task, error) {
	createdBy, ok := parseID(t.CreatedBy)
	if !ok {
		return t, fmt.Errorf("invalid creator id %q", t.CreatedBy)
	}
	assignedTo, err := nullableID(t.AssignedTo)
	if err != nil {
		return t, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO tasks (id, title, description, status, priority, due_date, created_by, assigned_to)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+taskColumns,
		uuid.New(), t.Title, t.Description, string(t.Status), string(t.Priority), t.DueDate, createdBy, assignedTo,
	)
	created, err := scanTask(row)
	return created, mapError(err)
}

func (r *TaskRepo) Get(ctx context.Context, id string) (model.Task, error) {
	uid, ok := parseID(id)
	if !ok {
		return model.Task{}, repo.ErrorNotFound
	}

	t, err := scanTask(r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, uid))
	if errors.Is(err, pgx.ErrNoRows) {
		return t, repo.ErrorNotFound
	}
	return t, err
}

func (r *TaskRepo) List(ctx context.Context, filter model.TaskFilter, page model.Page) ([]model.Task, int, error) {
	var status, priority *string
	if filter.Status != nil {
		s := string(*filter.Status)
		status = &s
	}
	if filter.Priority != nil {
		p := string(*filter.Priority)
		priority = &p
	}

	var visibleTo *uuid.UUID
	if filter.VisibleTo != "" {
		uid, ok := parseID(filter.VisibleTo)
		if !ok {
			return []model.Task{}, 0, nil
		}
		visibleTo = &uid
	}

	const where = `
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::text IS NULL OR priority = $2)
		  AND ($3::uuid IS NULL OR created_by = $3 OR assigned_to = $3)`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks`+where, status, priority, visibleTo).Scan(&total); err != nil {
		return nil, 0, err
	}

	var limit *int
	if page.Limit > 0 {
		limit = &page.Limit
	}

	rows, err := r.pool.Query(ctx, `SELECT `+taskColumns+` FROM tasks`+where+`
		ORDER BY created_at DESC, id DESC
		LIMIT $4 OFFSET $5`,
		status, priority, visibleTo, limit, page.Offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	tasks := make([]model.Task, 0, page.Limit)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		tasks = append(tasks, t)
	}
	return tasks, total, rows.Err()
}

func (r *TaskRepo) Update(ctx context.Context, id string, patch model.TaskPatch) (model.Task, error) {
	uid, ok := parseID(id)
	if !ok {
		return model.Task{}, repo.ErrorNotFound
	}

	args := []any{uid}
	sets := []string{"updated_at = now()"}
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Title != nil {
		set("title", *patch.Title)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.Status != nil {
		set("status", string(*patch.Status))
	}
	if patch.Priority != nil {
		set("priority", string(*patch.Priority))
	}
	switch {
	case patch.ClearDueDate:
		set("due_date", (*time.Time)(nil))
	case patch.DueDate != nil:
		set("due_date", *patch.DueDate)
	}
	switch {
	case patch.ClearAssignee:
		sets = append(sets, "assigned_to = NULL")
	case patch.AssignedTo != nil:
		assignee, err := nullableID(*patch.AssignedTo)
		if err != nil {
			return model.Task{}, err
		}
		set("assigned_to", assignee)
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE tasks SET `+strings.Join(sets, ", ")+`
		WHERE id = $1
		RETURNING `+taskColumns, args...)

	t, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return t, repo.ErrorNotFound
	}
	return t, err
}

func (r *TaskRepo) Delete(ctx context.Context, id string) error {
	uid, ok := parseID(id)
	if !ok {
		return repo.ErrorNotFound
	}

	// Ключи идемпотентности удаляются вместе с задачей, иначе повтор запроса вернёт 404
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx, "DELETE FROM tasks WHERE id = $1", uid)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return repo.ErrorNotFound
		}
		_, err = tx.Exec(ctx, "DELETE FROM idempotency_keys WHERE resource_id = $1", uid)
		return err
	})
}

func (r *TaskRepo) SaveIdempotencyKey(ctx context.Context, key string, resourceID string) error {
	uid, ok := parseID(resourceID)
	if !ok {
		return fmt.Errorf("invalid resource id %q", resourceID)
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO idempotency_keys (key, resource_id) VALUES ($1, $2)
		ON CONFLICT (key) DO NOTHING
	`, key, uid)
	return err
}

func (r *TaskRepo) GetIdempotencyKey(ctx context.Context, key string) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		SELECT resource_id::text FROM idempotency_keys WHERE key = $1
	`, key).Scan(&id)

	if errors.Is(err, pgx.ErrNoRows) {
		return "", repo.ErrorNotFound
	}
	return id, err
}

func (r *TaskRepo) GetStats(ctx context.Context) (repo.Stats, error) {
	stats := repo.NewStats()

	count := func(column string, into map[string]int) error {
		rows, err := r.pool.Query(ctx, `SELECT `+column+`, COUNT(*) FROM tasks GROUP BY `+column)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				key string
				n   int
			)
			if err := rows.Scan(&key, &n); err != nil {
				return err
			}
			into[key] = n
		}
		return rows.Err()
	}

	if err := count("status", stats.ByStatus); err != nil {
		return stats, err
	}
	if err := count("priority", stats.ByPriority); err != nil {
		return stats, err
	}
	for _, n := range stats.ByStatus {
		stats.TotalTasks += n
	}
	return stats, nil
}

package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/BuzzLyutic/task-tracker-api/internal/model"
	"github.com/BuzzLyutic/task-tracker-api/internal/repo"
)

type taskDoc struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty"`
	Title       string              `bson:"title"`
	Description string              `bson:"description"`
	Status      string              `bson:"status"`
	Priority    string              `bson:"priority"`
	DueDate     *time.Time          `bson:"dueDate,omitempty"`
	CreatedBy   primitive.ObjectID  `bson:"createdBy"`
	AssignedTo  *primitive.ObjectID `bson:"assignedTo,omitempty"`
	CreatedAt   time.Time           `bson:"createdAt"`
	UpdatedAt   time.Time           `bson:"updatedAt"`
}

func (d taskDoc) model() model.Task {
	t := model.Task{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Status:      model.Status(d.Status),
		Priority:    model.Priority(d.Priority),
		DueDate:     d.DueDate,
		CreatedBy:   d.CreatedBy.Hex(),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if d.AssignedTo != nil {
		t.AssignedTo = d.AssignedTo.Hex()
	}
	return t
}

type idempotencyDoc struct {
	Key        string    `bson:"_id"`
	ResourceID string    `bson:"resourceId"`
	CreatedAt  time.Time `bson:"createdAt"`
}

type TaskRepo struct {
	tasks *mongo.Collection
	keys  *mongo.Collection
}

func NewTaskRepo(db *mongo.Database) *TaskRepo {
	return &TaskRepo{
		tasks: db.Collection(tasksCollection),
		keys:  db.Collection(idempotencyCollection),
	}
}

func (r *TaskRepo) Create(ctx context.Context, t model.Task) (model.Task, error) {
	createdBy, ok := objectID(t.CreatedBy)
	if !ok {
		return t, fmt.Errorf("invalid creator id %q", t.CreatedBy)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := taskDoc{
		ID:          primitive.NewObjectID(),
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		DueDate:     t.DueDate,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.AssignedTo != "" {
		assignee, ok := objectID(t.AssignedTo)
		if !ok {
			return t, fmt.Errorf("invalid assignee id %q", t.AssignedTo)
		}
		doc.AssignedTo = &assignee
	}

	if _, err := r.tasks.InsertOne(ctx, doc); err != nil {
		return t, err
	}
	return doc.model(), nil
}

func (r *TaskRepo) Get(ctx context.Context, id string) (model.Task, error) {
	oid, ok := objectID(id)
	if !ok {
		return model.Task{}, repo.ErrorNotFound
	}

	var doc taskDoc
	err := r.tasks.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Task{}, repo.ErrorNotFound
	}
	if err != nil {
		return model.Task{}, err
	}
	return doc.model(), nil
}

func (r *TaskRepo) List(ctx context.Context, filter model.TaskFilter, page model.Page) ([]model.Task, int, error) {
	query := bson.M{}
	if filter.Status != nil {
		query["status"] = string(*filter.Status)
	}
	if filter.Priority != nil {
		query["priority"] = string(*filter.Priority)
	}
	if filter.VisibleTo != "" {
		uid, ok := objectID(filter.VisibleTo)
		if !ok {
			return []model.Task{}, 0, nil
		}
		query["$or"] = bson.A{
			bson.M{"createdBy": uid},
			bson.M{"assignedTo": uid},
		}
	}

	total, err := r.tasks.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(page.Offset))
	if page.Limit > 0 {
		opts.SetLimit(int64(page.Limit))
	}

	cursor, err := r.tasks.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}

	var docs []taskDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, err
	}

	tasks := make([]model.Task, 0, len(docs))
	for _, d := range docs {
		tasks = append(tasks, d.model())
	}
	return tasks, int(total), nil
}

func (r *TaskRepo) Update(ctx context.Context, id string, patch model.TaskPatch) (model.Task, error) {
	oid, ok := objectID(id)
	if !ok {
		return model.Task{}, repo.ErrorNotFound
	}

	set := bson.M{"updatedAt": time.Now().UTC().Truncate(time.Millisecond)}
	unset := bson.M{}

	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Status != nil {
		set["status"] = string(*patch.Status)
	}
	if patch.Priority != nil {
		set["priority"] = string(*patch.Priority)
	}
	switch {
	case patch.ClearDueDate:
		unset["dueDate"] = ""
	case patch.DueDate != nil:
		set["dueDate"] = *patch.DueDate
	}
	switch {
	case patch.ClearAssignee:
		unset["assignedTo"] = ""
	case patch.AssignedTo != nil:
		assignee, ok := objectID(*patch.AssignedTo)
		if !ok {
			return model.Task{}, fmt.Errorf("invalid assignee id %q", *patch.AssignedTo)
		}
		set["assignedTo"] = assignee
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	var doc taskDoc
	err := r.tasks.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Task{}, repo.ErrorNotFound
	}
	if err != nil {
		return model.Task{}, err
	}
	return doc.model(), nil
}

func (r *TaskRepo) Delete(ctx context.Context, id string) error {
	oid, ok := objectID(id)
	if !ok {
		return repo.ErrorNotFound
	}

	res, err := r.tasks.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return repo.ErrorNotFound
	}

	if _, err := r.keys.DeleteMany(ctx, bson.M{"resourceId": id}); err != nil {
		return fmt.Errorf("release idempotency keys: %w", err)
	}
	return nil
}

func (r *TaskRepo) SaveIdempotencyKey(ctx context.Context, key string, resourceID string) error {
	_, err := r.keys.InsertOne(ctx, idempotencyDoc{
		Key:        key,
		ResourceID: resourceID,
		CreatedAt:  time.Now().UTC(),
	})
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

func (r *TaskRepo) GetIdempotencyKey(ctx context.Context, key string) (string, error) {
	var doc idempotencyDoc
	err := r.keys.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", repo.ErrorNotFound
	}
	if err != nil {
		return "", err
	}
	return doc.ResourceID, nil
}

func (r *TaskRepo) GetStats(ctx context.Context) (repo.Stats, error) {
	stats := repo.NewStats()

	count := func(field string, into map[string]int) error {
		cursor, err := r.tasks.Aggregate(ctx, mongo.Pipeline{
			{{Key: "$group", Value: bson.D{
				{Key: "_id", Value: "$" + field},
				{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			}}},
		})
		if err != nil {
			return err
		}

		var groups []struct {
			Key   string `bson:"_id"`
			Count int    `bson:"count"`
		}
		if err := cursor.All(ctx, &groups); err != nil {
			return err
		}
		for _, g := range groups {
			into[g.Key] = g.Count
		}
		return nil
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

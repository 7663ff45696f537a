package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/akinalp/tms/database"
	"github.com/akinalp/tms/models"
	"github.com/akinalp/tms/pkg"
)

type mongoTaskRepo struct {
	tasks *mongodriver.Collection
}

// NewMongoTaskRepo, constructor.
func NewMongoTaskRepo(db *mongodriver.Database) TaskRepository {
	return &mongoTaskRepo{tasks: db.Collection(database.TasksCollection)}
}

func (r *mongoTaskRepo) Create(ctx context.Context, task *models.Task) error {
	now := dbNow()
	task.ID = uuid.NewString()
	task.DueDate = normalizeTime(task.DueDate)
	task.CreatedAt = now
	task.UpdatedAt = now

	if _, err := r.tasks.InsertOne(ctx, task); err != nil {
		return fmt.Errorf("repository/mongo/CreateTask: %w", err)
	}
	return nil
}

func (r *mongoTaskRepo) Update(ctx context.Context, id, userID string, upd models.TaskUpdate) (*models.Task, error) {
	const op = "repository/mongo/UpdateTask"

	set := bson.D{{Key: "updatedAt", Value: dbNow()}}
	if upd.Title != nil {
		set = append(set, bson.E{Key: "title", Value: *upd.Title})
	}
	if upd.Description != nil {
		set = append(set, bson.E{Key: "description", Value: *upd.Description})
	}
	if upd.DueDate != nil {
		set = append(set, bson.E{Key: "dueDate", Value: normalizeTime(*upd.DueDate)})
	}
	if upd.Status != nil {
		set = append(set, bson.E{Key: "status", Value: *upd.Status})
	}

	var t models.Task
	err := r.tasks.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id}, {Key: "userId", Value: userID}},
		bson.D{{Key: "$set", Value: set}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&t)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: Task not found or unauthorized", pkg.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &t, nil
}

func (r *mongoTaskRepo) Delete(ctx context.Context, id, userID string) error {
	res, err := r.tasks.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}, {Key: "userId", Value: userID}})
	if err != nil {
		return fmt.Errorf("repository/mongo/DeleteTask: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: Task not found or unauthorized", pkg.ErrNotFound)
	}
	return nil
}

func (r *mongoTaskRepo) List(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	const op = "repository/mongo/ListTasks"

	q := bson.D{}
	if filter.UserID != "" {
		q = append(q, bson.E{Key: "userId", Value: filter.UserID})
	}
	if filter.Status != "" {
		q = append(q, bson.E{Key: "status", Value: filter.Status})
	}
	due := bson.D{}
	if filter.DueFrom != nil {
		due = append(due, bson.E{Key: "$gte", Value: normalizeTime(*filter.DueFrom)})
	}
	if filter.DueBefore != nil {
		due = append(due, bson.E{Key: "$lt", Value: normalizeTime(*filter.DueBefore)})
	}
	if len(due) > 0 {
		q = append(q, bson.E{Key: "dueDate", Value: due})
	}

	opts := options.Find().SetSort(bson.D{{Key: "dueDate", Value: 1}, {Key: "createdAt", Value: 1}})
	cur, err := r.tasks.Find(ctx, q, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer cur.Close(ctx)

	tasks := make([]models.Task, 0)
	if err := cur.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}
	return tasks, nil
}

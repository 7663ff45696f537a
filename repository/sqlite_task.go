package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/akinalp/tms/database"
	"github.com/akinalp/tms/models"
	"github.com/akinalp/tms/pkg"
)

type sqliteTaskRepo struct {
	db database.TxQuerier
}

// NewSQLiteTaskRepo, constructor.
func NewSQLiteTaskRepo(db database.TxQuerier) TaskRepository {
	return &sqliteTaskRepo{db: db}
}

const taskColumns = `id, title, description, due_date, status, user_id, created_at, updated_at`

func (r *sqliteTaskRepo) Create(ctx context.Context, task *models.Task) error {
	now := dbNow()
	task.ID = uuid.NewString()
	task.DueDate = normalizeTime(task.DueDate)
	task.CreatedAt = now
	task.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.Title, task.Description, task.DueDate, task.Status, task.UserID, task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

func (r *sqliteTaskRepo) Update(ctx context.Context, id, userID string, upd models.TaskUpdate) (*models.Task, error) {
	sets := []string{"updated_at = ?"}
	args := []any{dbNow()}

	if upd.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *upd.Title)
	}
	if upd.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *upd.Description)
	}
	if upd.DueDate != nil {
		sets = append(sets, "due_date = ?")
		args = append(args, normalizeTime(*upd.DueDate))
	}
	if upd.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *upd.Status)
	}
	args = append(args, id, userID)

	row := r.db.QueryRowContext(ctx,
		`UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = ? AND user_id = ? RETURNING `+taskColumns,
		args...,
	)

	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: Task not found or unauthorized", pkg.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return task, nil
}

func (r *sqliteTaskRepo) Delete(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: Task not found or unauthorized", pkg.ErrNotFound)
	}
	return nil
}

func (r *sqliteTaskRepo) List(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	var (
		where []string
		args  []any
	)
	if filter.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.DueFrom != nil {
		where = append(where, "due_date >= ?")
		args = append(args, normalizeTime(*filter.DueFrom))
	}
	if filter.DueBefore != nil {
		where = append(where, "due_date < ?")
		args = append(args, normalizeTime(*filter.DueBefore))
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY due_date ASC, created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]models.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}

	return tasks, nil
}

func scanTask(row rowScanner) (*models.Task, error) {
	t := &models.Task{}
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &t.DueDate, &t.Status, &t.UserID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return t, nil
}

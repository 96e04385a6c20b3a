package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Task is the backend's task record. The document columns hold raw JSON
// the server does not interpret.
type Task struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Status      string          `json:"status"`
	Priority    string          `json:"priority"`
	DueDate     *string         `json:"dueDate"`
	Responsible json.RawMessage `json:"responsible"`
	Tags        json.RawMessage `json:"tags"`
	Comments    json.RawMessage `json:"comments"`
	Attachments json.RawMessage `json:"attachments"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// TaskRepository persists tasks.
type TaskRepository struct {
	db *DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// List returns all tasks ordered by creation.
func (r *TaskRepository) List(ctx context.Context) ([]Task, error) {
	query := `
		SELECT id, title, description, status, priority, due_date,
		       responsible, tags, comments, attachments, created_at, updated_at
		FROM tasks
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// Get retrieves a task by ID
func (r *TaskRepository) Get(ctx context.Context, id string) (*Task, error) {
	query := `
		SELECT id, title, description, status, priority, due_date,
		       responsible, tags, comments, attachments, created_at, updated_at
		FROM tasks
		WHERE id = ?
	`

	row := r.db.QueryRowContext(ctx, query, id)
	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &task, nil
}

// Create inserts a new task
func (r *TaskRepository) Create(ctx context.Context, task *Task) error {
	query := `
		INSERT INTO tasks (id, title, description, status, priority, due_date,
		                   responsible, tags, comments, attachments, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		task.DueDate,
		string(orEmptyArray(task.Responsible)),
		string(orEmptyArray(task.Tags)),
		string(orEmptyArray(task.Comments)),
		string(orEmptyArray(task.Attachments)),
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// Update replaces a task's stored fields.
func (r *TaskRepository) Update(ctx context.Context, task *Task) error {
	query := `
		UPDATE tasks
		SET title = ?, description = ?, status = ?, priority = ?, due_date = ?,
		    responsible = ?, tags = ?, comments = ?, attachments = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		task.DueDate,
		string(orEmptyArray(task.Responsible)),
		string(orEmptyArray(task.Tags)),
		string(orEmptyArray(task.Comments)),
		string(orEmptyArray(task.Attachments)),
		task.UpdatedAt,
		task.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a task by ID
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (Task, error) {
	var task Task
	var responsible, tags, comments, attachments string
	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&task.DueDate,
		&responsible,
		&tags,
		&comments,
		&attachments,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return Task{}, err
	}
	task.Responsible = json.RawMessage(responsible)
	task.Tags = json.RawMessage(tags)
	task.Comments = json.RawMessage(comments)
	task.Attachments = json.RawMessage(attachments)
	return task, nil
}

func orEmptyArray(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return json.RawMessage("[]")
	}
	return raw
}

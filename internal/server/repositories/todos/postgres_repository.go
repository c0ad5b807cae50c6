package todos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/akarpov/taskdeck/internal/common"
	"github.com/akarpov/taskdeck/internal/dbx"
	"github.com/akarpov/taskdeck/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const todoColumns = `id, task_id, title, done, created_at, updated_at`

func scanTodo(row interface{ Scan(...any) error }) (*models.Todo, error) {
	todo := &models.Todo{}
	err := row.Scan(&todo.ID, &todo.TaskID, &todo.Title, &todo.Done, &todo.CreatedAt, &todo.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return todo, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, todo *models.Todo) error {

	query :=
		`INSERT INTO todos (id, task_id, title, done)
         VALUES ($1, $2, $3, $4)
		 RETURNING created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		todo.ID, todo.TaskID, todo.Title, todo.Done).
		Scan(&todo.CreatedAt, &todo.UpdatedAt)

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) ListByTask(ctx context.Context, taskID string) ([]*models.Todo, error) {
	query := `SELECT ` + todoColumns + ` FROM todos WHERE task_id = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Todo
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, todo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) ListByTasks(ctx context.Context, taskIDs []string) (map[string][]*models.Todo, error) {
	result := make(map[string][]*models.Todo, len(taskIDs))
	if len(taskIDs) == 0 {
		return result, nil
	}

	ph := make([]string, len(taskIDs))
	args := make([]any, len(taskIDs))
	for i, id := range taskIDs {
		ph[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT %s FROM todos WHERE task_id IN (%s) ORDER BY created_at`,
		todoColumns, strings.Join(ph, ", "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result[todo.TaskID] = append(result[todo.TaskID], todo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, taskID, todoID string) (*models.Todo, error) {
	query := `SELECT ` + todoColumns + ` FROM todos WHERE id = $1 AND task_id = $2 FOR UPDATE`

	todo, err := scanTodo(r.db.QueryRowContext(ctx, query, todoID, taskID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return todo, nil
}

func (r *PostgresRepository) GetForUpdateOwned(ctx context.Context, userID, todoID string) (*models.Todo, error) {
	query :=
		`SELECT t.id, t.task_id, t.title, t.done, t.created_at, t.updated_at
		 FROM todos t
		 JOIN tasks k ON k.id = t.task_id
		 WHERE t.id = $1 AND k.user_id = $2
		 FOR UPDATE OF t
		 `

	todo, err := scanTodo(r.db.QueryRowContext(ctx, query, todoID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return todo, nil
}

func (r *PostgresRepository) Update(ctx context.Context, todo *models.Todo) error {

	query :=
		`UPDATE todos SET title = $2, done = $3, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at
		 `

	err := r.db.QueryRowContext(ctx, query, todo.ID, todo.Title, todo.Done).
		Scan(&todo.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) DeleteNotIn(ctx context.Context, taskID string, keepIDs []string) error {

	query := `DELETE FROM todos WHERE task_id = $1`
	args := []any{taskID}

	if len(keepIDs) > 0 {
		ph := make([]string, len(keepIDs))
		for i, id := range keepIDs {
			args = append(args, id)
			ph[i] = fmt.Sprintf("$%d", len(args))
		}
		query += fmt.Sprintf(" AND id NOT IN (%s)", strings.Join(ph, ", "))
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

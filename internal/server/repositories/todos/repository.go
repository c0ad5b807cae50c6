package todos

import (
	"context"

	"github.com/akarpov/taskdeck/internal/server/models"
)

type Repository interface {
	Insert(ctx context.Context, todo *models.Todo) error
	ListByTask(ctx context.Context, taskID string) ([]*models.Todo, error)
	// ListByTasks eager-loads todos for a page of tasks in one query,
	// keyed by task id.
	ListByTasks(ctx context.Context, taskIDs []string) (map[string][]*models.Todo, error)
	// GetForUpdate locks a todo scoped to its parent task. The lock order
	// is always task first, then todo.
	GetForUpdate(ctx context.Context, taskID, todoID string) (*models.Todo, error)
	// GetForUpdateOwned locks a todo whose parent task belongs to userID.
	// Ownership runs through the task join, never a client-supplied task id.
	GetForUpdateOwned(ctx context.Context, userID, todoID string) (*models.Todo, error)
	Update(ctx context.Context, todo *models.Todo) error
	// DeleteNotIn removes every todo of the task whose id is not in keepIDs.
	// An empty keepIDs removes all todos of the task.
	DeleteNotIn(ctx context.Context, taskID string, keepIDs []string) error
}

package tasks

import (
	"context"

	"github.com/akarpov/taskdeck/internal/server/models"
)

// Filter narrows a task listing. Term is tokenized on whitespace; every
// token must match title or description. An empty Statuses slice means no
// status restriction.
type Filter struct {
	Term     string
	Statuses []models.Status
}

type Repository interface {
	Insert(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, userID, taskID string) (*models.Task, error)
	// GetForUpdate loads the task scoped by owner under a row-level write
	// lock, serializing concurrent reconciliations of the same task.
	GetForUpdate(ctx context.Context, userID, taskID string) (*models.Task, error)
	// GetForUpdateAny locks and loads a task without owner scoping.
	GetForUpdateAny(ctx context.Context, taskID string) (*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, taskID string) error
	Search(ctx context.Context, userID string, f Filter, limit, offset int) ([]*models.Task, error)
	Count(ctx context.Context, userID string, f Filter) (int, error)
}

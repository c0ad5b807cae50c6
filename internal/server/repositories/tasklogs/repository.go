package tasklogs

import (
	"context"

	"github.com/akarpov/taskdeck/internal/server/models"
)

type Repository interface {
	Append(ctx context.Context, log *models.TaskLog) error
	ListByTask(ctx context.Context, taskID string) ([]*models.TaskLog, error)
}

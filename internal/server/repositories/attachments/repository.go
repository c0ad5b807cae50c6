package attachments

import (
	"context"

	"github.com/akarpov/taskdeck/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, att *models.Attachment) error
	GetOwned(ctx context.Context, userID, attID string) (*models.Attachment, error)
	MarkCompleted(ctx context.Context, id string) error
}

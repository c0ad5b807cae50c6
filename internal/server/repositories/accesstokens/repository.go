package accesstokens

import (
	"context"

	"github.com/akarpov/taskdeck/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, token *models.AccessToken) error
	GetByID(ctx context.Context, id string) (*models.AccessToken, error)
	Delete(ctx context.Context, id string) error
	TouchLastUsed(ctx context.Context, id string) error
}

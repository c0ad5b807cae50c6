package sessions

import (
	"context"

	"github.com/akarpov/taskdeck/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
	UpdateCSRFToken(ctx context.Context, id string, token string) error
	BindUser(ctx context.Context, id string, userID string) error
}

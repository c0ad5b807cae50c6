package attachments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

func (r *PostgresRepository) Create(ctx context.Context, att *models.Attachment) error {

	query :=
		`INSERT INTO attachments (id, task_id, user_id, file_name, storage_key, upload_status)
         VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		att.ID, att.TaskID, att.UserID, att.FileName, att.StorageKey, att.UploadStatus).
		Scan(&att.CreatedAt)

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetOwned(ctx context.Context, userID, attID string) (*models.Attachment, error) {
	query :=
		`SELECT id, task_id, user_id, file_name, storage_key, upload_status, created_at FROM attachments
		 WHERE id = $1 AND user_id = $2
		 `

	att := &models.Attachment{}
	err := r.db.QueryRowContext(ctx, query, attID, userID).
		Scan(&att.ID, &att.TaskID, &att.UserID, &att.FileName, &att.StorageKey, &att.UploadStatus, &att.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return att, nil
}

func (r *PostgresRepository) MarkCompleted(ctx context.Context, id string) error {
	query := `UPDATE attachments SET upload_status = $2 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, models.UploadCompleted)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrorNotFound
	}

	return nil
}

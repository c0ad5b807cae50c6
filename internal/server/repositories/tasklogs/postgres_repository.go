package tasklogs

import (
	"context"
	"fmt"

	"github.com/akarpov/taskdeck/internal/dbx"
	"github.com/akarpov/taskdeck/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, log *models.TaskLog) error {

	query :=
		`INSERT INTO task_logs (id, task_id, log)
         VALUES ($1, $2, $3)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query, log.ID, log.TaskID, log.Log).
		Scan(&log.CreatedAt)

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) ListByTask(ctx context.Context, taskID string) ([]*models.TaskLog, error) {
	query :=
		`SELECT id, task_id, log, created_at FROM task_logs
		 WHERE task_id = $1
		 ORDER BY created_at DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.TaskLog
	for rows.Next() {
		log := &models.TaskLog{}
		if err := rows.Scan(&log.ID, &log.TaskID, &log.Log, &log.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

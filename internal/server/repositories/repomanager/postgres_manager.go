package repomanager

import (
	"context"
	"database/sql"

	"github.com/akarpov/taskdeck/internal/dbx"
	"github.com/akarpov/taskdeck/internal/server/migrations"
	"github.com/akarpov/taskdeck/internal/server/repositories/accesstokens"
	"github.com/akarpov/taskdeck/internal/server/repositories/attachments"
	"github.com/akarpov/taskdeck/internal/server/repositories/sessions"
	"github.com/akarpov/taskdeck/internal/server/repositories/tasklogs"
	"github.com/akarpov/taskdeck/internal/server/repositories/tasks"
	"github.com/akarpov/taskdeck/internal/server/repositories/todos"
	"github.com/akarpov/taskdeck/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type PostgresRepositoryManager struct {
}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Sessions(db dbx.DBTX) sessions.Repository {
	return sessions.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) AccessTokens(db dbx.DBTX) accesstokens.Repository {
	return accesstokens.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Tasks(db dbx.DBTX) tasks.Repository {
	return tasks.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Todos(db dbx.DBTX) todos.Repository {
	return todos.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) TaskLogs(db dbx.DBTX) tasklogs.Repository {
	return tasklogs.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Attachments(db dbx.DBTX) attachments.Repository {
	return attachments.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return err
	}

	return nil
}

func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}

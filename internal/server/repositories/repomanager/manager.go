// Package repomanager hands out repository instances bound to a DB handle.
// Passing a transactional dbx.DBTX yields repositories that take part in
// that transaction; passing *sql.DB yields autocommit repositories.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/akarpov/taskdeck/internal/dbx"
	"github.com/akarpov/taskdeck/internal/server/repositories/accesstokens"
	"github.com/akarpov/taskdeck/internal/server/repositories/attachments"
	"github.com/akarpov/taskdeck/internal/server/repositories/sessions"
	"github.com/akarpov/taskdeck/internal/server/repositories/tasklogs"
	"github.com/akarpov/taskdeck/internal/server/repositories/tasks"
	"github.com/akarpov/taskdeck/internal/server/repositories/todos"
	"github.com/akarpov/taskdeck/internal/server/repositories/users"
)

type RepositoryManager interface {
	Users(db dbx.DBTX) users.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	AccessTokens(db dbx.DBTX) accesstokens.Repository
	Tasks(db dbx.DBTX) tasks.Repository
	Todos(db dbx.DBTX) todos.Repository
	TaskLogs(db dbx.DBTX) tasklogs.Repository
	Attachments(db dbx.DBTX) attachments.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}

package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/akarpov/taskdeck/internal/common"
	"github.com/akarpov/taskdeck/internal/dbx"
	"github.com/akarpov/taskdeck/internal/server/models"
	accesstokensrepo "github.com/akarpov/taskdeck/internal/server/repositories/accesstokens"
	attachmentsrepo "github.com/akarpov/taskdeck/internal/server/repositories/attachments"
	sessionsrepo "github.com/akarpov/taskdeck/internal/server/repositories/sessions"
	tasklogsrepo "github.com/akarpov/taskdeck/internal/server/repositories/tasklogs"
	tasksrepo "github.com/akarpov/taskdeck/internal/server/repositories/tasks"
	todosrepo "github.com/akarpov/taskdeck/internal/server/repositories/todos"
	usersrepo "github.com/akarpov/taskdeck/internal/server/repositories/users"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

// --- stateful in-memory fakes ---

type fakeUsersRepo struct {
	users     map[string]*models.User // by id
	createErr error
	getErr    error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{users: map[string]*models.User{}}
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

type fakeSessionsRepo struct {
	sessions  map[string]*models.Session
	deleted   []string
	createErr error
}

func newFakeSessionsRepo() *fakeSessionsRepo {
	return &fakeSessionsRepo{sessions: map[string]*models.Session{}}
}

func (f *fakeSessionsRepo) Create(ctx context.Context, s *models.Session) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeSessionsRepo) Get(ctx context.Context, id string) (*models.Session, error) {
	if s, ok := f.sessions[id]; ok {
		return s, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeSessionsRepo) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	delete(f.sessions, id)
	return nil
}

func (f *fakeSessionsRepo) UpdateCSRFToken(ctx context.Context, id string, token string) error {
	s, ok := f.sessions[id]
	if !ok {
		return common.ErrorNotFound
	}
	s.CSRFToken = token
	return nil
}

func (f *fakeSessionsRepo) BindUser(ctx context.Context, id string, userID string) error {
	s, ok := f.sessions[id]
	if !ok {
		return common.ErrorNotFound
	}
	s.UserID = &userID
	return nil
}

type fakeTokensRepo struct {
	tokens    map[string]*models.AccessToken
	touched   []string
	createErr error
}

func newFakeTokensRepo() *fakeTokensRepo {
	return &fakeTokensRepo{tokens: map[string]*models.AccessToken{}}
}

func (f *fakeTokensRepo) Create(ctx context.Context, tok *models.AccessToken) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.tokens[tok.ID] = tok
	return nil
}

func (f *fakeTokensRepo) GetByID(ctx context.Context, id string) (*models.AccessToken, error) {
	if tok, ok := f.tokens[id]; ok {
		return tok, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeTokensRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.tokens[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.tokens, id)
	return nil
}

func (f *fakeTokensRepo) TouchLastUsed(ctx context.Context, id string) error {
	f.touched = append(f.touched, id)
	if tok, ok := f.tokens[id]; ok {
		now := time.Now()
		tok.LastUsedAt = &now
	}
	return nil
}

type fakeTasksRepo struct {
	tasks     map[string]*models.Task
	searchOut []*models.Task
	total     int
	updateErr error
	insertErr error
}

func newFakeTasksRepo() *fakeTasksRepo {
	return &fakeTasksRepo{tasks: map[string]*models.Task{}}
}

func (f *fakeTasksRepo) Insert(ctx context.Context, task *models.Task) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	cp := *task
	cp.Todos = nil
	f.tasks[task.ID] = &cp
	return nil
}

func (f *fakeTasksRepo) GetByID(ctx context.Context, userID, taskID string) (*models.Task, error) {
	t, ok := f.tasks[taskID]
	if !ok || t.UserID != userID {
		return nil, common.ErrorNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTasksRepo) GetForUpdate(ctx context.Context, userID, taskID string) (*models.Task, error) {
	return f.GetByID(ctx, userID, taskID)
}

func (f *fakeTasksRepo) GetForUpdateAny(ctx context.Context, taskID string) (*models.Task, error) {
	t, ok := f.tasks[taskID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTasksRepo) Update(ctx context.Context, task *models.Task) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	cp := *task
	cp.Todos = nil
	f.tasks[task.ID] = &cp
	return nil
}

func (f *fakeTasksRepo) Delete(ctx context.Context, taskID string) error {
	if _, ok := f.tasks[taskID]; !ok {
		return common.ErrorNotFound
	}
	delete(f.tasks, taskID)
	return nil
}

func (f *fakeTasksRepo) Search(ctx context.Context, userID string, filter tasksrepo.Filter, limit, offset int) ([]*models.Task, error) {
	return f.searchOut, nil
}

func (f *fakeTasksRepo) Count(ctx context.Context, userID string, filter tasksrepo.Filter) (int, error) {
	return f.total, nil
}

type fakeTodosRepo struct {
	todos     map[string]*models.Todo // by todo id
	owners    map[string]string       // task id -> user id, for GetForUpdateOwned
	insertErr error
}

func newFakeTodosRepo() *fakeTodosRepo {
	return &fakeTodosRepo{todos: map[string]*models.Todo{}, owners: map[string]string{}}
}

func (f *fakeTodosRepo) Insert(ctx context.Context, todo *models.Todo) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	cp := *todo
	f.todos[todo.ID] = &cp
	return nil
}

func (f *fakeTodosRepo) ListByTask(ctx context.Context, taskID string) ([]*models.Todo, error) {
	var out []*models.Todo
	for _, td := range f.todos {
		if td.TaskID == taskID {
			cp := *td
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeTodosRepo) ListByTasks(ctx context.Context, taskIDs []string) (map[string][]*models.Todo, error) {
	out := map[string][]*models.Todo{}
	for _, id := range taskIDs {
		todos, _ := f.ListByTask(ctx, id)
		if todos != nil {
			out[id] = todos
		}
	}
	return out, nil
}

func (f *fakeTodosRepo) GetForUpdate(ctx context.Context, taskID, todoID string) (*models.Todo, error) {
	td, ok := f.todos[todoID]
	if !ok || td.TaskID != taskID {
		return nil, common.ErrorNotFound
	}
	cp := *td
	return &cp, nil
}

func (f *fakeTodosRepo) GetForUpdateOwned(ctx context.Context, userID, todoID string) (*models.Todo, error) {
	td, ok := f.todos[todoID]
	if !ok || f.owners[td.TaskID] != userID {
		return nil, common.ErrorNotFound
	}
	cp := *td
	return &cp, nil
}

func (f *fakeTodosRepo) Update(ctx context.Context, todo *models.Todo) error {
	if _, ok := f.todos[todo.ID]; !ok {
		return common.ErrorNotFound
	}
	cp := *todo
	f.todos[todo.ID] = &cp
	return nil
}

func (f *fakeTodosRepo) DeleteNotIn(ctx context.Context, taskID string, keepIDs []string) error {
	keep := map[string]bool{}
	for _, id := range keepIDs {
		keep[id] = true
	}
	for id, td := range f.todos {
		if td.TaskID == taskID && !keep[id] {
			delete(f.todos, id)
		}
	}
	return nil
}

type fakeTaskLogsRepo struct {
	messages []string
}

func (f *fakeTaskLogsRepo) Append(ctx context.Context, log *models.TaskLog) error {
	f.messages = append(f.messages, log.Log)
	return nil
}

func (f *fakeTaskLogsRepo) ListByTask(ctx context.Context, taskID string) ([]*models.TaskLog, error) {
	var out []*models.TaskLog
	for _, m := range f.messages {
		out = append(out, &models.TaskLog{TaskID: taskID, Log: m})
	}
	return out, nil
}

type fakeAttachmentsRepo struct {
	attachments map[string]*models.Attachment
	completed   []string
	createErr   error
}

func newFakeAttachmentsRepo() *fakeAttachmentsRepo {
	return &fakeAttachmentsRepo{attachments: map[string]*models.Attachment{}}
}

func (f *fakeAttachmentsRepo) Create(ctx context.Context, att *models.Attachment) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.attachments[att.ID] = att
	return nil
}

func (f *fakeAttachmentsRepo) GetOwned(ctx context.Context, userID, attID string) (*models.Attachment, error) {
	if att, ok := f.attachments[attID]; ok {
		cp := *att
		return &cp, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeAttachmentsRepo) MarkCompleted(ctx context.Context, id string) error {
	att, ok := f.attachments[id]
	if !ok {
		return common.ErrorNotFound
	}
	att.UploadStatus = models.UploadCompleted
	f.completed = append(f.completed, id)
	return nil
}

type fakeRepoManager struct {
	users       *fakeUsersRepo
	sessions    *fakeSessionsRepo
	tokens      *fakeTokensRepo
	tasks       *fakeTasksRepo
	todos       *fakeTodosRepo
	logs        *fakeTaskLogsRepo
	attachments *fakeAttachmentsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		users:       newFakeUsersRepo(),
		sessions:    newFakeSessionsRepo(),
		tokens:      newFakeTokensRepo(),
		tasks:       newFakeTasksRepo(),
		todos:       newFakeTodosRepo(),
		logs:        &fakeTaskLogsRepo{},
		attachments: newFakeAttachmentsRepo(),
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository               { return m.users }
func (m *fakeRepoManager) Sessions(db dbx.DBTX) sessionsrepo.Repository         { return m.sessions }
func (m *fakeRepoManager) AccessTokens(db dbx.DBTX) accesstokensrepo.Repository { return m.tokens }
func (m *fakeRepoManager) Tasks(db dbx.DBTX) tasksrepo.Repository               { return m.tasks }
func (m *fakeRepoManager) Todos(db dbx.DBTX) todosrepo.Repository               { return m.todos }
func (m *fakeRepoManager) TaskLogs(db dbx.DBTX) tasklogsrepo.Repository         { return m.logs }
func (m *fakeRepoManager) Attachments(db dbx.DBTX) attachmentsrepo.Repository   { return m.attachments }

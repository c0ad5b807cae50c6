package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/akarpov/taskdeck/internal/common"
	"github.com/akarpov/taskdeck/internal/dbx"
	"github.com/akarpov/taskdeck/internal/server/models"
	"github.com/akarpov/taskdeck/internal/server/repositories/repomanager"
	"github.com/akarpov/taskdeck/internal/server/repositories/tasks"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxTitleLength  = 150
)

type TaskService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewTaskService(db *sql.DB, m repomanager.RepositoryManager) *TaskService {
	return &TaskService{db: db, repomanager: m}
}

// ListQuery carries the list endpoint's filters and pagination knobs.
type ListQuery struct {
	Term     string
	Statuses []models.Status
	Limit    int
	Page     int
}

type CreateTaskInput struct {
	Title       string
	Description string
	Deadline    *time.Time
	Todos       []models.TodoInput
}

// List returns one page of the owner's tasks, todos eagerly attached.
// Limit is clamped to (0, 100] with a default of 20; page floors at 1.
func (s *TaskService) List(ctx context.Context, userID string, q ListQuery) (*models.TasksPage, error) {

	limit := q.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	page := q.Page
	if page < 1 {
		page = 1
	}

	filter := tasks.Filter{Term: q.Term, Statuses: q.Statuses}
	tasksRepo := s.repomanager.Tasks(s.db)

	total, err := tasksRepo.Count(ctx, userID, filter)
	if err != nil {
		return nil, common.ErrorInternal
	}

	items, err := tasksRepo.Search(ctx, userID, filter, limit, (page-1)*limit)
	if err != nil {
		return nil, common.ErrorInternal
	}

	ids := make([]string, 0, len(items))
	for _, t := range items {
		ids = append(ids, t.ID)
	}
	todosByTask, err := s.repomanager.Todos(s.db).ListByTasks(ctx, ids)
	if err != nil {
		return nil, common.ErrorInternal
	}
	for _, t := range items {
		t.Todos = todosByTask[t.ID]
		if t.Todos == nil {
			t.Todos = []*models.Todo{}
		}
	}

	lastPage := (total + limit - 1) / limit
	if lastPage < 1 {
		lastPage = 1
	}

	return &models.TasksPage{
		Items:       items,
		CurrentPage: page,
		LastPage:    lastPage,
		Total:       total,
	}, nil
}

// Get returns one owned task with its todos and activity log. Tasks
// belonging to other users are indistinguishable from missing ones.
func (s *TaskService) Get(ctx context.Context, userID, taskID string) (*models.Task, error) {

	task, err := s.repomanager.Tasks(s.db).GetByID(ctx, userID, taskID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}

	if err := s.loadChildren(ctx, s.db, task); err != nil {
		return nil, common.ErrorInternal
	}

	return task, nil
}

func (s *TaskService) loadChildren(ctx context.Context, db dbx.DBTX, task *models.Task) error {
	todos, err := s.repomanager.Todos(db).ListByTask(ctx, task.ID)
	if err != nil {
		return err
	}
	task.Todos = todos

	logs, err := s.repomanager.TaskLogs(db).ListByTask(ctx, task.ID)
	if err != nil {
		return err
	}
	task.Logs = logs
	return nil
}

// Create inserts a task together with its initial todo set atomically.
func (s *TaskService) Create(ctx context.Context, userID string, in CreateTaskInput) (*models.Task, error) {

	verr := common.NewValidationError()
	validateTitle(verr, "title", in.Title)
	for i, todo := range in.Todos {
		validateTitle(verr, fmt.Sprintf("todos.%d.title", i), todo.Title)
	}
	if !verr.Empty() {
		return nil, verr
	}

	task := &models.Task{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       in.Title,
		Description: in.Description,
		Status:      models.StatusTodo,
		Deadline:    in.Deadline,
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Tasks(tx).Insert(ctx, task); err != nil {
			return err
		}
		todosRepo := s.repomanager.Todos(tx)
		for _, in := range in.Todos {
			todo := &models.Todo{
				ID:     uuid.NewString(),
				TaskID: task.ID,
				Title:  in.Title,
				Done:   in.Done,
			}
			if err := todosRepo.Insert(ctx, todo); err != nil {
				return err
			}
			task.Todos = append(task.Todos, todo)
		}
		return s.appendLog(ctx, tx, task.ID, "task created")
	})
	if err != nil {
		return nil, common.ErrorInternal
	}

	if task.Todos == nil {
		task.Todos = []*models.Todo{}
	}

	return task, nil
}

// Reconcile applies a partial update to a task and synchronizes its todo
// set in one transaction. The task row is locked first, individual todo
// rows after it; this order holds everywhere and keeps concurrent
// reconciles of one task serialized. Only patch fields whose key was
// present in the request are touched; for todos, an absent key means
// "leave them alone" while a present empty list means "delete them all".
func (s *TaskService) Reconcile(ctx context.Context, userID, taskID string, patch models.TaskPatch) (*models.Task, error) {

	verr := common.NewValidationError()
	if patch.Title.Set {
		validateTitle(verr, "title", patch.Title.Value)
	}
	if patch.Status.Set && !patch.Status.Value.Valid() {
		verr.Add("status", "must be one of todo, in_progress, done, archived")
	}
	if patch.Todos.Set {
		for i, todo := range patch.Todos.Value {
			validateTitle(verr, fmt.Sprintf("todos.%d.title", i), todo.Title)
		}
	}
	if !verr.Empty() {
		return nil, verr
	}

	var task *models.Task

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		tasksRepo := s.repomanager.Tasks(tx)

		var err error
		task, err = tasksRepo.GetForUpdate(ctx, userID, taskID)
		if err != nil {
			return err
		}

		if patch.Title.Set {
			task.Title = patch.Title.Value
		}
		if patch.Description.Set {
			task.Description = patch.Description.Value
		}
		if patch.Status.Set {
			task.Status = patch.Status.Value
		}
		if patch.Deadline.Set {
			task.Deadline = patch.Deadline.Value
		}
		if err := tasksRepo.Update(ctx, task); err != nil {
			return err
		}

		if patch.Todos.Set {
			if err := s.reconcileTodos(ctx, tx, task.ID, patch.Todos.Value); err != nil {
				return err
			}
		}

		if err := s.appendLog(ctx, tx, task.ID, "task updated"); err != nil {
			return err
		}

		// reload inside the transaction so the response reflects the
		// post-reconcile state exactly
		task.Todos, err = s.repomanager.Todos(tx).ListByTask(ctx, task.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}

	if task.Todos == nil {
		task.Todos = []*models.Todo{}
	}

	return task, nil
}

// reconcileTodos diffs the incoming todo set against storage. Todos absent
// from the incoming set are deleted, known ids are updated in place, and
// entries without an id — or carrying an id that no longer exists — become
// fresh rows. Replaying the same set is therefore a no-op for survivors.
func (s *TaskService) reconcileTodos(ctx context.Context, tx dbx.DBTX, taskID string, incoming []models.TodoInput) error {

	todosRepo := s.repomanager.Todos(tx)

	keep := make([]string, 0, len(incoming))
	for _, in := range incoming {
		if in.ID != "" {
			keep = append(keep, in.ID)
		}
	}
	if err := todosRepo.DeleteNotIn(ctx, taskID, keep); err != nil {
		return err
	}

	for _, in := range incoming {
		if in.ID != "" {
			existing, err := todosRepo.GetForUpdate(ctx, taskID, in.ID)
			if err == nil {
				existing.Title = in.Title
				existing.Done = in.Done
				if err := todosRepo.Update(ctx, existing); err != nil {
					return err
				}
				continue
			}
			if !errors.Is(err, common.ErrorNotFound) {
				return err
			}
			// a stale id from the client: fall through and create anew
		}
		todo := &models.Todo{
			ID:     uuid.NewString(),
			TaskID: taskID,
			Title:  in.Title,
			Done:   in.Done,
		}
		if err := todosRepo.Insert(ctx, todo); err != nil {
			return err
		}
	}

	return nil
}

// Delete removes an owned task and its children. The children are removed
// explicitly before the parent so the operation does not lean on storage
// cascades for its primary rows.
func (s *TaskService) Delete(ctx context.Context, userID, taskID string) error {

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		tasksRepo := s.repomanager.Tasks(tx)

		if _, err := tasksRepo.GetForUpdate(ctx, userID, taskID); err != nil {
			return err
		}
		if err := s.repomanager.Todos(tx).DeleteNotIn(ctx, taskID, nil); err != nil {
			return err
		}
		return tasksRepo.Delete(ctx, taskID)
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return common.ErrorInternal
	}

	return nil
}

// SetStatus moves a task to the given status under the task row lock.
// The lookup is by task id alone, without an ownership filter; any
// authenticated caller who knows a task id can move it; clients are
// expected to only hold ids of their own tasks.
func (s *TaskService) SetStatus(ctx context.Context, taskID string, status models.Status) (*models.Task, error) {

	if !status.Valid() {
		return nil, common.NewValidationError().Add("status", "must be one of todo, in_progress, done, archived")
	}

	var task *models.Task

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		tasksRepo := s.repomanager.Tasks(tx)

		var err error
		task, err = tasksRepo.GetForUpdateAny(ctx, taskID)
		if err != nil {
			return err
		}
		task.Status = status
		if err := tasksRepo.Update(ctx, task); err != nil {
			return err
		}
		return s.appendLog(ctx, tx, task.ID, fmt.Sprintf("status changed to %s", status))
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}

	return task, nil
}

// SetTodoDone flips the completion flag of a single todo, addressed by
// todo id and scoped to the caller through the parent task.
func (s *TaskService) SetTodoDone(ctx context.Context, userID, todoID string, done bool) (*models.Todo, error) {

	var todo *models.Todo

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		todosRepo := s.repomanager.Todos(tx)

		var err error
		todo, err = todosRepo.GetForUpdateOwned(ctx, userID, todoID)
		if err != nil {
			return err
		}
		todo.Done = done
		return todosRepo.Update(ctx, todo)
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}

	return todo, nil
}

func (s *TaskService) appendLog(ctx context.Context, tx dbx.DBTX, taskID, message string) error {
	return s.repomanager.TaskLogs(tx).Append(ctx, &models.TaskLog{
		ID:     uuid.NewString(),
		TaskID: taskID,
		Log:    message,
	})
}

func validateTitle(verr *common.ValidationError, field, title string) {
	if title == "" {
		verr.Add(field, "is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		verr.Add(field, "must not exceed 150 characters")
	}
}

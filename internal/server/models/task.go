package models

import "time"

// Status is the task lifecycle state.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusArchived   Status = "archived"
)

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone, StatusArchived:
		return true
	}
	return false
}

// Task is owned by exactly one user; ownership is immutable after creation.
type Task struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	Deadline    *time.Time `json:"deadline"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Todos []*Todo    `json:"todos"`
	Logs  []*TaskLog `json:"logs,omitempty"`
}

// TaskPatch is the desired-state payload for a task update. Each field is
// wrapped in Optional so that an absent key, an explicit null, and a zero
// value stay distinguishable. Todos.Set is the discriminator between
// "do not touch todos" (key absent) and "reconcile against this list"
// (key present, possibly empty).
type TaskPatch struct {
	Title       Optional[string]      `json:"title"`
	Description Optional[string]      `json:"description"`
	Status      Optional[Status]      `json:"status"`
	Deadline    Optional[*time.Time]  `json:"deadline"`
	Todos       Optional[[]TodoInput] `json:"todos"`
}

// TasksPage is one page of a task listing.
type TasksPage struct {
	Items       []*Task `json:"data"`
	CurrentPage int     `json:"current_page"`
	LastPage    int     `json:"last_page"`
	Total       int     `json:"total"`
}

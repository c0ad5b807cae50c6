package models

import "time"

// Todo is owned by exactly one task. Ownership is enforced transitively
// through the parent task, never by trusting a client-supplied task id.
type Todo struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	Title     string    `json:"title"`
	Done      bool      `json:"done"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TodoInput is one desired todo inside a task update. An empty ID, or an ID
// that does not resolve under the task, means "create".
type TodoInput struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Done  bool   `json:"done"`
}

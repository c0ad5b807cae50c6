package models

import "time"

// TaskLog is an append-only activity record written in the same transaction
// as the task mutation it describes.
type TaskLog struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	Log       string    `json:"log"`
	CreatedAt time.Time `json:"created_at"`
}

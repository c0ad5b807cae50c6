package models

import "time"

// Attachment describes server-side metadata for a file linked to a task.
// The payload itself lives in object storage under StorageKey; clients
// upload and download through presigned URLs.
type Attachment struct {
	ID           string    `json:"id"`
	TaskID       string    `json:"task_id"`
	UserID       string    `json:"user_id"`
	FileName     string    `json:"file_name"`
	StorageKey   string    `json:"-"`
	UploadStatus string    `json:"upload_status"`
	CreatedAt    time.Time `json:"created_at"`
}

// Attachment upload states.
const (
	UploadPending   = "pending"
	UploadCompleted = "completed"
)

package models

import "time"

// Sync task lifecycle statuses.
const (
	SyncPending   = "pending"
	SyncRetry     = "retry"
	SyncCompleted = "completed"
	SyncFailed    = "failed"
)

// SyncTask is one queued unit of spreadsheet or export work. The row in
// SQLite is the durable record; Redis and the in-memory channel only carry
// wake-ups.
type SyncTask struct {
	ID          int64      `json:"id"`
	TaskType    string     `json:"task_type"`
	BookingID   string     `json:"booking_id,omitempty"`
	Payload     string     `json:"payload"`
	Status      string     `json:"status"`
	RetryCount  int        `json:"retry_count"`
	LastError   string     `json:"last_error,omitempty"`
	NextRetryAt *time.Time `json:"next_retry_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

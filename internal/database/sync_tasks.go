package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"rentacar/internal/models"
)

// CreateSyncTask persists a queued task. The row outlives process restarts
// and Redis outages; queues only speed up pickup.
func (db *DB) CreateSyncTask(ctx context.Context, task *models.SyncTask) error {
	if task.TaskType == "" {
		return fmt.Errorf("task type is required")
	}
	if task.Status == "" {
		task.Status = models.SyncPending
	}
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	res, err := db.db.ExecContext(ctx, `
        INSERT INTO sync_tasks (task_type, booking_id, payload, status, retry_count, last_error, next_retry_at, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.TaskType, task.BookingID, task.Payload, task.Status,
		task.RetryCount, task.LastError, task.NextRetryAt, task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create sync task: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read sync task id: %w", err)
	}
	task.ID = id
	return nil
}

// GetPendingSyncTasks returns tasks ready to run: pending ones plus retries
// whose backoff has elapsed, oldest first.
func (db *DB) GetPendingSyncTasks(ctx context.Context, limit int) ([]models.SyncTask, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.db.QueryContext(ctx, `
        SELECT id, task_type, booking_id, payload, status, retry_count, last_error, next_retry_at, created_at, updated_at
        FROM sync_tasks
        WHERE status = ? OR (status = ? AND (next_retry_at IS NULL OR next_retry_at <= ?))
        ORDER BY id
        LIMIT ?`,
		models.SyncPending, models.SyncRetry, time.Now().UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.SyncTask
	for rows.Next() {
		var task models.SyncTask
		var bookingID, lastError sql.NullString
		var nextRetryAt sql.NullTime
		if err := rows.Scan(&task.ID, &task.TaskType, &bookingID, &task.Payload, &task.Status,
			&task.RetryCount, &lastError, &nextRetryAt, &task.CreatedAt, &task.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sync task: %w", err)
		}
		task.BookingID = bookingID.String
		task.LastError = lastError.String
		if nextRetryAt.Valid {
			t := nextRetryAt.Time
			task.NextRetryAt = &t
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// UpdateSyncTaskStatus moves a task through its lifecycle. A retry bumps the
// retry counter and records when the task becomes runnable again.
func (db *DB) UpdateSyncTaskStatus(ctx context.Context, id int64, status, lastError string, nextRetryAt *time.Time) error {
	var res sql.Result
	var err error
	if status == models.SyncRetry {
		res, err = db.db.ExecContext(ctx, `
            UPDATE sync_tasks
            SET status = ?, last_error = ?, next_retry_at = ?, retry_count = retry_count + 1, updated_at = ?
            WHERE id = ?`,
			status, lastError, nextRetryAt, time.Now().UTC(), id)
	} else {
		res, err = db.db.ExecContext(ctx, `
            UPDATE sync_tasks
            SET status = ?, last_error = ?, next_retry_at = ?, updated_at = ?
            WHERE id = ?`,
			status, lastError, nextRetryAt, time.Now().UTC(), id)
	}
	if err != nil {
		return fmt.Errorf("failed to update sync task: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check sync task update: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

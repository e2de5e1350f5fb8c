package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rentacar/internal/database"
	"rentacar/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	TaskAppendBooking = "append_booking"
	TaskUpdateStatus  = "update_status"
	TaskExport        = "export"
	TaskResyncSheet   = "resync_sheet"
)

// SheetsWriter mirrors bookings into the manager spreadsheet.
type SheetsWriter interface {
	AppendBooking(ctx context.Context, booking *models.Booking) error
	UpdateBookingStatus(ctx context.Context, bookingID string, status string) error
	ReplaceBookingsSheet(ctx context.Context, bookings []*models.Booking) error
}

// Exporter produces booking report files.
type Exporter interface {
	ExportBookings(ctx context.Context, start, end models.Date) (string, error)
}

// syncPayload is persisted in SyncTask.Payload as JSON.
type syncPayload struct {
	Booking   *models.Booking `json:"booking,omitempty"`
	BookingID string          `json:"booking_id,omitempty"`
	Status    string          `json:"status,omitempty"`
	StartDate models.Date     `json:"start_date,omitempty"`
	EndDate   models.Date     `json:"end_date,omitempty"`
}

// SyncWorker consumes sync tasks and applies them to Google Sheets and the
// export writer. Tasks are durable in SQLite; Redis and the local channel
// are fast paths, with DB polling as the catch-all.
type SyncWorker struct {
	db            *database.DB
	sheets        SheetsWriter
	exporter      Exporter
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan models.SyncTask
	redisQueueKey string
	deadLetterKey string
	pollInterval  time.Duration
	batchSize     int
	logger        *zerolog.Logger
}

// NewSyncWorker builds a worker with sane defaults.
func NewSyncWorker(db *database.DB, sheets SheetsWriter, exporter Exporter, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *SyncWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = 1 * time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}

	return &SyncWorker{
		db:            db,
		sheets:        sheets,
		exporter:      exporter,
		redis:         redisClient,
		retryPolicy:   retry,
		queue:         make(chan models.SyncTask, models.WorkerQueueSize),
		redisQueueKey: "sync:queue",
		deadLetterKey: "sync:deadletter",
		pollInterval:  2 * time.Second,
		batchSize:     20,
		logger:        logger,
	}
}

// EnqueueAppend queues a freshly reserved booking for the spreadsheet.
func (w *SyncWorker) EnqueueAppend(ctx context.Context, booking *models.Booking) error {
	if booking == nil || booking.ID == "" {
		return errors.New("booking id is required")
	}
	return w.enqueue(ctx, TaskAppendBooking, booking.ID, syncPayload{Booking: booking, BookingID: booking.ID})
}

// EnqueueStatusUpdate queues a status change for an already mirrored booking.
func (w *SyncWorker) EnqueueStatusUpdate(ctx context.Context, bookingID string, status string) error {
	if bookingID == "" || status == "" {
		return errors.New("booking id and status are required")
	}
	return w.enqueue(ctx, TaskUpdateStatus, bookingID, syncPayload{BookingID: bookingID, Status: status})
}

// EnqueueExport queues an xlsx report over the date range.
func (w *SyncWorker) EnqueueExport(ctx context.Context, start, end models.Date) error {
	if end.Before(start) {
		return errors.New("export range is inverted")
	}
	return w.enqueue(ctx, TaskExport, "", syncPayload{StartDate: start, EndDate: end})
}

// EnqueueResync queues a full rebuild of the bookings sheet from the
// database. Used after manual sheet edits or missed updates.
func (w *SyncWorker) EnqueueResync(ctx context.Context) error {
	return w.enqueue(ctx, TaskResyncSheet, "", syncPayload{})
}

func (w *SyncWorker) enqueue(ctx context.Context, taskType, bookingID string, payload syncPayload) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	task := models.SyncTask{
		TaskType:  taskType,
		BookingID: bookingID,
		Payload:   string(payloadBytes),
		Status:    models.SyncPending,
	}

	if err := w.db.CreateSyncTask(ctx, &task); err != nil {
		return fmt.Errorf("persist sync task: %w", err)
	}

	// Try redis first for durability.
	if w.redis != nil {
		if err := w.pushRedis(ctx, task); err != nil {
			w.logger.Warn().Err(err).Msg("redis push failed, fallback to memory queue")
		} else {
			return nil
		}
	}

	// Fallback to in-memory queue if redis missing or failed.
	select {
	case w.queue <- task:
	default:
		w.logger.Warn().Int64("task_id", task.ID).Msg("in-memory queue full, task left to polling")
	}
	return nil
}

// Start launches the main loop; stops when ctx is done.
func (w *SyncWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("sync worker started")
	defer w.logger.Info().Msg("sync worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if t, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, &t)
			continue
		}

		if t, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, &t)
			continue
		}

		tasks, err := w.db.GetPendingSyncTasks(ctx, w.batchSize)
		if err != nil {
			w.logger.Error().Err(err).Msg("fetch pending sync tasks")
			time.Sleep(w.pollInterval)
			continue
		}
		if len(tasks) == 0 {
			time.Sleep(w.pollInterval)
			continue
		}

		for i := range tasks {
			w.processTask(ctx, &tasks[i])
		}
	}
}

func (w *SyncWorker) tryLocalQueue() (models.SyncTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return models.SyncTask{}, false
	}
}

func (w *SyncWorker) tryRedis(ctx context.Context) (models.SyncTask, bool) {
	if w.redis == nil {
		return models.SyncTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.redisQueueKey).Result()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, redis.Nil) {
			return models.SyncTask{}, false
		}
		w.logger.Error().Err(err).Msg("redis BRPOP error")
		return models.SyncTask{}, false
	}
	if len(res) != 2 {
		return models.SyncTask{}, false
	}
	var task models.SyncTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("decode redis task")
		return models.SyncTask{}, false
	}
	return task, true
}

func (w *SyncWorker) processTask(ctx context.Context, task *models.SyncTask) {
	var payload syncPayload
	if err := json.Unmarshal([]byte(task.Payload), &payload); err != nil {
		w.failTask(ctx, task, fmt.Errorf("decode payload: %w", err))
		return
	}

	if err := w.handleTask(ctx, task.TaskType, payload); err != nil {
		w.retryOrFail(ctx, task, err)
		return
	}

	if err := w.db.UpdateSyncTaskStatus(ctx, task.ID, models.SyncCompleted, "", nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark sync task completed")
	}
}

func (w *SyncWorker) handleTask(ctx context.Context, taskType string, payload syncPayload) error {
	switch taskType {
	case TaskAppendBooking:
		if payload.Booking == nil {
			return errors.New("booking payload missing")
		}
		if w.sheets == nil {
			return nil
		}
		return w.sheets.AppendBooking(ctx, payload.Booking)
	case TaskUpdateStatus:
		if payload.BookingID == "" || payload.Status == "" {
			return errors.New("booking id or status missing")
		}
		if w.sheets == nil {
			return nil
		}
		return w.sheets.UpdateBookingStatus(ctx, payload.BookingID, payload.Status)
	case TaskExport:
		if w.exporter == nil {
			return nil
		}
		path, err := w.exporter.ExportBookings(ctx, payload.StartDate, payload.EndDate)
		if err != nil {
			return err
		}
		w.logger.Info().Str("path", path).Msg("bookings export written")
		return nil
	case TaskResyncSheet:
		if w.sheets == nil {
			return nil
		}
		bookings, err := w.db.GetAllBookings(ctx)
		if err != nil {
			return err
		}
		return w.sheets.ReplaceBookingsSheet(ctx, bookings)
	default:
		return fmt.Errorf("unknown task type: %s", taskType)
	}
}

func (w *SyncWorker) retryOrFail(ctx context.Context, task *models.SyncTask, cause error) {
	attempt := task.RetryCount + 1
	if attempt >= w.retryPolicy.MaxRetries {
		if err := w.db.UpdateSyncTaskStatus(ctx, task.ID, models.SyncFailed, cause.Error(), nil); err != nil {
			w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark sync task failed")
		}
		w.pushDeadLetter(ctx, task)
		return
	}

	nextDelay := w.retryPolicy.NextDelay(attempt)
	nextTime := time.Now().UTC().Add(nextDelay)
	if err := w.db.UpdateSyncTaskStatus(ctx, task.ID, models.SyncRetry, cause.Error(), &nextTime); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark sync task for retry")
	}
}

func (w *SyncWorker) failTask(ctx context.Context, task *models.SyncTask, cause error) {
	if err := w.db.UpdateSyncTaskStatus(ctx, task.ID, models.SyncFailed, cause.Error(), nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark sync task failed")
	}
	w.pushDeadLetter(ctx, task)
}

func (w *SyncWorker) pushRedis(ctx context.Context, task models.SyncTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, w.redisQueueKey, data).Err()
}

func (w *SyncWorker) pushDeadLetter(ctx context.Context, task *models.SyncTask) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(task)
	if err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("encode dead letter")
		return
	}
	if err := w.redis.LPush(ctx, w.deadLetterKey, data).Err(); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("dead letter push")
	}
}

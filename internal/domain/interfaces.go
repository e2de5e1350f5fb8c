package domain

import (
	"context"

	"rentacar/internal/models"
)

// CatalogRepository is the shared read-mostly car and delegation catalog.
// Implementations must hand out validated records only; malformed rows are
// dropped at this boundary.
type CatalogRepository interface {
	GetAllCars(ctx context.Context) ([]models.Car, error)
	GetCarsByDelegation(ctx context.Context, delegationID string) ([]models.Car, error)
	GetCar(ctx context.Context, delegationID, operation string) (*models.Car, error)
	SaveCar(ctx context.Context, car *models.Car) error
	SetCalendarStatus(ctx context.Context, delegationID, operation string, date models.Date, status string) error
	ClearCalendarStatus(ctx context.Context, delegationID, operation string, date models.Date) error
	GetAllDelegations(ctx context.Context) ([]models.Delegation, error)
	GetDelegation(ctx context.Context, delegationID string) (*models.Delegation, error)
	SaveDelegation(ctx context.Context, delegation *models.Delegation) error
}

// BookingRepository persists finalized bookings.
type BookingRepository interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	GetUserBookings(ctx context.Context, userID string) ([]*models.Booking, error)
	GetBookingsByDateRange(ctx context.Context, start, end models.Date) ([]*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id string, status models.BookingStatus) error
	UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) error
}

// DraftRepository carries the in-progress booking across flow steps. It is
// a session-scoped key-value store: string keys, JSON values, TTL-bound.
// Load methods return nil without error when nothing is stored.
type DraftRepository interface {
	SaveQuery(ctx context.Context, sessionID string, query *models.BookingQuery) error
	LoadQuery(ctx context.Context, sessionID string) (*models.BookingQuery, error)
	SaveDraft(ctx context.Context, sessionID string, draft *models.BookingDraft) error
	LoadDraft(ctx context.Context, sessionID string) (*models.BookingDraft, error)
	Clear(ctx context.Context, sessionID string) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// SheetsWriter mirrors bookings into a manager-facing spreadsheet.
type SheetsWriter interface {
	AppendBooking(ctx context.Context, booking *models.Booking) error
	UpdateBookingStatus(ctx context.Context, bookingID string, status string) error
	ReplaceBookingsSheet(ctx context.Context, bookings []*models.Booking) error
}

// SyncWorker queues asynchronous booking sync and export jobs.
type SyncWorker interface {
	EnqueueAppend(ctx context.Context, booking *models.Booking) error
	EnqueueStatusUpdate(ctx context.Context, bookingID string, status string) error
	EnqueueExport(ctx context.Context, start, end models.Date) error
	EnqueueResync(ctx context.Context) error
}

// Notifier pushes new-booking notifications to managers. Implementations
// are best-effort; a failed notification never fails the booking.
type Notifier interface {
	NotifyBookingReserved(ctx context.Context, booking *models.Booking) error
	NotifyBookingCancelled(ctx context.Context, booking *models.Booking) error
}

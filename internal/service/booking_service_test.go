package service

import (
	"context"
	"testing"
	"time"

	"rentacar/internal/database"
	"rentacar/internal/events"
	"rentacar/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func reservedBooking() *models.Booking {
	return &models.Booking{
		ID:             "booking-1",
		UserID:         "user-1",
		Car:            *testCar("DELEG#001"),
		StartDate:      models.NewDate(2024, time.June, 1),
		EndDate:        models.NewDate(2024, time.June, 3),
		PickupLocation: "DELEG#001",
		ReturnLocation: "DELEG#002",
		TotalPrice:     135,
		Status:         models.BookingReserved,
		PaymentStatus:  models.PaymentPending,
	}
}

func newBookingService() (*BookingService, *mockBookings, *mockCatalog, *mockSyncWorker, *mockNotifier, *events.EventBus) {
	bookings := &mockBookings{}
	catalog := &mockCatalog{}
	worker := &mockSyncWorker{}
	notifier := &mockNotifier{}
	bus := events.NewEventBus()
	svc := NewBookingService(bookings, catalog, bus, worker, notifier, testLogger())
	return svc, bookings, catalog, worker, notifier, bus
}

func TestUpdateBookingStatusConfirm(t *testing.T) {
	svc, bookings, catalog, worker, _, bus := newBookingService()
	ctx := context.Background()

	confirmed := reservedBooking()
	confirmed.Status = models.BookingConfirmed

	bookings.On("UpdateBookingStatus", mock.Anything, "booking-1", models.BookingConfirmed).Return(nil)
	bookings.On("GetBooking", mock.Anything, "booking-1").Return(confirmed, nil)
	worker.On("EnqueueStatusUpdate", mock.Anything, "booking-1", string(models.BookingConfirmed)).Return(nil)

	var confirmedEvents int
	bus.Subscribe(events.EventBookingConfirmed, func(_ *events.Event) error {
		confirmedEvents++
		return nil
	})

	require.NoError(t, svc.UpdateBookingStatus(ctx, "booking-1", models.BookingConfirmed))

	assert.Equal(t, 1, confirmedEvents)
	worker.AssertCalled(t, "EnqueueStatusUpdate", mock.Anything, "booking-1", string(models.BookingConfirmed))
	catalog.AssertNotCalled(t, "ClearCalendarStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateBookingStatusCancelFreesCalendar(t *testing.T) {
	svc, bookings, catalog, worker, notifier, _ := newBookingService()
	ctx := context.Background()

	cancelled := reservedBooking()
	cancelled.Status = models.BookingCancelled

	bookings.On("UpdateBookingStatus", mock.Anything, "booking-1", models.BookingCancelled).Return(nil)
	bookings.On("GetBooking", mock.Anything, "booking-1").Return(cancelled, nil)
	catalog.On("ClearCalendarStatus", mock.Anything, "DELEG#001", "car#1", mock.Anything).Return(nil)
	worker.On("EnqueueStatusUpdate", mock.Anything, "booking-1", string(models.BookingCancelled)).Return(nil)
	notifier.On("NotifyBookingCancelled", mock.Anything, cancelled).Return(nil)

	require.NoError(t, svc.UpdateBookingStatus(ctx, "booking-1", models.BookingCancelled))

	catalog.AssertNumberOfCalls(t, "ClearCalendarStatus", 3)
	notifier.AssertCalled(t, "NotifyBookingCancelled", mock.Anything, cancelled)
}

func TestUpdateBookingStatusIllegalTransition(t *testing.T) {
	svc, bookings, _, worker, _, _ := newBookingService()

	bookings.On("UpdateBookingStatus", mock.Anything, "booking-1", models.BookingCompleted).
		Return(database.ErrInvalidTransition)

	err := svc.UpdateBookingStatus(context.Background(), "booking-1", models.BookingCompleted)
	assert.ErrorIs(t, err, database.ErrInvalidTransition)
	worker.AssertNotCalled(t, "EnqueueStatusUpdate", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdatePaymentStatus(t *testing.T) {
	svc, bookings, _, _, _, bus := newBookingService()
	ctx := context.Background()

	paid := reservedBooking()
	paid.PaymentStatus = models.PaymentPaid

	bookings.On("UpdatePaymentStatus", mock.Anything, "booking-1", models.PaymentPaid).Return(nil)
	bookings.On("GetBooking", mock.Anything, "booking-1").Return(paid, nil)

	var paymentEvents int
	bus.Subscribe(events.EventPaymentUpdated, func(_ *events.Event) error {
		paymentEvents++
		return nil
	})

	require.NoError(t, svc.UpdatePaymentStatus(ctx, "booking-1", models.PaymentPaid))
	assert.Equal(t, 1, paymentEvents)
}

func TestRequestExport(t *testing.T) {
	svc, _, _, worker, _, _ := newBookingService()

	start := models.NewDate(2024, time.June, 1)
	end := models.NewDate(2024, time.June, 30)
	worker.On("EnqueueExport", mock.Anything, start, end).Return(nil)

	require.NoError(t, svc.RequestExport(context.Background(), start, end))
	worker.AssertCalled(t, "EnqueueExport", mock.Anything, start, end)
}

func TestRequestSheetResync(t *testing.T) {
	svc, _, _, worker, _, _ := newBookingService()

	worker.On("EnqueueResync", mock.Anything).Return(nil)

	require.NoError(t, svc.RequestSheetResync(context.Background()))
	worker.AssertCalled(t, "EnqueueResync", mock.Anything)
}

func TestGetUserBookings(t *testing.T) {
	svc, bookings, _, _, _, _ := newBookingService()

	expected := []*models.Booking{reservedBooking()}
	bookings.On("GetUserBookings", mock.Anything, "user-1").Return(expected, nil)

	got, err := svc.GetUserBookings(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, expected, got)
}

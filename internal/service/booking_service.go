package service

import (
	"context"
	"errors"

	"rentacar/internal/domain"
	"rentacar/internal/events"
	"rentacar/internal/models"

	"github.com/rs/zerolog"
)

// BookingService is the management side of bookings: lookups and status
// transitions after the booking exists. Transition legality is enforced by
// the booking repository.
type BookingService struct {
	bookings   domain.BookingRepository
	catalog    domain.CatalogRepository
	eventBus   domain.EventPublisher
	syncWorker domain.SyncWorker
	notifier   domain.Notifier
	logger     *zerolog.Logger
}

func NewBookingService(
	bookings domain.BookingRepository,
	catalog domain.CatalogRepository,
	eventBus domain.EventPublisher,
	syncWorker domain.SyncWorker,
	notifier domain.Notifier,
	logger *zerolog.Logger,
) *BookingService {
	return &BookingService{
		bookings:   bookings,
		catalog:    catalog,
		eventBus:   eventBus,
		syncWorker: syncWorker,
		notifier:   notifier,
		logger:     logger,
	}
}

func (s *BookingService) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	return s.bookings.GetBooking(ctx, id)
}

func (s *BookingService) GetUserBookings(ctx context.Context, userID string) ([]*models.Booking, error) {
	return s.bookings.GetUserBookings(ctx, userID)
}

func (s *BookingService) GetBookingsByDateRange(ctx context.Context, start, end models.Date) ([]*models.Booking, error) {
	return s.bookings.GetBookingsByDateRange(ctx, start, end)
}

// UpdateBookingStatus applies a status transition. A cancellation frees the
// booked calendar days again.
func (s *BookingService) UpdateBookingStatus(ctx context.Context, id string, status models.BookingStatus) error {
	if err := s.bookings.UpdateBookingStatus(ctx, id, status); err != nil {
		return err
	}

	booking, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("booking_id", id).Msg("failed to reload booking after status update")
		return nil
	}

	if status == models.BookingCancelled {
		s.freeCalendar(ctx, booking)
		s.notifyCancelled(ctx, booking)
	}

	s.publishStatusEvent(booking)
	s.enqueueStatusUpdate(ctx, booking)
	return nil
}

// UpdatePaymentStatus applies a payment transition and publishes the change.
func (s *BookingService) UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) error {
	if err := s.bookings.UpdatePaymentStatus(ctx, id, status); err != nil {
		return err
	}

	booking, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("booking_id", id).Msg("failed to reload booking after payment update")
		return nil
	}

	s.publishEvent(events.EventPaymentUpdated, booking)
	return nil
}

// RequestExport queues an xlsx report over the date range. The file is
// written by the sync worker; the call only schedules it.
func (s *BookingService) RequestExport(ctx context.Context, start, end models.Date) error {
	if s.syncWorker == nil {
		return errors.New("sync worker is not configured")
	}
	return s.syncWorker.EnqueueExport(ctx, start, end)
}

// RequestSheetResync queues a full rebuild of the manager spreadsheet.
func (s *BookingService) RequestSheetResync(ctx context.Context) error {
	if s.syncWorker == nil {
		return errors.New("sync worker is not configured")
	}
	return s.syncWorker.EnqueueResync(ctx)
}

func (s *BookingService) freeCalendar(ctx context.Context, booking *models.Booking) {
	for _, day := range models.DatesBetween(booking.StartDate, booking.EndDate) {
		err := s.catalog.ClearCalendarStatus(ctx, booking.Car.DelegationID, booking.Car.Operation, day)
		if err != nil {
			s.logger.Error().Err(err).
				Str("booking_id", booking.ID).
				Str("date", day.String()).
				Msg("failed to free calendar day")
		}
	}
}

func (s *BookingService) publishStatusEvent(booking *models.Booking) {
	switch booking.Status {
	case models.BookingConfirmed:
		s.publishEvent(events.EventBookingConfirmed, booking)
	case models.BookingCancelled:
		s.publishEvent(events.EventBookingCancelled, booking)
	case models.BookingCompleted:
		s.publishEvent(events.EventBookingCompleted, booking)
	}
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:      booking.ID,
		UserID:         booking.UserID,
		CarID:          booking.Car.CarID,
		CarName:        booking.Car.Make + " " + booking.Car.Model,
		DelegationID:   booking.Car.DelegationID,
		StartDate:      booking.StartDate.String(),
		EndDate:        booking.EndDate.String(),
		PickupLocation: booking.PickupLocation,
		ReturnLocation: booking.ReturnLocation,
		TotalPrice:     booking.TotalPrice,
		Status:         string(booking.Status),
		PaymentStatus:  string(booking.PaymentStatus),
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("booking_id", booking.ID).Msg("publish event error")
	}
}

func (s *BookingService) enqueueStatusUpdate(ctx context.Context, booking *models.Booking) {
	if s.syncWorker == nil {
		return
	}
	if err := s.syncWorker.EnqueueStatusUpdate(ctx, booking.ID, string(booking.Status)); err != nil {
		s.logger.Error().Err(err).Str("booking_id", booking.ID).Msg("sheets enqueue error")
	}
}

func (s *BookingService) notifyCancelled(ctx context.Context, booking *models.Booking) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyBookingCancelled(ctx, booking); err != nil {
		s.logger.Error().Err(err).Str("booking_id", booking.ID).Msg("manager notification error")
	}
}

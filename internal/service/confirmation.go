package service

import (
	"context"
	"fmt"

	"rentacar/internal/domain"
	"rentacar/internal/events"
	"rentacar/internal/metrics"
	"rentacar/internal/models"

	"github.com/rs/zerolog"
)

// ConfirmationState tracks where a session is in the confirmation flow.
type ConfirmationState string

const (
	StateAwaitingDraft ConfirmationState = "awaiting_draft"
	StateReviewing     ConfirmationState = "reviewing"
	StateConfirmed     ConfirmationState = "confirmed"
	StateCancelled     ConfirmationState = "cancelled"
)

// Confirmation finalizes a booking draft into a persisted Booking. The flow
// starts in AwaitingDraft; Begin moves it to Reviewing only if a draft
// exists, and from Reviewing the session either confirms or cancels. A
// failed persist leaves the draft intact so the user can retry.
type Confirmation struct {
	drafts     domain.DraftRepository
	bookings   domain.BookingRepository
	catalog    domain.CatalogRepository
	eventBus   domain.EventPublisher
	syncWorker domain.SyncWorker
	notifier   domain.Notifier
	logger     *zerolog.Logger
}

func NewConfirmation(
	drafts domain.DraftRepository,
	bookings domain.BookingRepository,
	catalog domain.CatalogRepository,
	eventBus domain.EventPublisher,
	syncWorker domain.SyncWorker,
	notifier domain.Notifier,
	logger *zerolog.Logger,
) *Confirmation {
	return &Confirmation{
		drafts:     drafts,
		bookings:   bookings,
		catalog:    catalog,
		eventBus:   eventBus,
		syncWorker: syncWorker,
		notifier:   notifier,
		logger:     logger,
	}
}

// Begin enters the review step. Without a stored draft there is nothing to
// review and the caller gets ErrMissingDraft.
func (s *Confirmation) Begin(ctx context.Context, sessionID string) (*models.BookingDraft, error) {
	draft, err := s.drafts.LoadDraft(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking draft: %w", err)
	}
	if draft == nil {
		return nil, ErrMissingDraft
	}
	return draft, nil
}

// Confirm persists the reviewed draft as a RESERVED booking. If the write
// fails the draft stays in the store and the session remains in review.
// On success the session state is cleared, the reserved days are written to
// the car's calendar, and downstream sync and notifications are kicked off.
func (s *Confirmation) Confirm(ctx context.Context, sessionID, userID string) (*models.Booking, error) {
	draft, err := s.Begin(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	booking := &models.Booking{
		UserID:         userID,
		Car:            draft.Car,
		StartDate:      draft.StartDate,
		EndDate:        draft.EndDate,
		PickupLocation: draft.PickupLocation,
		ReturnLocation: draft.ReturnLocation,
		TotalPrice:     draft.TotalPrice,
		Status:         models.BookingReserved,
		PaymentStatus:  models.PaymentPending,
	}

	if err := s.bookings.CreateBooking(ctx, booking); err != nil {
		metrics.IncBooking("failed")
		return nil, fmt.Errorf("failed to persist booking: %w", err)
	}

	s.markCalendar(ctx, booking, string(models.BookingReserved))

	if err := s.drafts.Clear(ctx, sessionID); err != nil {
		// The booking exists; a leftover draft only lingers until its TTL.
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to clear draft after confirmation")
	}

	s.publishEvent(events.EventBookingReserved, booking)
	s.enqueueAppend(ctx, booking)
	s.notifyReserved(ctx, booking)

	metrics.IncBooking("reserved")
	return booking, nil
}

// Cancel abandons the flow and clears the session state. Cancelling is
// always allowed, draft or no draft.
func (s *Confirmation) Cancel(ctx context.Context, sessionID string) error {
	draft, err := s.drafts.LoadDraft(ctx, sessionID)
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to load draft during cancel")
	}

	if err := s.drafts.Clear(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to clear booking state: %w", err)
	}

	if draft != nil {
		metrics.IncBooking("cancelled")
	}
	return nil
}

// markCalendar records the booked range in the car's availability calendar.
// Failures are logged, not returned: the booking row is the source of truth
// and the calendar can be rebuilt from it.
func (s *Confirmation) markCalendar(ctx context.Context, booking *models.Booking, status string) {
	for _, day := range models.DatesBetween(booking.StartDate, booking.EndDate) {
		err := s.catalog.SetCalendarStatus(ctx, booking.Car.DelegationID, booking.Car.Operation, day, status)
		if err != nil {
			s.logger.Error().Err(err).
				Str("booking_id", booking.ID).
				Str("date", day.String()).
				Msg("failed to mark calendar day")
		}
	}
}

func (s *Confirmation) publishEvent(eventType string, booking *models.Booking) {
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

func (s *Confirmation) enqueueAppend(ctx context.Context, booking *models.Booking) {
	if s.syncWorker == nil {
		return
	}
	if err := s.syncWorker.EnqueueAppend(ctx, booking); err != nil {
		s.logger.Error().Err(err).Str("booking_id", booking.ID).Msg("sheets enqueue error")
	}
}

func (s *Confirmation) notifyReserved(ctx context.Context, booking *models.Booking) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyBookingReserved(ctx, booking); err != nil {
		s.logger.Error().Err(err).Str("booking_id", booking.ID).Msg("manager notification error")
	}
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rentacar/internal/models"

	"github.com/google/uuid"
)

// CreateBooking persists a finalized booking. A missing id is assigned;
// new bookings always start RESERVED with payment PENDING.
func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	if booking.Operation == "" {
		booking.Operation = models.OperationBooking
	}
	if booking.Status == "" {
		booking.Status = models.BookingReserved
	}
	if booking.PaymentStatus == "" {
		booking.PaymentStatus = models.PaymentPending
	}
	now := time.Now()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	_, err := db.db.ExecContext(ctx, `
        INSERT INTO bookings (
            id, user_id, operation,
            car_delegation_id, car_operation, car_id, make, model, year, color, price_per_day,
            start_date, end_date, pickup_location, return_location,
            total_price, payment_status, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		booking.ID, booking.UserID, booking.Operation,
		booking.Car.DelegationID, booking.Car.Operation, booking.Car.CarID,
		booking.Car.Make, booking.Car.Model, booking.Car.Year, booking.Car.Color,
		booking.Car.PricePerDay,
		booking.StartDate.String(), booking.EndDate.String(),
		booking.PickupLocation, booking.ReturnLocation,
		booking.TotalPrice, string(booking.PaymentStatus), string(booking.Status),
		booking.CreatedAt, booking.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

// GetBooking fetches a booking by id.
func (db *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	row := db.db.QueryRowContext(ctx, selectBookings+` WHERE id = ?`, id)
	booking, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return booking, nil
}

// GetUserBookings lists the user's bookings, newest first.
func (db *DB) GetUserBookings(ctx context.Context, userID string) ([]*models.Booking, error) {
	return db.queryBookings(ctx, selectBookings+` WHERE user_id = ? ORDER BY created_at DESC`, userID)
}

// GetAllBookings lists every booking in creation order, used when the
// manager sheet is rebuilt from scratch.
func (db *DB) GetAllBookings(ctx context.Context) ([]*models.Booking, error) {
	return db.queryBookings(ctx, selectBookings+` ORDER BY created_at`)
}

// GetBookingsByDateRange lists bookings whose rental window intersects
// [start, end].
func (db *DB) GetBookingsByDateRange(ctx context.Context, start, end models.Date) ([]*models.Booking, error) {
	return db.queryBookings(ctx,
		selectBookings+` WHERE start_date <= ? AND end_date >= ? ORDER BY start_date`,
		end.String(), start.String())
}

// UpdateBookingStatus applies a status transition after checking it is
// legal from the booking's current status.
func (db *DB) UpdateBookingStatus(ctx context.Context, id string, status models.BookingStatus) error {
	booking, err := db.GetBooking(ctx, id)
	if err != nil {
		return err
	}
	if !booking.Status.CanTransitionTo(status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, booking.Status, status)
	}

	_, err = db.db.ExecContext(ctx,
		`UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now(), id)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	return nil
}

// UpdatePaymentStatus applies a payment transition with the same legality
// check.
func (db *DB) UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) error {
	booking, err := db.GetBooking(ctx, id)
	if err != nil {
		return err
	}
	if !booking.PaymentStatus.CanTransitionTo(status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, booking.PaymentStatus, status)
	}

	_, err = db.db.ExecContext(ctx,
		`UPDATE bookings SET payment_status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now(), id)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	return nil
}

const selectBookings = `
        SELECT id, user_id, operation,
               car_delegation_id, car_operation, car_id, make, model, year, color, price_per_day,
               start_date, end_date, pickup_location, return_location,
               total_price, payment_status, status, created_at, updated_at
        FROM bookings`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	var startDate, endDate, paymentStatus, status string
	err := row.Scan(&b.ID, &b.UserID, &b.Operation,
		&b.Car.DelegationID, &b.Car.Operation, &b.Car.CarID,
		&b.Car.Make, &b.Car.Model, &b.Car.Year, &b.Car.Color, &b.Car.PricePerDay,
		&startDate, &endDate, &b.PickupLocation, &b.ReturnLocation,
		&b.TotalPrice, &paymentStatus, &status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if b.StartDate, err = models.ParseDate(startDate); err != nil {
		return nil, fmt.Errorf("booking %s: %w", b.ID, err)
	}
	if b.EndDate, err = models.ParseDate(endDate); err != nil {
		return nil, fmt.Errorf("booking %s: %w", b.ID, err)
	}
	b.PaymentStatus = models.PaymentStatus(paymentStatus)
	b.Status = models.BookingStatus(status)
	return &b, nil
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...any) ([]*models.Booking, error) {
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

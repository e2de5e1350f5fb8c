package models

import "time"

type BookingStatus string

const (
	BookingReserved  BookingStatus = "RESERVED"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingCompleted BookingStatus = "COMPLETED"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentRefunded PaymentStatus = "REFUNDED"
	PaymentFailed   PaymentStatus = "FAILED"
)

// Booking is the finalized record emitted by confirmation. It is created
// with status RESERVED / payment PENDING and mutated afterwards only
// through explicit status transitions.
type Booking struct {
	ID             string        `json:"id"`
	UserID         string        `json:"user_id"`
	Operation      string        `json:"operation"`
	Car            Car           `json:"car"`
	StartDate      Date          `json:"start_date"`
	EndDate        Date          `json:"end_date"`
	PickupLocation string        `json:"pickup_location"`
	ReturnLocation string        `json:"return_location"`
	TotalPrice     float64       `json:"total_price"`
	PaymentStatus  PaymentStatus `json:"payment_status"`
	Status         BookingStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingReserved:  {BookingConfirmed, BookingCancelled},
	BookingConfirmed: {BookingCompleted, BookingCancelled},
}

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending: {PaymentPaid, PaymentFailed},
	PaymentPaid:    {PaymentRefunded},
	PaymentFailed:  {PaymentPending},
}

// CanTransitionTo reports whether the booking status change is legal.
// CANCELLED and COMPLETED are terminal.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

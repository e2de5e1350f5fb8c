package models

import "time"

// BookingQuery is the user's transient search: an inclusive date range plus
// pickup and return locations. ReturnLocation defaults to the pickup when
// SameLocation is set. Return-location is collected but intentionally never
// used to filter or price; that mirrors the product behaviour.
type BookingQuery struct {
	StartDate      Date   `json:"start_date"`
	EndDate        Date   `json:"end_date"`
	PickupLocation string `json:"pickup_location"`
	ReturnLocation string `json:"return_location"`
	SameLocation   bool   `json:"same_location"`
}

// EffectiveReturnLocation resolves the same-location flag.
func (q BookingQuery) EffectiveReturnLocation() string {
	if q.SameLocation {
		return q.PickupLocation
	}
	return q.ReturnLocation
}

// Validate checks the query against the booking horizon. The first violated
// field is reported as a ValidationError; checks run in form order so the
// user always sees the earliest problem.
func (q BookingQuery) Validate(today Date, horizonDays int) error {
	if q.StartDate.IsZero() {
		return &ValidationError{Field: "start_date", Reason: "start date is required"}
	}
	if q.EndDate.IsZero() {
		return &ValidationError{Field: "end_date", Reason: "end date is required"}
	}
	if q.StartDate.Before(today) {
		return &ValidationError{Field: "start_date", Reason: "start date is in the past"}
	}
	horizon := today.AddDays(horizonDays)
	if q.StartDate.After(horizon) {
		return &ValidationError{Field: "start_date", Reason: "start date is beyond the booking horizon"}
	}
	if q.EndDate.After(horizon) {
		return &ValidationError{Field: "end_date", Reason: "end date is beyond the booking horizon"}
	}
	if q.EndDate.Before(q.StartDate) {
		return &ValidationError{Field: "end_date", Reason: "end date must be on or after start date"}
	}
	if q.PickupLocation == "" {
		return &ValidationError{Field: "pickup_location", Reason: "pickup location is required"}
	}
	if !q.SameLocation && q.ReturnLocation == "" {
		return &ValidationError{Field: "return_location", Reason: "return location is required"}
	}
	return nil
}

// Days returns the inclusive day count of the range. A single-day rental
// counts as one day.
func (q BookingQuery) Days() int {
	return q.StartDate.DaysUntil(q.EndDate) + 1
}

// BookingDraft is the user's selected car plus the priced query, pending
// confirmation.
type BookingDraft struct {
	Car            Car       `json:"car"`
	TotalPrice     float64   `json:"total_price"`
	StartDate      Date      `json:"start_date"`
	EndDate        Date      `json:"end_date"`
	PickupLocation string    `json:"pickup_location"`
	ReturnLocation string    `json:"return_location"`
	CreatedAt      time.Time `json:"created_at"`
}

// Query reconstructs the search the draft was priced for.
func (d *BookingDraft) Query() BookingQuery {
	return BookingQuery{
		StartDate:      d.StartDate,
		EndDate:        d.EndDate,
		PickupLocation: d.PickupLocation,
		ReturnLocation: d.ReturnLocation,
	}
}

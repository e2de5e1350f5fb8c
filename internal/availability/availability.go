// Package availability implements the car availability and pricing engine.
// Everything here is a pure function of its inputs: no storage, no network,
// deterministic for identical catalog and query.
package availability

import (
	"errors"

	"rentacar/internal/models"
)

// ErrInvalidRange is returned when the end date precedes the start date.
// Ranges like that are rejected by query validation upstream; pricing
// refuses them instead of producing a zero or negative total.
var ErrInvalidRange = errors.New("end date is before start date")

// IsAvailable reports whether the car is bookable on the given day.
// A date missing from the booking calendar is available; a recorded entry
// counts only if it is exactly "AVAILABLE". Unrecognized statuses are
// treated as unavailable.
func IsAvailable(car models.Car, date models.Date) bool {
	status, ok := car.BookingDates[date.String()]
	if !ok {
		return true
	}
	return status == models.DayAvailable
}

// FilterAvailable reduces the catalog to cars usable for the query: the car
// must belong to the pickup delegation and be available on every day of the
// inclusive range. A single blocked day disqualifies the car for the whole
// window. Catalog order is preserved.
//
// Return-location never participates in filtering.
func FilterAvailable(cars []models.Car, query models.BookingQuery) []models.Car {
	days := models.DatesBetween(query.StartDate, query.EndDate)

	result := make([]models.Car, 0, len(cars))
	for _, car := range cars {
		if car.DelegationID != query.PickupLocation {
			continue
		}
		if availableForAll(car, days) {
			result = append(result, car)
		}
	}
	return result
}

func availableForAll(car models.Car, days []models.Date) bool {
	for _, day := range days {
		if !IsAvailable(car, day) {
			return false
		}
	}
	return true
}

// ComputeTotal prices the car for the query's range: inclusive day count
// times the daily rate. A one-day rental (start == end) charges exactly one
// day.
func ComputeTotal(car models.Car, query models.BookingQuery) (float64, error) {
	if query.EndDate.Before(query.StartDate) {
		return 0, ErrInvalidRange
	}
	return float64(query.Days()) * car.PricePerDay, nil
}

package models

import (
	"errors"
	"fmt"
)

type CarStatus string

const (
	CarAvailable   CarStatus = "AVAILABLE"
	CarRented      CarStatus = "RENTED"
	CarMaintenance CarStatus = "MAINTENANCE"
	CarOutOfOrder  CarStatus = "OUT_OF_ORDER"
)

// DayAvailable is the only calendar entry value that still counts as
// bookable. A date missing from the calendar is bookable too; any other
// recorded value, known or not, blocks the day.
const DayAvailable = "AVAILABLE"

// Record kind discriminators. Cars and delegations share a location
// partition in the catalog; Operation tells the record kinds apart.
const (
	OperationCar     = "car"
	OperationProfile = "profile"
	OperationBooking = "booking"
)

// Car is a catalog record keyed by (DelegationID, Operation).
// BookingDates is the sparse booking calendar: YYYY-MM-DD -> day status.
type Car struct {
	DelegationID string            `json:"delegation_id" yaml:"delegation_id"`
	Operation    string            `json:"operation" yaml:"operation"`
	CarID        string            `json:"car_id" yaml:"car_id"`
	Make         string            `json:"make" yaml:"make"`
	Model        string            `json:"model" yaml:"model"`
	Year         string            `json:"year" yaml:"year"`
	Color        string            `json:"color" yaml:"color"`
	Lat          float64           `json:"lat" yaml:"lat"`
	Lon          float64           `json:"lon" yaml:"lon"`
	PricePerDay  float64           `json:"price_per_day" yaml:"price_per_day"`
	Status       CarStatus         `json:"status" yaml:"status"`
	BookingDates map[string]string `json:"booking_dates" yaml:"booking_dates"`
}

// Validate rejects records that must not reach the availability logic.
// Called at the catalog boundary so downstream code never re-checks
// field presence.
func (c *Car) Validate() error {
	if c == nil {
		return errors.New("car is nil")
	}
	if c.DelegationID == "" {
		return errors.New("car delegation_id is required")
	}
	if c.Operation == "" {
		return errors.New("car operation is required")
	}
	if c.PricePerDay < 0 {
		return fmt.Errorf("car %s/%s has negative price_per_day", c.DelegationID, c.Operation)
	}
	return nil
}

// Normalize fills the defaults the original data set relies on: an empty
// calendar instead of nil and AVAILABLE as the default status.
func (c *Car) Normalize() {
	if c.BookingDates == nil {
		c.BookingDates = make(map[string]string)
	}
	if c.Status == "" {
		c.Status = CarAvailable
	}
}

// Key identifies the car within the catalog.
func (c *Car) Key() string {
	return c.DelegationID + "/" + c.Operation
}

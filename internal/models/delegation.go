package models

import "errors"

// Delegation is a rental branch owning a subset of the car catalog.
type Delegation struct {
	DelegationID  string  `json:"delegation_id" yaml:"delegation_id"`
	Operation     string  `json:"operation" yaml:"operation"`
	Name          string  `json:"name" yaml:"name"`
	Address       string  `json:"address" yaml:"address"`
	City          string  `json:"city" yaml:"city"`
	Lat           float64 `json:"lat" yaml:"lat"`
	Lon           float64 `json:"lon" yaml:"lon"`
	Phone         string  `json:"phone" yaml:"phone"`
	Email         string  `json:"email" yaml:"email"`
	AvailableCars int64   `json:"available_cars" yaml:"available_cars"`
}

func (d *Delegation) Validate() error {
	if d == nil {
		return errors.New("delegation is nil")
	}
	if d.DelegationID == "" {
		return errors.New("delegation delegation_id is required")
	}
	return nil
}

// Normalize applies the discriminator delegations carry in the source data.
func (d *Delegation) Normalize() {
	if d.Operation == "" {
		d.Operation = OperationProfile
	}
}

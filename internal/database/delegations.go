package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"rentacar/internal/models"
)

// SaveDelegation upserts a rental location.
func (db *DB) SaveDelegation(ctx context.Context, delegation *models.Delegation) error {
	if err := delegation.Validate(); err != nil {
		return err
	}
	delegation.Normalize()

	_, err := db.db.ExecContext(ctx, `
        INSERT INTO delegations (delegation_id, operation, name, address, city, lat, lon, phone, email, available_cars)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(delegation_id, operation) DO UPDATE SET
            name = excluded.name,
            address = excluded.address,
            city = excluded.city,
            lat = excluded.lat,
            lon = excluded.lon,
            phone = excluded.phone,
            email = excluded.email,
            available_cars = excluded.available_cars`,
		delegation.DelegationID, delegation.Operation, delegation.Name,
		delegation.Address, delegation.City, delegation.Lat, delegation.Lon,
		delegation.Phone, delegation.Email, delegation.AvailableCars)
	if err != nil {
		return fmt.Errorf("save delegation: %w", err)
	}
	return nil
}

// GetAllDelegations lists rental locations, skipping malformed rows.
func (db *DB) GetAllDelegations(ctx context.Context) ([]models.Delegation, error) {
	rows, err := db.db.QueryContext(ctx, `
        SELECT delegation_id, operation, name, address, city, lat, lon, phone, email, available_cars
        FROM delegations ORDER BY delegation_id`)
	if err != nil {
		return nil, fmt.Errorf("query delegations: %w", err)
	}
	defer rows.Close()

	var delegations []models.Delegation
	for rows.Next() {
		var d models.Delegation
		err := rows.Scan(&d.DelegationID, &d.Operation, &d.Name, &d.Address,
			&d.City, &d.Lat, &d.Lon, &d.Phone, &d.Email, &d.AvailableCars)
		if err != nil {
			return nil, fmt.Errorf("scan delegation: %w", err)
		}
		if err := d.Validate(); err != nil {
			db.logger.Warn().Err(err).Msg("dropping malformed delegation row")
			continue
		}
		delegations = append(delegations, d)
	}
	return delegations, rows.Err()
}

// GetDelegation fetches a location by id (operation "profile").
func (db *DB) GetDelegation(ctx context.Context, delegationID string) (*models.Delegation, error) {
	var d models.Delegation
	err := db.db.QueryRowContext(ctx, `
        SELECT delegation_id, operation, name, address, city, lat, lon, phone, email, available_cars
        FROM delegations WHERE delegation_id = ? AND operation = ?`,
		delegationID, models.OperationProfile).
		Scan(&d.DelegationID, &d.Operation, &d.Name, &d.Address, &d.City,
			&d.Lat, &d.Lon, &d.Phone, &d.Email, &d.AvailableCars)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get delegation: %w", err)
	}
	return &d, nil
}

// RefreshAvailableCars recomputes the delegation's available-car counter
// from the cars currently marked AVAILABLE.
func (db *DB) RefreshAvailableCars(ctx context.Context, delegationID string) error {
	_, err := db.db.ExecContext(ctx, `
        UPDATE delegations SET available_cars = (
            SELECT COUNT(*) FROM cars
            WHERE cars.delegation_id = delegations.delegation_id AND cars.status = ?
        ) WHERE delegation_id = ?`,
		string(models.CarAvailable), delegationID)
	if err != nil {
		return fmt.Errorf("refresh available cars: %w", err)
	}
	return nil
}

package database

import (
	"context"
	"fmt"

	"rentacar/internal/models"
)

// SaveCar upserts the car row and replaces its booking calendar.
func (db *DB) SaveCar(ctx context.Context, car *models.Car) error {
	if err := car.Validate(); err != nil {
		return err
	}
	car.Normalize()

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save car: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
        INSERT INTO cars (delegation_id, operation, car_id, make, model, year, color, lat, lon, price_per_day, status)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(delegation_id, operation) DO UPDATE SET
            car_id = excluded.car_id,
            make = excluded.make,
            model = excluded.model,
            year = excluded.year,
            color = excluded.color,
            lat = excluded.lat,
            lon = excluded.lon,
            price_per_day = excluded.price_per_day,
            status = excluded.status`,
		car.DelegationID, car.Operation, car.CarID, car.Make, car.Model,
		car.Year, car.Color, car.Lat, car.Lon, car.PricePerDay, string(car.Status))
	if err != nil {
		return fmt.Errorf("save car: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM car_calendar WHERE delegation_id = ? AND operation = ?`,
		car.DelegationID, car.Operation); err != nil {
		return fmt.Errorf("reset car calendar: %w", err)
	}
	for date, status := range car.BookingDates {
		if _, err := models.ParseDate(date); err != nil {
			db.logger.Warn().Str("car", car.Key()).Str("date", date).Msg("skipping malformed calendar date")
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO car_calendar (delegation_id, operation, date, status) VALUES (?, ?, ?, ?)`,
			car.DelegationID, car.Operation, date, status); err != nil {
			return fmt.Errorf("save car calendar: %w", err)
		}
	}

	return tx.Commit()
}

// GetAllCars returns every valid catalog car with its booking calendar.
// Rows that fail validation are skipped, so callers never see a
// half-built Car.
func (db *DB) GetAllCars(ctx context.Context) ([]models.Car, error) {
	return db.queryCars(ctx, `
        SELECT delegation_id, operation, car_id, make, model, year, color, lat, lon, price_per_day, status
        FROM cars ORDER BY rowid`)
}

// GetCarsByDelegation returns the delegation's cars in catalog order.
func (db *DB) GetCarsByDelegation(ctx context.Context, delegationID string) ([]models.Car, error) {
	return db.queryCars(ctx, `
        SELECT delegation_id, operation, car_id, make, model, year, color, lat, lon, price_per_day, status
        FROM cars WHERE delegation_id = ? ORDER BY rowid`, delegationID)
}

// GetCar fetches a single car by its (delegationID, operation) key.
func (db *DB) GetCar(ctx context.Context, delegationID, operation string) (*models.Car, error) {
	cars, err := db.queryCars(ctx, `
        SELECT delegation_id, operation, car_id, make, model, year, color, lat, lon, price_per_day, status
        FROM cars WHERE delegation_id = ? AND operation = ?`, delegationID, operation)
	if err != nil {
		return nil, err
	}
	if len(cars) == 0 {
		return nil, ErrNotFound
	}
	return &cars[0], nil
}

func (db *DB) queryCars(ctx context.Context, query string, args ...any) ([]models.Car, error) {
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query cars: %w", err)
	}
	defer rows.Close()

	var cars []models.Car
	for rows.Next() {
		var car models.Car
		var status string
		err := rows.Scan(&car.DelegationID, &car.Operation, &car.CarID, &car.Make,
			&car.Model, &car.Year, &car.Color, &car.Lat, &car.Lon, &car.PricePerDay, &status)
		if err != nil {
			return nil, fmt.Errorf("scan car: %w", err)
		}
		car.Status = models.CarStatus(status)
		if err := car.Validate(); err != nil {
			db.logger.Warn().Err(err).Msg("dropping malformed catalog row")
			continue
		}
		car.Normalize()
		cars = append(cars, car)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cars: %w", err)
	}

	if err := db.loadCalendars(ctx, cars); err != nil {
		return nil, err
	}
	return cars, nil
}

func (db *DB) loadCalendars(ctx context.Context, cars []models.Car) error {
	if len(cars) == 0 {
		return nil
	}

	index := make(map[string]*models.Car, len(cars))
	for i := range cars {
		index[cars[i].Key()] = &cars[i]
	}

	rows, err := db.db.QueryContext(ctx,
		`SELECT delegation_id, operation, date, status FROM car_calendar`)
	if err != nil {
		return fmt.Errorf("query car calendars: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var delegationID, operation, date, status string
		if err := rows.Scan(&delegationID, &operation, &date, &status); err != nil {
			return fmt.Errorf("scan calendar row: %w", err)
		}
		if car, ok := index[delegationID+"/"+operation]; ok {
			car.BookingDates[date] = status
		}
	}
	return rows.Err()
}

// SetCalendarStatus records a day-level status on the car's calendar.
func (db *DB) SetCalendarStatus(ctx context.Context, delegationID, operation string, date models.Date, status string) error {
	res, err := db.db.ExecContext(ctx, `
        INSERT INTO car_calendar (delegation_id, operation, date, status)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(delegation_id, operation, date) DO UPDATE SET status = excluded.status`,
		delegationID, operation, date.String(), status)
	if err != nil {
		return fmt.Errorf("set calendar status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("set calendar status %s/%s %s: no row written", delegationID, operation, date)
	}
	return nil
}

// ClearCalendarStatus removes the recorded entry, making the day
// bookable again.
func (db *DB) ClearCalendarStatus(ctx context.Context, delegationID, operation string, date models.Date) error {
	_, err := db.db.ExecContext(ctx,
		`DELETE FROM car_calendar WHERE delegation_id = ? AND operation = ? AND date = ?`,
		delegationID, operation, date.String())
	if err != nil {
		return fmt.Errorf("clear calendar status: %w", err)
	}
	return nil
}

package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	_ "github.com/mattn/go-sqlite3"
)

type DB struct {
	db     *sql.DB
	logger *zerolog.Logger
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %v", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %v", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return &DB{db: db, logger: logger}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS delegations (
            delegation_id TEXT NOT NULL,
            operation TEXT NOT NULL DEFAULT 'profile',
            name TEXT NOT NULL,
            address TEXT,
            city TEXT,
            lat REAL NOT NULL DEFAULT 0,
            lon REAL NOT NULL DEFAULT 0,
            phone TEXT,
            email TEXT,
            available_cars INTEGER NOT NULL DEFAULT 0,
            PRIMARY KEY (delegation_id, operation)
        )`,

		`CREATE TABLE IF NOT EXISTS cars (
            delegation_id TEXT NOT NULL,
            operation TEXT NOT NULL,
            car_id TEXT,
            make TEXT,
            model TEXT,
            year TEXT,
            color TEXT,
            lat REAL NOT NULL DEFAULT 0,
            lon REAL NOT NULL DEFAULT 0,
            price_per_day REAL NOT NULL DEFAULT 0,
            status TEXT NOT NULL DEFAULT 'AVAILABLE',
            PRIMARY KEY (delegation_id, operation)
        )`,

		// Sparse booking calendar: one row per recorded day. Absence of a
		// row means the day is bookable.
		`CREATE TABLE IF NOT EXISTS car_calendar (
            delegation_id TEXT NOT NULL,
            operation TEXT NOT NULL,
            date TEXT NOT NULL,
            status TEXT NOT NULL,
            PRIMARY KEY (delegation_id, operation, date)
        )`,

		`CREATE TABLE IF NOT EXISTS bookings (
            id TEXT PRIMARY KEY,
            user_id TEXT NOT NULL,
            operation TEXT NOT NULL DEFAULT 'booking',
            car_delegation_id TEXT NOT NULL,
            car_operation TEXT NOT NULL,
            car_id TEXT,
            make TEXT,
            model TEXT,
            year TEXT,
            color TEXT,
            price_per_day REAL NOT NULL DEFAULT 0,
            start_date TEXT NOT NULL,
            end_date TEXT NOT NULL,
            pickup_location TEXT NOT NULL,
            return_location TEXT,
            total_price REAL NOT NULL DEFAULT 0,
            payment_status TEXT NOT NULL DEFAULT 'PENDING',
            status TEXT NOT NULL DEFAULT 'RESERVED',
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE TABLE IF NOT EXISTS sync_tasks (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            task_type TEXT NOT NULL,
            booking_id TEXT,
            payload TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            retry_count INTEGER NOT NULL DEFAULT 0,
            last_error TEXT,
            next_retry_at DATETIME,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE INDEX IF NOT EXISTS idx_cars_delegation ON cars(delegation_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_tasks_status ON sync_tasks(status)`,
		`CREATE INDEX IF NOT EXISTS idx_calendar_date ON car_calendar(date)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_user_id ON bookings(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_start_date ON bookings(start_date)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %v", query, err)
		}
	}
	return nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

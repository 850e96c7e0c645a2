// Package database provides PostgreSQL operations for parameters and measurements.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/apperrors"
)

// DB wraps a database connection and provides parameter and measurement operations.
type DB struct {
	conn *sql.DB
}

// NewDB creates a new database connection using the provided DSN.
func NewDB(dsn string) (*DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Configure connection pool
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("Successfully connected to PostgreSQL database")

	return &DB{conn: conn}, nil
}

// NewWithConn wraps an already opened connection.
func NewWithConn(conn *sql.DB) *DB {
	return &DB{conn: conn}
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.conn != nil {
		slog.Info("Closing database connection")
		return db.conn.Close()
	}
	return nil
}

// translateError maps driver errors onto the shared error taxonomy.
func translateError(err error, op, resource string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", resource, op, apperrors.ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s: %w", resource, apperrors.ErrDuplicateResource)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s references a missing row: %w", resource, apperrors.ErrNotFound)
		case "23514": // check_violation
			return fmt.Errorf("%s violates a constraint: %w", resource, apperrors.ErrInvalidArgument)
		}
	}
	return fmt.Errorf("failed to %s %s: %w", op, resource, err)
}

package database

import "errors"

var (
	// ErrNoPath is returned by Open when no database path is configured.
	ErrNoPath = errors.New("database: path is required")

	// ErrMissingDown is returned when rolling back a migration that has no
	// .down.sql file.
	ErrMissingDown = errors.New("database: migration has no down SQL")
)

package db

import "fmt"

var (
	// ErrConnectionNotEstablished is returned once the connection is closed
	ErrConnectionNotEstablished = fmt.Errorf("db: connection not established")
)

// ErrInvalidConfig is returned by Config.Validate
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("db: invalid config: %s", msg)
}

// ErrConnection wraps a failure to open, ping or close the pool
func ErrConnection(err error) error {
	return fmt.Errorf("db: connection failed: %w", err)
}

// ErrInvalidURL is returned when a mysql:// url cannot be parsed
func ErrInvalidURL(raw string, err error) error {
	return fmt.Errorf("db: invalid url %q: %w", raw, err)
}

// ErrMigrate is returned when a table cannot be created or altered
func ErrMigrate(table string, err error) error {
	return fmt.Errorf("db: migrate table %s: %w", table, err)
}

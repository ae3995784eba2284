package logger

import "fmt"

// ErrBuildLogger wraps a zap build failure, usually an unwritable output path
func ErrBuildLogger(err error) error {
	return fmt.Errorf("logger: build: %w", err)
}

// ErrInvalidLevel is returned for a level zap does not know
func ErrInvalidLevel(level string, err error) error {
	return fmt.Errorf("logger: invalid level %q: %w", level, err)
}

// ErrInvalidEncoding is returned for an encoding other than json or console
func ErrInvalidEncoding(encoding string) error {
	return fmt.Errorf("logger: invalid encoding %q, must be one of: %v", encoding, validEncodings)
}

// ErrInvalidOutput is returned for an empty entry in output_paths or error_output_paths
func ErrInvalidOutput(field string) error {
	return fmt.Errorf("logger: %s contains an empty path", field)
}

package cron

import "fmt"

var (
	// ErrNilTask is returned when a nil task is added
	ErrNilTask = fmt.Errorf("cron: nil task")

	// ErrSchedulerStopped is returned when adding tasks to a stopped scheduler
	ErrSchedulerStopped = fmt.Errorf("cron: scheduler is stopped")
)

// ErrInvalidSpec is returned when a cron spec string cannot be parsed
func ErrInvalidSpec(spec string, err error) error {
	return fmt.Errorf("cron: invalid spec %q: %w", spec, err)
}

// ErrPanic is returned by a task that panicked
func ErrPanic(task string, r any) error {
	return fmt.Errorf("cron: task %s panicked: %v", task, r)
}

package proc

import "errors"

var (
	// ErrNotFound indicates no process with the given PID exists.
	ErrNotFound = errors.New("proc: process not found")

	// ErrInitProtected indicates an attempt to terminate the init process.
	ErrInitProtected = errors.New("proc: init process cannot be terminated")

	// ErrEmptyName indicates a process was created without a name.
	ErrEmptyName = errors.New("proc: process name must not be empty")

	// ErrClosed indicates the table has been closed.
	ErrClosed = errors.New("proc: table is closed")
)

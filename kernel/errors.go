package kernel

import "errors"

var (
	// ErrNotRunning indicates a command reached a kernel that is shut down.
	ErrNotRunning = errors.New("kernel: not running")
	// ErrRunning indicates Initialize was called on a kernel that already runs.
	ErrRunning = errors.New("kernel: already running")
	// ErrUnknownCommand indicates the dispatcher had no route for a command.
	ErrUnknownCommand = errors.New("kernel: unknown command")
	// ErrUsage indicates a command line was missing or malformed arguments.
	// The wrapping error carries the usage string.
	ErrUsage = errors.New("kernel: invalid arguments")
)

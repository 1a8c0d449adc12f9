package firewall

import (
	"runtime"

	"grimm.is/phoque/internal/rules"
)

// Backend renders rules into commands for one host packet filter and runs
// them.
type Backend interface {
	// Name identifies the backend in logs.
	Name() string

	// BuildAddCommand renders the command that installs r.
	BuildAddCommand(r *rules.Rule) string

	// BuildDeleteCommand renders the command that removes what
	// BuildAddCommand installed.
	BuildDeleteCommand(r *rules.Rule) string

	// Cleanup removes every rule previously applied by phoque. Each
	// deletion is best effort; the number of deletions issued is returned.
	Cleanup() int

	// Execute runs one command. A failure is returned as
	// *CommandExecutionError unless ignoreErrors is set.
	Execute(command string, ignoreErrors bool) error

	// Applied returns the tags of phoque rules currently in the filter.
	Applied() ([]string, error)
}

// NewBackend returns the backend for goos. There is no fallback: an
// unknown OS yields *UnsupportedPlatformError.
func NewBackend(goos string, opts ...Option) (Backend, error) {
	switch goos {
	case "linux":
		return NewIPTables(opts...), nil
	case "windows":
		return NewNetsh(opts...), nil
	}
	return nil, &UnsupportedPlatformError{OS: goos}
}

// DetectBackend returns the backend for the running OS.
func DetectBackend(opts ...Option) (Backend, error) {
	return NewBackend(runtime.GOOS, opts...)
}

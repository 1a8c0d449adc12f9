package firewall

import (
	"errors"
	"fmt"
)

var (
	// ErrRuleNotFound is returned when an operation names an unknown rule id.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrDuplicateRule is returned when adding a rule whose id, or short
	// id, is already in the collection.
	ErrDuplicateRule = errors.New("rule id already exists")
)

// CommandExecutionError reports a filter command that exited unsuccessfully.
type CommandExecutionError struct {
	Command string
	Stderr  string
}

func (e *CommandExecutionError) Error() string {
	return fmt.Sprintf("failed to run %q: %s", e.Command, e.Stderr)
}

// UnsupportedPlatformError is returned when no backend exists for the host OS.
type UnsupportedPlatformError struct {
	OS string
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("unsupported operating system: %s", e.OS)
}

package firewall

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"

	"github.com/kballard/go-shellquote"

	"grimm.is/phoque/internal/logging"
)

// CommandRunner abstracts process execution.
type CommandRunner interface {
	// Run executes name with args and returns what the process wrote to
	// stdout and stderr. A non-zero exit is reported through err.
	Run(name string, args ...string) (stdout, stderr []byte, err error)
}

// RealCommandRunner executes actual processes.
type RealCommandRunner struct{}

// Run executes a command, capturing stdout and stderr separately.
func (r *RealCommandRunner) Run(name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.Command(name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// DefaultCommandRunner is the default command runner.
var DefaultCommandRunner CommandRunner = &RealCommandRunner{}

// Runner receives a fully formed command string in place of spawning it.
// It is used for dry-run logging and tests. A returned error is treated
// like a non-zero exit.
type Runner func(command string) error

// Option configures a Backend.
type Option func(*executor)

// WithRunner routes every executed command to r instead of the OS.
// Listing the current filter state still goes through the CommandRunner.
func WithRunner(r Runner) Option {
	return func(e *executor) { e.runner = r }
}

// WithCommandRunner replaces the process runner.
func WithCommandRunner(c CommandRunner) Option {
	return func(e *executor) { e.cmd = c }
}

// WithLogger sets the backend logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *executor) { e.logger = l }
}

// executor is the single execution seam shared by every backend.
type executor struct {
	runner Runner
	cmd    CommandRunner
	logger *logging.Logger

	// stdoutErrors makes stdout stand in for an empty stderr; netsh reports
	// failures on stdout.
	stdoutErrors bool
}

func newExecutor(component string, opts []Option) executor {
	e := executor{cmd: DefaultCommandRunner}
	for _, opt := range opts {
		opt(&e)
	}
	if e.logger == nil {
		e.logger = logging.WithComponent(component)
	}
	return e
}

func (e *executor) execute(command string, ignoreErrors bool) error {
	msg, failed := e.run(command)
	if !failed {
		e.logger.Debug("command succeeded", "command", command)
		return nil
	}
	if ignoreErrors {
		e.logger.Debug("ignoring command failure", "command", command, "stderr", msg)
		return nil
	}
	return &CommandExecutionError{Command: command, Stderr: msg}
}

// run executes command and returns the failure message, if any.
func (e *executor) run(command string) (string, bool) {
	if e.runner != nil {
		if err := e.runner(command); err != nil {
			return err.Error(), true
		}
		return "", false
	}

	argv, err := shellquote.Split(command)
	if err != nil {
		return fmt.Sprintf("cannot parse command: %v", err), true
	}
	if len(argv) == 0 {
		return "empty command", true
	}

	stdout, stderr, err := e.cmd.Run(argv[0], argv[1:]...)
	if err == nil {
		return "", false
	}
	msg := strings.TrimSpace(string(stderr))
	if msg == "" && e.stdoutErrors {
		msg = strings.TrimSpace(string(stdout))
	}
	if msg == "" {
		msg = err.Error()
	}
	return msg, true
}

// list runs a read-only query against the filter and returns its stdout
// split into lines. It never goes through the Runner override.
func (e *executor) list(name string, args ...string) ([]string, error) {
	stdout, stderr, err := e.cmd.Run(name, args...)
	if err != nil {
		msg := strings.TrimSpace(string(stderr))
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("%s %s: %s", name, strings.Join(args, " "), msg)
	}
	return strings.Split(strings.ReplaceAll(string(stdout), "\r\n", "\n"), "\n"), nil
}

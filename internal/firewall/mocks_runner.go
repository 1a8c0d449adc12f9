package firewall

import (
	"github.com/stretchr/testify/mock"
)

// MockCommandRunner is a mock implementation of CommandRunner for testing.
type MockCommandRunner struct {
	mock.Mock
}

func (m *MockCommandRunner) Run(name string, args ...string) ([]byte, []byte, error) {
	callArgs := make([]interface{}, 0, len(args)+1)
	callArgs = append(callArgs, name)
	for _, a := range args {
		callArgs = append(callArgs, a)
	}
	result := m.Called(callArgs...)

	var stdout, stderr []byte
	if v := result.Get(0); v != nil {
		stdout = v.([]byte)
	}
	if v := result.Get(1); v != nil {
		stderr = v.([]byte)
	}
	return stdout, stderr, result.Error(2)
}

// RecordingRunner is a Runner that remembers every command it was given
// and fails the ones listed in Fail.
type RecordingRunner struct {
	Commands []string
	Fail     map[string]error
}

// Run implements Runner.
func (r *RecordingRunner) Run(command string) error {
	r.Commands = append(r.Commands, command)
	if err, ok := r.Fail[command]; ok {
		return err
	}
	return nil
}

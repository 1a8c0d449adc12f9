package firewall

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"grimm.is/phoque/internal/logging"
	"grimm.is/phoque/internal/rules"
)

// mustRule builds a rule with a fixed, readable id.
func mustRule(t *testing.T, short string, d rules.Direction, p rules.Protocol, port string, a rules.Action) *rules.Rule {
	t.Helper()
	id := uuid.MustParse(short + "-0000-4000-8000-000000000000")
	r, err := rules.Restore(id, d, p, port, a, true)
	require.NoError(t, err)
	return r
}

// MockStore is a testify mock of Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Load() ([]*rules.Rule, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*rules.Rule), args.Error(1)
}

func (m *MockStore) Save(rs []*rules.Rule) error {
	return m.Called(rs).Error(0)
}

// memStore keeps the last saved collection and counts saves.
type memStore struct {
	saved []*rules.Rule
	saves int
}

func (s *memStore) Load() ([]*rules.Rule, error) { return s.saved, nil }

func (s *memStore) Save(rs []*rules.Rule) error {
	s.saves++
	s.saved = rs
	return nil
}

func quietLogger() *logging.Logger {
	return logging.Discard()
}

package firewall

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"grimm.is/phoque/internal/metrics"
	"grimm.is/phoque/internal/rules"
)

func newTestManager(t *testing.T, store Store, backend Backend, opts ...ManagerOption) *Manager {
	t.Helper()
	opts = append([]ManagerOption{WithManagerLogger(quietLogger())}, opts...)
	m, err := NewManager(store, backend, opts...)
	require.NoError(t, err)
	return m
}

// emptyFilter answers every listing with no rules.
func emptyFilter() *MockCommandRunner {
	cmd := new(MockCommandRunner)
	cmd.On("Run", "iptables", "-S", mock.Anything).Return([]byte(""), nil, nil)
	return cmd
}

func TestNewManager_LoadError(t *testing.T) {
	store := new(MockStore)
	store.On("Load").Return(nil, errors.New("disk on fire"))

	_, err := NewManager(store, NewIPTables(), WithManagerLogger(quietLogger()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestManager_AddPersistsWholeCollection(t *testing.T) {
	store := &memStore{}
	m := newTestManager(t, store, NewIPTables(WithLogger(quietLogger())))

	a := mustRule(t, "aaaaaaaa", rules.DirectionIn, rules.ProtocolTCP, "22", rules.ActionAllow)
	b := mustRule(t, "bbbbbbbb", rules.DirectionOut, rules.ProtocolUDP, "53", rules.ActionDeny)
	require.NoError(t, m.Add(a))
	require.NoError(t, m.Add(b))

	assert.Equal(t, 2, store.saves)
	require.Len(t, store.saved, 2)
	assert.Equal(t, a.ID, store.saved[0].ID)
	assert.Equal(t, b.ID, store.saved[1].ID)

	listed := m.List()
	require.Len(t, listed, 2)
	assert.Equal(t, *a, *listed[0])
	assert.Equal(t, *b, *listed[1])
}

func TestManager_AddDuplicate(t *testing.T) {
	store := &memStore{}
	m := newTestManager(t, store, NewIPTables(WithLogger(quietLogger())))

	a := mustRule(t, "aaaaaaaa", rules.DirectionIn, rules.ProtocolTCP, "22", rules.ActionAllow)
	require.NoError(t, m.Add(a))

	err := m.Add(a)
	assert.True(t, errors.Is(err, ErrDuplicateRule))
	assert.Equal(t, 1, store.saves)
	assert.Len(t, m.List(), 1)
}

func TestManager_AddShortIDCollision(t *testing.T) {
	store := &memStore{}
	m := newTestManager(t, store, NewIPTables(WithLogger(quietLogger())))

	require.NoError(t, m.Add(mustRule(t, "aaaaaaaa", rules.DirectionIn, rules.ProtocolTCP, "22", rules.ActionAllow)))

	other, err := rules.Restore(uuid.MustParse("aaaaaaaa-1111-4000-8000-000000000000"),
		rules.DirectionOut, rules.ProtocolUDP, "53", rules.ActionDeny, true)
	require.NoError(t, err)

	err = m.Add(other)
	assert.True(t, errors.Is(err, ErrDuplicateRule))
	assert.Equal(t, 1, store.saves)
	assert.Len(t, m.List(), 1)
}

func TestManager_SaveFailureKeepsMemory(t *testing.T) {
	store := new(MockStore)
	store.On("Load").Return([]*rules.Rule{}, nil)
	store.On("Save", mock.Anything).Return(errors.New("read-only file system"))

	m := newTestManager(t, store, NewIPTables(WithLogger(quietLogger())))
	err := m.Add(mustRule(t, "aaaaaaaa", rules.DirectionIn, rules.ProtocolTCP, "22", rules.ActionAllow))
	require.Error(t, err)
	assert.Empty(t, m.List())
}

func TestManager_Update(t *testing.T) {
	original := mustRule(t, "aaaaaaaa", rules.DirectionIn, rules.ProtocolTCP, "22", rules.ActionAllow)
	store := &memStore{saved: []*rules.Rule{original}}
	m := newTestManager(t, store, NewIPTables(WithLogger(quietLogger())))

	replacement, err := rules.New(rules.DirectionOut, rules.ProtocolUDP, "1000-2000", rules.ActionReject)
	require.NoError(t, err)
	replacement.Active = false

	ok, err := m.Update("aaaaaaaa", replacement)
	require.NoError(t, err)
	require.True(t, ok)

	got, found := m.Get(original.ID.String())
	require.True(t, found)
	assert.Equal(t, original.ID, got.ID)
	assert.Equal(t, rules.DirectionOut, got.Direction)
	assert.Equal(t, rules.ProtocolUDP, got.Protocol)
	assert.Equal(t, rules.Port("1000:2000"), got.Port)
	assert.Equal(t, rules.ActionReject, got.Action)
	assert.False(t, got.Active)
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, original.ID, store.saved[0].ID)
}

func TestManager_UnknownIDLeavesStoreUntouched(t *testing.T) {
	store := new(MockStore)
	store.On("Load").Return([]*rules.Rule{
		mustRule(t, "aaaaaaaa", rules.DirectionIn, rules.ProtocolTCP, "22", rules.ActionAllow),
	}, nil)

	m := newTestManager(t, store, NewIPTables(WithLogger(quietLogger())))
	replacement := mustRule(t, "bbbbbbbb", rules.DirectionIn, rules.ProtocolTCP, "80", rules.ActionAllow)

	ok, err := m.Update("ffffffff", replacement)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = m.Remove("ffffffff")
	require.NoError(t, err)
	assert.False(t, ok)

	_, found := m.Get("ffffffff")
	assert.False(t, found)

	store.AssertNotCalled(t, "Save", mock.Anything)
	assert.Len(t, m.List(), 1)
}

func TestManager_UnknownIDLeavesFileByteForByte(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	seed := []*rules.Rule{mustRule(t, "aaaaaaaa", rules.DirectionIn, rules.ProtocolTCP, "22", rules.ActionAllow)}
	data, err := rules.EncodeRecords(seed)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	m := newTestManager(t, &fileStore{path: path}, NewIPTables(WithLogger(quietLogger())))

	ok, err := m.Update("deadbeef", seed[0])
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = m.Remove("deadbeef")
	require.NoError(t, err)
	assert.False(t, ok)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, after)
}

// fileStore is the smallest file-backed Store; the real one lives in the
// storage package, which imports this one.
type fileStore struct{ path string }

func (s *fileStore) Load() ([]*rules.Rule, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	rs, _, err := rules.DecodeRecords(data)
	return rs, err
}

func (s *fileStore) Save(rs []*rules.Rule) error {
	data, err := rules.EncodeRecords(rs)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

func TestManager_Remove(t *testing.T) {
	a := mustRule(t, "aaaaaaaa", rules.DirectionIn, rules.ProtocolTCP, "22", rules.ActionAllow)
	b := mustRule(t, "bbbbbbbb", rules.DirectionIn, rules.ProtocolTCP, "80", rules.ActionAllow)
	store := &memStore{saved: []*rules.Rule{a, b}}
	m := newTestManager(t, store, NewIPTables(WithLogger(quietLogger())))

	ok, err := m.Remove(a.ID.String())
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, store.saved, 1)
	assert.Equal(t, b.ID, store.saved[0].ID)
	_, found := m.Get("aaaaaaaa")
	assert.False(t, found)
}

func TestManager_ReadsReturnCopies(t *testing.T) {
	a := mustRule(t, "aaaaaaaa", rules.DirectionIn, rules.ProtocolTCP, "22", rules.ActionAllow)
	m := newTestManager(t, &memStore{saved: []*rules.Rule{a}}, NewIPTables(WithLogger(quietLogger())))

	got, _ := m.Get("aaaaaaaa")
	got.Active = false
	m.List()[0].Port = "9999"

	again, _ := m.Get("aaaaaaaa")
	assert.True(t, again.Active)
	assert.Equal(t, rules.Port("22"), again.Port)
}

func TestManager_Toggle(t *testing.T) {
	a := mustRule(t, "aaaaaaaa", rules.DirectionIn, rules.ProtocolTCP, "22", rules.ActionAllow)
	store := &memStore{saved: []*rules.Rule{a}}
	m := newTestManager(t, store, NewIPTables(WithLogger(quietLogger())))

	toggled, err := m.Toggle("aaaaaaaa")
	require.NoError(t, err)
	assert.False(t, toggled.Active)
	assert.False(t, store.saved[0].Active)
	assert.True(t, a.Active, "caller's rule must not be mutated")

	_, err = m.Toggle("ffffffff")
	assert.True(t, errors.Is(err, ErrRuleNotFound))
}

func TestManager_ToggleAll(t *testing.T) {
	mk := func(active ...bool) []*rules.Rule {
		out := make([]*rules.Rule, 0, len(active))
		for _, on := range active {
			r, err := rules.New(rules.DirectionIn, rules.ProtocolTCP, "22", rules.ActionAllow)
			require.NoError(t, err)
			r.Active = on
			out = append(out, r)
		}
		return out
	}

	tests := []struct {
		name    string
		initial []*rules.Rule
		want    ToggleResult
		active  bool
		saves   int
	}{
		{"all active", mk(true, true), ToggleDeactivatedAll, false, 1},
		{"all inactive", mk(false, false), ToggleActivatedAll, true, 1},
		{"mixed", mk(true, false, false), ToggleActivatedRemaining, true, 1},
		{"empty", nil, ToggleNone, false, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := &memStore{saved: tc.initial}
			m := newTestManager(t, store, NewIPTables(WithLogger(quietLogger())))
			assert.Equal(t, tc.want, m.PendingToggle())

			got, err := m.ToggleAll()
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.saves, store.saves)
			for _, r := range m.List() {
				assert.Equal(t, tc.active, r.Active)
			}
		})
	}
}

func TestManager_ApplyDryRun(t *testing.T) {
	cmd := new(MockCommandRunner)
	a := mustRule(t, "1a2b3c4d", rules.DirectionIn, rules.ProtocolTCP, "80", rules.ActionAllow)
	m := newTestManager(t, &memStore{saved: []*rules.Rule{a}}, NewIPTables(WithCommandRunner(cmd), WithLogger(quietLogger())))

	commands, err := m.Apply(false)
	require.NoError(t, err)
	assert.Equal(t, []string{"iptables -A INPUT -p tcp --dport 80 -m comment --comment phoque-1a2b3c4d -j ACCEPT"}, commands)
	cmd.AssertNumberOfCalls(t, "Run", 0)
}

func TestManager_ApplyEmpty(t *testing.T) {
	rec := &RecordingRunner{}
	m := newTestManager(t, &memStore{}, NewIPTables(WithCommandRunner(emptyFilter()), WithRunner(rec.Run), WithLogger(quietLogger())))

	commands, err := m.Apply(true)
	require.NoError(t, err)
	assert.Empty(t, commands)
	assert.Empty(t, rec.Commands)

	commands, err = m.Apply(false)
	require.NoError(t, err)
	assert.Empty(t, commands)
}

func TestManager_ApplyCleansUpBeforeAdding(t *testing.T) {
	applied := mustRule(t, "aaaaaaaa", rules.DirectionIn, rules.ProtocolTCP, "22", rules.ActionAllow)
	fresh := mustRule(t, "bbbbbbbb", rules.DirectionOut, rules.ProtocolUDP, "53", rules.ActionDeny)

	cmd := new(MockCommandRunner)
	cmd.On("Run", "iptables", "-S", "INPUT").Return([]byte(
		"-P INPUT ACCEPT\n-A INPUT -p tcp -m tcp --dport 22 -m comment --comment phoque-aaaaaaaa -j ACCEPT\n"), nil, nil)
	cmd.On("Run", "iptables", "-S", "OUTPUT").Return([]byte("-P OUTPUT ACCEPT\n"), nil, nil)
	cmd.On("Run", "iptables", "-S", "FORWARD").Return([]byte("-P FORWARD DROP\n"), nil, nil)

	rec := &RecordingRunner{}
	reg := metrics.New()
	m := newTestManager(t, &memStore{saved: []*rules.Rule{applied}},
		NewIPTables(WithCommandRunner(cmd), WithRunner(rec.Run), WithLogger(quietLogger())),
		WithMetrics(reg))
	require.NoError(t, m.Add(fresh))

	commands, err := m.Apply(true)
	require.NoError(t, err)
	require.Len(t, commands, 2)

	require.Len(t, rec.Commands, 3)
	assert.True(t, strings.HasPrefix(rec.Commands[0], "iptables -D "), "cleanup must run first: %v", rec.Commands)
	assert.Equal(t, commands, rec.Commands[1:])

	adds := 0
	for _, c := range rec.Commands {
		if strings.Contains(c, "-A INPUT") && strings.Contains(c, "phoque-aaaaaaaa") {
			adds++
		}
	}
	assert.Equal(t, 1, adds, "previously applied rule must be added exactly once")

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.CleanupDeletions))
	assert.Equal(t, 2.0, testutil.ToFloat64(reg.Commands.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.ApplyRuns.WithLabelValues("execute", "success")))
}

func TestManager_ApplyStopsAtFirstFailure(t *testing.T) {
	a := mustRule(t, "aaaaaaaa", rules.DirectionIn, rules.ProtocolTCP, "22", rules.ActionAllow)
	b := mustRule(t, "bbbbbbbb", rules.DirectionIn, rules.ProtocolTCP, "80", rules.ActionAllow)
	c := mustRule(t, "cccccccc", rules.DirectionIn, rules.ProtocolTCP, "443", rules.ActionAllow)

	backend := NewIPTables(WithCommandRunner(emptyFilter()), WithLogger(quietLogger()))
	failing := backend.BuildAddCommand(b)

	rec := &RecordingRunner{Fail: map[string]error{failing: errors.New("iptables: Permission denied")}}
	backend = NewIPTables(WithCommandRunner(emptyFilter()), WithRunner(rec.Run), WithLogger(quietLogger()))
	m := newTestManager(t, &memStore{saved: []*rules.Rule{a, b, c}}, backend)

	done, err := m.Apply(true)

	var cerr *CommandExecutionError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, failing, cerr.Command)
	assert.Equal(t, "iptables: Permission denied", cerr.Stderr)
	assert.Equal(t, []string{backend.BuildAddCommand(a)}, done)
	assert.Equal(t, []string{backend.BuildAddCommand(a), failing}, rec.Commands, "later commands must not run")
}

func TestManager_ApplyActiveOnly(t *testing.T) {
	on := mustRule(t, "aaaaaaaa", rules.DirectionIn, rules.ProtocolTCP, "22", rules.ActionAllow)
	off := mustRule(t, "bbbbbbbb", rules.DirectionIn, rules.ProtocolTCP, "80", rules.ActionAllow)
	off.Active = false
	backend := NewIPTables(WithLogger(quietLogger()))

	m := newTestManager(t, &memStore{saved: []*rules.Rule{on, off}}, backend)
	assert.True(t, m.ActiveOnly())
	commands, err := m.Apply(false)
	require.NoError(t, err)
	assert.Equal(t, []string{backend.BuildAddCommand(on)}, commands)

	all := newTestManager(t, &memStore{saved: []*rules.Rule{on, off}}, backend, WithActiveOnly(false))
	commands, err = all.Apply(false)
	require.NoError(t, err)
	assert.Equal(t, []string{backend.BuildAddCommand(on), backend.BuildAddCommand(off)}, commands)
}

func TestManager_Diff(t *testing.T) {
	keep := mustRule(t, "aaaaaaaa", rules.DirectionIn, rules.ProtocolTCP, "22", rules.ActionAllow)
	add := mustRule(t, "bbbbbbbb", rules.DirectionIn, rules.ProtocolTCP, "80", rules.ActionAllow)

	cmd := new(MockCommandRunner)
	cmd.On("Run", "iptables", "-S", "INPUT").Return([]byte(
		"-A INPUT -p tcp -m comment --comment phoque-aaaaaaaa -j ACCEPT\n"+
			"-A INPUT -p tcp -m comment --comment phoque-dddddddd -j ACCEPT\n"), nil, nil)
	cmd.On("Run", "iptables", "-S", "OUTPUT").Return([]byte(""), nil, nil)
	cmd.On("Run", "iptables", "-S", "FORWARD").Return([]byte(""), nil, nil)

	m := newTestManager(t, &memStore{saved: []*rules.Rule{keep, add}},
		NewIPTables(WithCommandRunner(cmd), WithLogger(quietLogger())))

	diff, err := m.Diff()
	require.NoError(t, err)
	assert.Contains(t, diff, "--- applied")
	assert.Contains(t, diff, "+++ planned")
	assert.Contains(t, diff, "+phoque-bbbbbbbb")
	assert.Contains(t, diff, "-phoque-dddddddd")
	assert.NotContains(t, diff, "-phoque-aaaaaaaa")
}

func TestManager_DiffInSync(t *testing.T) {
	keep := mustRule(t, "aaaaaaaa", rules.DirectionIn, rules.ProtocolTCP, "22", rules.ActionAllow)

	cmd := new(MockCommandRunner)
	cmd.On("Run", "iptables", "-S", "INPUT").Return([]byte("-A INPUT -p tcp -m comment --comment phoque-aaaaaaaa -j ACCEPT\n"), nil, nil)
	cmd.On("Run", "iptables", "-S", "OUTPUT").Return([]byte(""), nil, nil)
	cmd.On("Run", "iptables", "-S", "FORWARD").Return([]byte(""), nil, nil)

	m := newTestManager(t, &memStore{saved: []*rules.Rule{keep}},
		NewIPTables(WithCommandRunner(cmd), WithLogger(quietLogger())))

	diff, err := m.Diff()
	require.NoError(t, err)
	assert.Empty(t, diff)
}

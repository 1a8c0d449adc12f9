package firewall

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"grimm.is/phoque/internal/logging"
	"grimm.is/phoque/internal/metrics"
	"grimm.is/phoque/internal/rules"
)

// Store persists the rule collection. Save always receives the whole
// collection and overwrites whatever was stored before.
type Store interface {
	Load() ([]*rules.Rule, error)
	Save(rules []*rules.Rule) error
}

// Manager owns the ordered rule collection, persists every mutation and
// drives apply against a Backend.
//
// Insertion order is both display order and apply order. A Manager is not
// safe for concurrent use, and two Managers applying against the same host
// filter at once will interleave unpredictably.
type Manager struct {
	rules      []*rules.Rule
	backend    Backend
	store      Store
	logger     *logging.Logger
	metrics    *metrics.Registry
	activeOnly bool
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets the manager logger.
func WithManagerLogger(l *logging.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// WithMetrics records apply runs and collection size in r.
func WithMetrics(r *metrics.Registry) ManagerOption {
	return func(m *Manager) { m.metrics = r }
}

// WithActiveOnly controls whether apply skips inactive rules. It defaults
// to true.
func WithActiveOnly(activeOnly bool) ManagerOption {
	return func(m *Manager) { m.activeOnly = activeOnly }
}

// NewManager loads the rule collection from store.
func NewManager(store Store, backend Backend, opts ...ManagerOption) (*Manager, error) {
	m := &Manager{
		backend:    backend,
		store:      store,
		activeOnly: true,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logging.WithComponent("firewall")
	}

	loaded, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	m.rules = make([]*rules.Rule, 0, len(loaded))
	for _, r := range loaded {
		m.rules = append(m.rules, r.Clone())
	}
	m.observeRules()
	return m, nil
}

// Backend returns the backend the manager applies through.
func (m *Manager) Backend() Backend {
	return m.backend
}

// ActiveOnly reports whether apply skips inactive rules.
func (m *Manager) ActiveOnly() bool {
	return m.activeOnly
}

// List returns a copy of every rule in collection order.
func (m *Manager) List() []*rules.Rule {
	out := make([]*rules.Rule, 0, len(m.rules))
	for _, r := range m.rules {
		out = append(out, r.Clone())
	}
	return out
}

// Get returns a copy of the rule named by id (full or short form).
func (m *Manager) Get(id string) (*rules.Rule, bool) {
	i := m.index(id)
	if i < 0 {
		return nil, false
	}
	return m.rules[i].Clone(), true
}

func (m *Manager) index(id string) int {
	for i, r := range m.rules {
		if r.Matches(id) {
			return i
		}
	}
	return -1
}

// commit persists next as the new collection. On failure the in-memory
// collection is left untouched so it keeps matching what is on disk.
// Rules are replaced, never mutated in place.
func (m *Manager) commit(next []*rules.Rule) error {
	if err := m.store.Save(next); err != nil {
		return fmt.Errorf("failed to save rules: %w", err)
	}
	m.rules = next
	m.observeRules()
	return nil
}

func (m *Manager) observeRules() {
	active := 0
	for _, r := range m.rules {
		if r.Active {
			active++
		}
	}
	m.metrics.SetRules(active, len(m.rules)-active)
}

// Add appends r to the collection and persists it. The short id must be
// unused too, since it names the rule in the host filter.
func (m *Manager) Add(r *rules.Rule) error {
	for _, existing := range m.rules {
		if existing.ShortID() == r.ShortID() {
			return fmt.Errorf("%w: %s", ErrDuplicateRule, r.ShortID())
		}
	}
	next := append(slices.Clone(m.rules), r.Clone())
	if err := m.commit(next); err != nil {
		return err
	}
	m.logger.Audit("rule.add", "rule:"+r.ShortID(), map[string]any{"rule": r.Summary(), "active": r.Active})
	return nil
}

// Update replaces every field of the rule named by id with those of
// replacement, keeping the original id. It returns false, without
// touching the store, when id is unknown.
func (m *Manager) Update(id string, replacement *rules.Rule) (bool, error) {
	i := m.index(id)
	if i < 0 {
		return false, nil
	}
	updated := replacement.Clone()
	updated.ID = m.rules[i].ID

	next := slices.Clone(m.rules)
	next[i] = updated
	if err := m.commit(next); err != nil {
		return false, err
	}
	m.logger.Audit("rule.update", "rule:"+updated.ShortID(), map[string]any{"rule": updated.Summary(), "active": updated.Active})
	return true, nil
}

// Remove deletes the rule named by id. It returns false, without touching
// the store, when id is unknown.
func (m *Manager) Remove(id string) (bool, error) {
	i := m.index(id)
	if i < 0 {
		return false, nil
	}
	removed := m.rules[i]
	next := slices.Delete(slices.Clone(m.rules), i, i+1)
	if err := m.commit(next); err != nil {
		return false, err
	}
	m.logger.Audit("rule.remove", "rule:"+removed.ShortID(), map[string]any{"rule": removed.Summary()})
	return true, nil
}

// Toggle flips the active flag of the rule named by id and returns the
// updated rule.
func (m *Manager) Toggle(id string) (*rules.Rule, error) {
	i := m.index(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}
	flipped := m.rules[i].Clone()
	flipped.Active = !flipped.Active

	next := slices.Clone(m.rules)
	next[i] = flipped
	if err := m.commit(next); err != nil {
		return nil, err
	}
	m.logger.Audit("rule.toggle", "rule:"+flipped.ShortID(), map[string]any{"active": flipped.Active})
	return flipped.Clone(), nil
}

// ToggleResult describes what ToggleAll did.
type ToggleResult int

const (
	// ToggleNone means the collection was empty.
	ToggleNone ToggleResult = iota
	// ToggleDeactivatedAll means every rule was active and now none is.
	ToggleDeactivatedAll
	// ToggleActivatedAll means no rule was active and now all are.
	ToggleActivatedAll
	// ToggleActivatedRemaining means the inactive rules of a mixed
	// collection were activated.
	ToggleActivatedRemaining
)

func (t ToggleResult) String() string {
	switch t {
	case ToggleDeactivatedAll:
		return "deactivated"
	case ToggleActivatedAll:
		return "activated"
	case ToggleActivatedRemaining:
		return "activated (remaining)"
	default:
		return "unchanged"
	}
}

// PendingToggle reports what ToggleAll would do right now.
func (m *Manager) PendingToggle() ToggleResult {
	if len(m.rules) == 0 {
		return ToggleNone
	}
	active := 0
	for _, r := range m.rules {
		if r.Active {
			active++
		}
	}
	switch active {
	case len(m.rules):
		return ToggleDeactivatedAll
	case 0:
		return ToggleActivatedAll
	default:
		return ToggleActivatedRemaining
	}
}

// ToggleAll deactivates every rule when all are active and otherwise
// activates every inactive rule. The collection is persisted once.
func (m *Manager) ToggleAll() (ToggleResult, error) {
	result := m.PendingToggle()
	if result == ToggleNone {
		return result, nil
	}
	target := result != ToggleDeactivatedAll

	next := make([]*rules.Rule, 0, len(m.rules))
	for _, r := range m.rules {
		c := r.Clone()
		c.Active = target
		next = append(next, c)
	}
	if err := m.commit(next); err != nil {
		return ToggleNone, err
	}
	m.logger.Audit("rule.toggle_all", "rules", map[string]any{"result": result.String(), "count": len(next)})
	return result, nil
}

// applicable returns the rules apply would install, in collection order.
func (m *Manager) applicable() []*rules.Rule {
	if !m.activeOnly {
		return m.rules
	}
	out := make([]*rules.Rule, 0, len(m.rules))
	for _, r := range m.rules {
		if r.Active {
			out = append(out, r)
		}
	}
	return out
}

// Plan returns the add commands apply would execute, in order.
func (m *Manager) Plan() []string {
	selected := m.applicable()
	commands := make([]string, 0, len(selected))
	for _, r := range selected {
		commands = append(commands, m.backend.BuildAddCommand(r))
	}
	return commands
}

// Apply builds one add command per applicable rule. With execute false the
// commands are only returned. With execute true every rule phoque applied
// before is swept away first, then the commands run in order. The first
// failing command stops the run: it is returned as *CommandExecutionError
// together with the commands that did succeed, whose effect is kept.
func (m *Manager) Apply(execute bool) ([]string, error) {
	commands := m.Plan()
	if !execute {
		m.logger.Debug("dry run", "commands", len(commands))
		m.metrics.ObserveApply(false, true)
		return commands, nil
	}

	deleted := m.backend.Cleanup()
	m.metrics.ObserveCleanup(deleted)

	for i, command := range commands {
		if err := m.backend.Execute(command, false); err != nil {
			m.metrics.ObserveCommand(false)
			m.metrics.ObserveApply(true, false)
			m.logger.Error("apply halted", "command", command, "applied", i, "skipped", len(commands)-i-1, "error", err)
			return commands[:i], err
		}
		m.metrics.ObserveCommand(true)
	}

	m.metrics.ObserveApply(true, true)
	m.logger.Audit("rules.apply", m.backend.Name(), map[string]any{"commands": len(commands), "cleaned": deleted})
	return commands, nil
}

// Diff compares the tags present in the host filter with the tags apply
// would install and returns a unified diff, or "" when they agree.
func (m *Manager) Diff() (string, error) {
	applied, err := m.backend.Applied()
	if err != nil {
		return "", fmt.Errorf("failed to read applied rules: %w", err)
	}

	planned := make([]string, 0, len(m.rules))
	for _, r := range m.applicable() {
		planned = append(planned, r.Tag())
	}

	diff := difflib.UnifiedDiff{
		A:        tagLines(applied),
		B:        tagLines(planned),
		FromFile: "applied",
		ToFile:   "planned",
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(diff)
}

func tagLines(tags []string) []string {
	sorted := slices.Clone(tags)
	sort.Strings(sorted)
	sorted = slices.Compact(sorted)
	lines := make([]string, 0, len(sorted))
	for _, t := range sorted {
		lines = append(lines, strings.TrimSpace(t)+"\n")
	}
	return lines
}

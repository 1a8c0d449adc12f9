package rules

import (
	"strings"

	"github.com/google/uuid"

	"grimm.is/phoque/internal/brand"
)

// Rule is one validated filter intent.
type Rule struct {
	ID        uuid.UUID
	Direction Direction
	Protocol  Protocol
	Port      Port
	Action    Action
	Active    bool
}

// New validates its arguments and returns an active Rule with a fresh id.
// Any port given for an ICMP rule is discarded.
func New(direction Direction, protocol Protocol, port string, action Action) (*Rule, error) {
	return Restore(uuid.New(), direction, protocol, port, action, true)
}

// Restore rebuilds a Rule with a known id, applying the same validation as
// New. It is used when decoding stored rules.
func Restore(id uuid.UUID, direction Direction, protocol Protocol, port string, action Action, active bool) (*Rule, error) {
	if id == uuid.Nil {
		return nil, &ValidationError{Field: "id", Reason: "must not be empty"}
	}
	d, err := ParseDirection(string(direction))
	if err != nil {
		return nil, err
	}
	p, err := ParseProtocol(string(protocol))
	if err != nil {
		return nil, err
	}
	a, err := ParseAction(string(action))
	if err != nil {
		return nil, err
	}

	normalized := NoPort
	if p.HasPorts() {
		normalized, err = ParsePort(port)
		if err != nil {
			return nil, err
		}
		if !normalized.IsSet() {
			return nil, &ValidationError{Field: "port", Reason: "port is required for TCP and UDP rules"}
		}
	}

	return &Rule{
		ID:        id,
		Direction: d,
		Protocol:  p,
		Port:      normalized,
		Action:    a,
		Active:    active,
	}, nil
}

// ShortID returns the first segment of the rule id.
func (r *Rule) ShortID() string {
	s := r.ID.String()
	if i := strings.IndexByte(s, '-'); i >= 0 {
		return s[:i]
	}
	return s
}

// Tag returns the marker embedded in generated commands so phoque can
// recognize the rules it applied.
func (r *Rule) Tag() string {
	return brand.TagPrefix + r.ShortID()
}

// Matches reports whether id names this rule, either as the full id or as
// its short form.
func (r *Rule) Matches(id string) bool {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return false
	}
	return id == r.ID.String() || id == r.ShortID()
}

// Clone returns a copy of the rule.
func (r *Rule) Clone() *Rule {
	c := *r
	return &c
}

// Summary renders the rule for logs and messages, e.g. "ALLOW IN TCP 80".
func (r *Rule) Summary() string {
	parts := []string{string(r.Action), string(r.Direction), string(r.Protocol)}
	if r.Port.IsSet() {
		parts = append(parts, r.Port.String())
	}
	return strings.Join(parts, " ")
}

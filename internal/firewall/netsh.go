package firewall

import (
	"sort"
	"strconv"
	"strings"

	"grimm.is/phoque/internal/brand"
	"grimm.is/phoque/internal/rules"
)

const netshBin = "netsh"

// Netsh drives the Windows Firewall rule store through
// "netsh advfirewall". Rules are recognized by name.
//
// The mapping is lossy: DENY and REJECT both become "block", and FORWARD
// has no Windows equivalent so it is installed as an inbound rule.
type Netsh struct {
	exec executor
}

// NewNetsh returns the Windows backend.
func NewNetsh(opts ...Option) *Netsh {
	e := newExecutor("netsh", opts)
	e.stdoutErrors = true
	return &Netsh{exec: e}
}

func (b *Netsh) Name() string { return "netsh" }

func netshDirection(d rules.Direction) string {
	if d == rules.DirectionOut {
		return "out"
	}
	return "in"
}

func netshAction(a rules.Action) string {
	if a == rules.ActionAllow {
		return "allow"
	}
	return "block"
}

func netshProtocol(p rules.Protocol) string {
	if p == rules.ProtocolICMP {
		return "icmpv4"
	}
	return p.Lower()
}

// netshPort renders ranges with netsh's '-' separator.
func netshPort(p rules.Port) string {
	start, end := p.Bounds()
	if p.IsRange() {
		return strconv.Itoa(start) + "-" + strconv.Itoa(end)
	}
	return strconv.Itoa(start)
}

func netshDelete(name string) string {
	return netshBin + ` advfirewall firewall delete rule name="` + name + `"`
}

func (b *Netsh) BuildAddCommand(r *rules.Rule) string {
	parts := []string{
		netshBin, "advfirewall", "firewall", "add", "rule",
		`name="` + r.Tag() + `"`,
		"dir=" + netshDirection(r.Direction),
		"action=" + netshAction(r.Action),
		"protocol=" + netshProtocol(r.Protocol),
	}
	if r.Protocol.HasPorts() && r.Port.IsSet() && !r.Port.IsWildcard() {
		parts = append(parts, "localport="+netshPort(r.Port))
	}
	parts = append(parts, "enable=yes")
	return strings.Join(parts, " ")
}

// BuildDeleteCommand matches by rule name only.
func (b *Netsh) BuildDeleteCommand(r *rules.Rule) string {
	return netshDelete(r.Tag())
}

func (b *Netsh) Execute(command string, ignoreErrors bool) error {
	return b.exec.execute(command, ignoreErrors)
}

// ruleNames scans the free-text rule report for "<label>: <value>" lines
// whose value carries the tag prefix. Labels are localized, so only the
// value is inspected.
func (b *Netsh) ruleNames() ([]string, error) {
	lines, err := b.exec.list(netshBin, "advfirewall", "firewall", "show", "rule", "name=all")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	for _, line := range lines {
		_, value, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if strings.HasPrefix(value, brand.TagPrefix) {
			seen[value] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Cleanup deletes every phoque rule by name, ignoring failures.
func (b *Netsh) Cleanup() int {
	names, err := b.ruleNames()
	if err != nil {
		b.exec.logger.Warn("cannot list firewall rules, skipping cleanup", "error", err)
		return 0
	}
	for _, name := range names {
		_ = b.exec.execute(netshDelete(name), true)
	}
	if len(names) > 0 {
		b.exec.logger.Info("removed previously applied rules", "count", len(names))
	}
	return len(names)
}

func (b *Netsh) Applied() ([]string, error) {
	return b.ruleNames()
}

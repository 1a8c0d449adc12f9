package firewall

import (
	"regexp"
	"strconv"
	"strings"

	"grimm.is/phoque/internal/brand"
	"grimm.is/phoque/internal/rules"
)

const iptablesBin = "iptables"

// iptablesChains are swept in this order during cleanup.
var iptablesChains = []string{"INPUT", "OUTPUT", "FORWARD"}

var iptablesCommentRe = regexp.MustCompile(`--comment "?(` + regexp.QuoteMeta(brand.TagPrefix) + `[^"\s]+)"?`)

// IPTables drives the Linux iptables rule list. Rules are recognized by
// a comment carrying their tag.
type IPTables struct {
	exec executor
}

// NewIPTables returns the Linux backend.
func NewIPTables(opts ...Option) *IPTables {
	return &IPTables{exec: newExecutor("iptables", opts)}
}

func (b *IPTables) Name() string { return "iptables" }

func iptablesChain(d rules.Direction) string {
	switch d {
	case rules.DirectionOut:
		return "OUTPUT"
	case rules.DirectionForward:
		return "FORWARD"
	default:
		return "INPUT"
	}
}

func iptablesTarget(a rules.Action) string {
	switch a {
	case rules.ActionDeny:
		return "DROP"
	case rules.ActionReject:
		return "REJECT"
	default:
		return "ACCEPT"
	}
}

// iptablesPort renders ranges with iptables' ':' separator.
func iptablesPort(p rules.Port) string {
	start, end := p.Bounds()
	if p.IsRange() {
		return strconv.Itoa(start) + ":" + strconv.Itoa(end)
	}
	return strconv.Itoa(start)
}

func (b *IPTables) BuildAddCommand(r *rules.Rule) string {
	parts := []string{iptablesBin, "-A", iptablesChain(r.Direction), "-p", r.Protocol.Lower()}
	if r.Protocol.HasPorts() && r.Port.IsSet() && !r.Port.IsWildcard() {
		parts = append(parts, "--dport", iptablesPort(r.Port))
	}
	parts = append(parts, "-m", "comment", "--comment", r.Tag(), "-j", iptablesTarget(r.Action))
	return strings.Join(parts, " ")
}

// BuildDeleteCommand keeps every match criterion so iptables can locate
// the exact rule.
func (b *IPTables) BuildDeleteCommand(r *rules.Rule) string {
	return strings.Replace(b.BuildAddCommand(r), iptablesBin+" -A", iptablesBin+" -D", 1)
}

func (b *IPTables) Execute(command string, ignoreErrors bool) error {
	return b.exec.execute(command, ignoreErrors)
}

// taggedRules returns the phoque rules of one chain in "-A ..." form.
func (b *IPTables) taggedRules(chain string) ([]string, error) {
	lines, err := b.exec.list(iptablesBin, "-S", chain)
	if err != nil {
		return nil, err
	}
	var tagged []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "-A") {
			continue
		}
		if !strings.Contains(line, "comment "+brand.TagPrefix) && !strings.Contains(line, `comment "`+brand.TagPrefix) {
			continue
		}
		tagged = append(tagged, line)
	}
	return tagged, nil
}

// Cleanup deletes every tagged rule from INPUT, OUTPUT and FORWARD. A chain
// that cannot be listed is skipped; a rule may vanish between listing and
// deletion, so deletion failures are ignored.
func (b *IPTables) Cleanup() int {
	deleted := 0
	for _, chain := range iptablesChains {
		tagged, err := b.taggedRules(chain)
		if err != nil {
			b.exec.logger.Warn("skipping chain during cleanup", "chain", chain, "error", err)
			continue
		}
		for _, line := range tagged {
			cmd := iptablesBin + " " + strings.Replace(line, "-A", "-D", 1)
			_ = b.exec.execute(cmd, true)
			deleted++
		}
	}
	if deleted > 0 {
		b.exec.logger.Info("removed previously applied rules", "count", deleted)
	}
	return deleted
}

func (b *IPTables) Applied() ([]string, error) {
	var tags []string
	for _, chain := range iptablesChains {
		tagged, err := b.taggedRules(chain)
		if err != nil {
			return nil, err
		}
		for _, line := range tagged {
			if m := iptablesCommentRe.FindStringSubmatch(line); m != nil {
				tags = append(tags, m[1])
			}
		}
	}
	return tags, nil
}

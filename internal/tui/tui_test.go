package tui

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"grimm.is/phoque/internal/i18n"
	"grimm.is/phoque/internal/rules"
)

func TestRenderTable(t *testing.T) {
	web, err := rules.Restore(uuid.MustParse("1a2b3c4d-0000-4000-8000-000000000000"),
		rules.DirectionIn, rules.ProtocolTCP, "1000-2000", rules.ActionAllow, true)
	require.NoError(t, err)
	ping, err := rules.Restore(uuid.MustParse("5e6f7a8b-0000-4000-8000-000000000000"),
		rules.DirectionOut, rules.ProtocolICMP, "", rules.ActionDeny, false)
	require.NoError(t, err)

	out := RenderTable([]*rules.Rule{web, ping}, i18n.NewPrinter(language.English))
	for _, want := range []string{"ID", "Direction", "Protocol", "Port", "Action", "Active",
		"1a2b3c4d", "1000:2000", "ALLOW", "5e6f7a8b", "ICMP", "DENY", "yes", "no"} {
		assert.Contains(t, out, want)
	}
	assert.Less(t, strings.Index(out, "1a2b3c4d"), strings.Index(out, "5e6f7a8b"), "collection order")

	fr := RenderTable([]*rules.Rule{web}, i18n.NewPrinter(language.French))
	assert.Contains(t, fr, "Protocole")
	assert.Contains(t, fr, "oui")
}

func TestRuleInputBuild(t *testing.T) {
	r, err := RuleInput{Direction: "in", Protocol: "tcp", Port: "80", Action: "allow"}.Build()
	require.NoError(t, err)
	assert.True(t, r.Active)
	assert.Equal(t, rules.DirectionIn, r.Direction)

	staged, err := RuleInput{Direction: "OUT", Protocol: "ICMP", Port: "80", Action: "DENY", Stage: true}.Build()
	require.NoError(t, err)
	assert.False(t, staged.Active)
	assert.False(t, staged.Port.IsSet())

	_, err = RuleInput{Direction: "IN", Protocol: "UDP", Action: "ALLOW"}.Build()
	var verr *rules.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestRuleInputOf(t *testing.T) {
	r, err := rules.New(rules.DirectionForward, rules.ProtocolUDP, "53", rules.ActionReject)
	require.NoError(t, err)
	r.Active = false

	in := RuleInputOf(r)
	assert.Equal(t, RuleInput{Direction: "FORWARD", Protocol: "UDP", Port: "53", Action: "REJECT", Stage: true}, in)
}

func TestValidatePort(t *testing.T) {
	in := &RuleInput{Protocol: "TCP"}
	assert.NoError(t, in.validatePort("80"))
	assert.NoError(t, in.validatePort("*"))
	assert.NoError(t, in.validatePort("1000-2000"))
	assert.Error(t, in.validatePort(""))
	assert.Error(t, in.validatePort("2000-1000"))
	assert.Error(t, in.validatePort("http"))

	in.Protocol = "ICMP"
	assert.NoError(t, in.validatePort("anything"))
}

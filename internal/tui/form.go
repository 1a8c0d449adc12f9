// Package tui holds the interactive rule forms and the rule table.
package tui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"golang.org/x/text/message"

	"grimm.is/phoque/internal/i18n"
	"grimm.is/phoque/internal/rules"
)

// RuleInput holds the raw answers of a rule form.
type RuleInput struct {
	Direction string
	Protocol  string
	Port      string
	Action    string
	Stage     bool
}

// RuleInputOf pre-fills a form from an existing rule.
func RuleInputOf(r *rules.Rule) RuleInput {
	return RuleInput{
		Direction: string(r.Direction),
		Protocol:  string(r.Protocol),
		Port:      r.Port.String(),
		Action:    string(r.Action),
		Stage:     !r.Active,
	}
}

// Build validates the answers and returns a new rule. Staged rules start
// inactive.
func (in RuleInput) Build() (*rules.Rule, error) {
	r, err := rules.New(rules.Direction(in.Direction), rules.Protocol(in.Protocol), in.Port, rules.Action(in.Action))
	if err != nil {
		return nil, err
	}
	r.Active = !in.Stage
	return r, nil
}

// validatePort checks a port answer against the protocol picked so far.
func (in *RuleInput) validatePort(s string) error {
	p, err := rules.ParseProtocol(in.Protocol)
	if err != nil || !p.HasPorts() {
		return nil
	}
	port, err := rules.ParsePort(s)
	if err != nil {
		return err
	}
	if !port.IsSet() {
		return errors.New("port is required for TCP and UDP rules")
	}
	return nil
}

func options[T ~string](values []T) []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(values))
	for _, v := range values {
		opts = append(opts, huh.NewOption(string(v), string(v)))
	}
	return opts
}

// RuleForm builds the add/edit form bound to in.
func RuleForm(in *RuleInput, title string, p *message.Printer) *huh.Form {
	fields := []huh.Field{
		huh.NewNote().Title(title),
		huh.NewSelect[string]().
			Title(p.Sprintf(i18n.MsgHeaderDirection)).
			Options(options(rules.Directions)...).
			Value(&in.Direction),
		huh.NewSelect[string]().
			Title(p.Sprintf(i18n.MsgHeaderProtocol)).
			Options(options(rules.Protocols)...).
			Value(&in.Protocol),
		huh.NewInput().
			Title(p.Sprintf(i18n.MsgHeaderPort)).
			Description(p.Sprintf(i18n.MsgFormPortHint)).
			Validate(in.validatePort).
			Value(&in.Port),
		huh.NewSelect[string]().
			Title(p.Sprintf(i18n.MsgHeaderAction)).
			Options(options(rules.Actions)...).
			Value(&in.Action),
		huh.NewConfirm().
			Title(p.Sprintf(i18n.MsgFormStage)).
			Affirmative(p.Sprintf(i18n.MsgYes)).
			Negative(p.Sprintf(i18n.MsgNo)).
			Value(&in.Stage),
	}

	return huh.NewForm(
		huh.NewGroup(fields...),
	).WithTheme(huh.ThemeBase16())
}

// AskRule runs the rule form and returns the resulting rule.
func AskRule(in RuleInput, title string, p *message.Printer) (*rules.Rule, error) {
	if err := RuleForm(&in, title, p).Run(); err != nil {
		return nil, fmt.Errorf("rule form: %w", err)
	}
	return in.Build()
}

// Confirm asks a yes/no question. It defaults to no.
func Confirm(title string, p *message.Printer) (bool, error) {
	var ok bool
	err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(title).
			Affirmative(p.Sprintf(i18n.MsgYes)).
			Negative(p.Sprintf(i18n.MsgNo)).
			Value(&ok),
	)).WithTheme(huh.ThemeBase16()).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}

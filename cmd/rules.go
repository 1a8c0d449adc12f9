package cmd

import (
	"errors"
	"fmt"

	"grimm.is/phoque/internal/firewall"
	"grimm.is/phoque/internal/i18n"
	"grimm.is/phoque/internal/rules"
	"grimm.is/phoque/internal/tui"
)

// RunList prints the rule table.
func RunList(configFile string) error {
	s, err := openSession(configFile)
	if err != nil {
		return err
	}
	defer s.close()

	rs := s.manager.List()
	if len(rs) == 0 {
		Printer.Fprintf(Stdout, i18n.MsgNoRules)
		return nil
	}
	fmt.Fprintln(Stdout, tui.RenderTable(rs, Printer))
	return nil
}

// RunAdd creates a rule from in, or from the interactive form when
// interactive is set. The rule is stored but not applied.
func RunAdd(configFile string, in tui.RuleInput, interactive bool) error {
	s, err := openSession(configFile)
	if err != nil {
		return err
	}
	defer s.close()

	rule, err := buildRule(in, Printer.Sprintf(i18n.MsgFormTitleAdd), interactive)
	if err != nil {
		return err
	}
	if err := s.manager.Add(rule); err != nil {
		return err
	}

	msg := i18n.MsgRuleAdded
	if !rule.Active {
		msg = i18n.MsgRuleStaged
	}
	Printer.Fprintf(Stdout, msg, rule.ShortID(), rule.Summary())
	return nil
}

// RuleChanges lists the fields an edit overrides. Nil fields keep their
// current value.
type RuleChanges struct {
	Direction *string
	Protocol  *string
	Port      *string
	Action    *string
	Active    *bool
}

func (c RuleChanges) applyTo(in *tui.RuleInput) {
	if c.Direction != nil {
		in.Direction = *c.Direction
	}
	if c.Protocol != nil {
		in.Protocol = *c.Protocol
	}
	if c.Port != nil {
		in.Port = *c.Port
	}
	if c.Action != nil {
		in.Action = *c.Action
	}
	if c.Active != nil {
		in.Stage = !*c.Active
	}
}

// RunEdit replaces the fields of the rule named by id. The id never
// changes.
func RunEdit(configFile, id string, changes RuleChanges, interactive bool) error {
	s, err := openSession(configFile)
	if err != nil {
		return err
	}
	defer s.close()

	current, ok := s.manager.Get(id)
	if !ok {
		Printer.Fprintf(Stdout, i18n.MsgRuleNotFound, id)
		return fmt.Errorf("%w: %s", firewall.ErrRuleNotFound, id)
	}

	in := tui.RuleInputOf(current)
	changes.applyTo(&in)
	replacement, err := buildRule(in, Printer.Sprintf(i18n.MsgFormTitleEdit, current.ShortID()), interactive)
	if err != nil {
		return err
	}

	if _, err := s.manager.Update(id, replacement); err != nil {
		return err
	}
	Printer.Fprintf(Stdout, i18n.MsgRuleUpdated, current.ShortID(), replacement.Summary())
	return nil
}

// RunRemove deletes the rule named by id after confirmation, unless yes is
// set.
func RunRemove(configFile, id string, yes bool) error {
	s, err := openSession(configFile)
	if err != nil {
		return err
	}
	defer s.close()

	current, ok := s.manager.Get(id)
	if !ok {
		Printer.Fprintf(Stdout, i18n.MsgRuleNotFound, id)
		return fmt.Errorf("%w: %s", firewall.ErrRuleNotFound, id)
	}

	if !yes {
		confirmed, err := tui.Confirm(Printer.Sprintf(i18n.MsgConfirmRemove, current.ShortID()), Printer)
		if err != nil {
			return err
		}
		if !confirmed {
			Printer.Fprintf(Stdout, i18n.MsgCancelled)
			return nil
		}
	}

	if _, err := s.manager.Remove(id); err != nil {
		return err
	}
	Printer.Fprintf(Stdout, i18n.MsgRuleRemoved, current.ShortID())
	return nil
}

// RunToggle flips one rule and applies the result.
func RunToggle(configFile, id string) error {
	s, err := openSession(configFile)
	if err != nil {
		return err
	}
	defer s.close()

	rule, err := s.manager.Toggle(id)
	if errors.Is(err, firewall.ErrRuleNotFound) {
		Printer.Fprintf(Stdout, i18n.MsgRuleNotFound, id)
	}
	if err != nil {
		return err
	}
	if rule.Active {
		Printer.Fprintf(Stdout, i18n.MsgRuleNowActive, rule.ShortID())
	} else {
		Printer.Fprintf(Stdout, i18n.MsgRuleNowInactive, rule.ShortID())
	}
	return apply(s)
}

// RunToggleAll deactivates every rule when all are active, otherwise
// activates the inactive ones, then applies.
func RunToggleAll(configFile string) error {
	s, err := openSession(configFile)
	if err != nil {
		return err
	}
	defer s.close()

	result, err := s.manager.ToggleAll()
	if err != nil {
		return err
	}
	switch result {
	case firewall.ToggleNone:
		Printer.Fprintf(Stdout, i18n.MsgToggleNone)
		return nil
	case firewall.ToggleDeactivatedAll:
		Printer.Fprintf(Stdout, i18n.MsgToggleDeactivated)
	case firewall.ToggleActivatedAll:
		Printer.Fprintf(Stdout, i18n.MsgToggleActivated)
	case firewall.ToggleActivatedRemaining:
		Printer.Fprintf(Stdout, i18n.MsgToggleRemaining)
	}
	return apply(s)
}

func buildRule(in tui.RuleInput, title string, interactive bool) (*rules.Rule, error) {
	if interactive {
		return tui.AskRule(in, title, Printer)
	}
	return in.Build()
}

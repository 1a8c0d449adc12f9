package cmd

import (
	"fmt"

	"grimm.is/phoque/internal/i18n"
)

// RunApply installs the rule list into the host filter. With dryRun the
// commands are printed and nothing is executed.
func RunApply(configFile string, dryRun bool) error {
	s, err := openSession(configFile)
	if err != nil {
		return err
	}
	defer s.close()

	if dryRun {
		commands, err := s.manager.Apply(false)
		if err != nil {
			return err
		}
		for _, c := range commands {
			fmt.Fprintln(Stdout, c)
		}
		Printer.Fprintf(Stdout, i18n.MsgDryRun, len(commands))
		return nil
	}
	return apply(s)
}

func apply(s *session) error {
	done, err := s.manager.Apply(true)
	for _, c := range done {
		fmt.Fprintln(Stdout, c)
	}
	if err != nil {
		Printer.Fprintf(Stdout, i18n.MsgApplyFailed, len(done))
		return err
	}
	Printer.Fprintf(Stdout, i18n.MsgApplied, len(done), s.backend.Name())
	return nil
}

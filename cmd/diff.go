package cmd

import (
	"fmt"

	"grimm.is/phoque/internal/i18n"
)

// RunDiff compares the rules present in the host filter with the rules
// apply would install.
func RunDiff(configFile string) error {
	s, err := openSession(configFile)
	if err != nil {
		return err
	}
	defer s.close()

	diff, err := s.manager.Diff()
	if err != nil {
		return err
	}
	if diff == "" {
		Printer.Fprintf(Stdout, i18n.MsgInSync)
		return nil
	}
	fmt.Fprint(Stdout, diff)
	return nil
}

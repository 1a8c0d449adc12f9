package cmd

import (
	"grimm.is/phoque/internal/config"
	"grimm.is/phoque/internal/i18n"
)

// RunCheck validates the configuration and the stored rules without
// touching the host filter. With verbose the effective configuration is
// printed as HCL.
func RunCheck(configFile string, verbose bool) error {
	s, err := openSession(configFile)
	if err != nil {
		return err
	}
	defer s.close()

	Printer.Fprintf(Stdout, i18n.MsgConfigOK, s.cfg.Store, s.cfg.RulesFile, s.backend.Name())
	if verbose {
		Stdout.Write(config.Encode(s.cfg))
	}
	return nil
}

// Package storage persists the phoque rule collection.
//
// Two stores are available: a JSON file, which is the default and matches
// the record format phoque has always written, and a SQLite database for
// hosts that prefer a single transactional file.
package storage

import (
	"fmt"

	"grimm.is/phoque/internal/firewall"
	"grimm.is/phoque/internal/logging"
)

// Driver names accepted by Open.
const (
	DriverJSON   = "json"
	DriverSQLite = "sqlite"
)

// Open returns the store for driver at path.
func Open(driver, path string, logger *logging.Logger) (firewall.Store, error) {
	if logger == nil {
		logger = logging.WithComponent("storage")
	}
	switch driver {
	case DriverJSON, "":
		return &JSONFile{Path: path, Logger: logger}, nil
	case DriverSQLite:
		return &SQLite{Path: path, Logger: logger}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

// reportDropped logs every record that could not be decoded.
func reportDropped(logger *logging.Logger, source string, dropped []error) {
	for _, err := range dropped {
		logger.Warn("dropping malformed rule record", "source", source, "error", err)
	}
}

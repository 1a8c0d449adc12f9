package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"grimm.is/phoque/internal/logging"
	"grimm.is/phoque/internal/rules"
)

// JSONFile stores the collection as an indented JSON array of records.
type JSONFile struct {
	Path   string
	Logger *logging.Logger
}

func (s *JSONFile) logger() *logging.Logger {
	if s.Logger == nil {
		return logging.WithComponent("storage")
	}
	return s.Logger
}

// Load reads the collection. A missing file is an empty collection; a file
// that is not a JSON array is an error, so a later Save cannot wipe it.
func (s *JSONFile) Load() ([]*rules.Rule, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return []*rules.Rule{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	loaded, dropped, err := rules.DecodeRecords(data)
	if err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", s.Path, err)
	}
	reportDropped(s.logger(), s.Path, dropped)
	return loaded, nil
}

// Save overwrites the file with the whole collection. The data is written
// to a temporary file in the same directory and renamed into place.
func (s *JSONFile) Save(rs []*rules.Rule) error {
	data, err := rules.EncodeRecords(rs)
	if err != nil {
		return fmt.Errorf("encode rules: %w", err)
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create rules dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.Path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write rules: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync rules: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close rules: %w", err)
	}
	if err := os.Chmod(tmpName, 0o640); err != nil {
		return fmt.Errorf("chmod rules: %w", err)
	}
	if err := os.Rename(tmpName, s.Path); err != nil {
		return fmt.Errorf("replace rules file: %w", err)
	}
	return nil
}

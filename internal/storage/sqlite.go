package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"grimm.is/phoque/internal/logging"
	"grimm.is/phoque/internal/rules"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS rules (
		position INTEGER NOT NULL,
		id TEXT PRIMARY KEY,
		record TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_rules_position ON rules(position);
`

// SQLite stores one row per rule, each holding the JSON record, ordered by
// position. The database is opened per call; phoque runs one command and
// exits.
type SQLite struct {
	Path   string
	Logger *logging.Logger
}

func (s *SQLite) logger() *logging.Logger {
	if s.Logger == nil {
		return logging.WithComponent("storage")
	}
	return s.Logger
}

func (s *SQLite) open() (*sql.DB, error) {
	if s.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(s.Path), 0o750); err != nil {
			return nil, fmt.Errorf("create rules dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", s.Path)
	if err != nil {
		return nil, fmt.Errorf("open rules db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect rules db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create rules table: %w", err)
	}
	return db, nil
}

// Load returns the collection in position order.
func (s *SQLite) Load() ([]*rules.Rule, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(`SELECT id, record FROM rules ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var records []json.RawMessage
	var corrupt []error
	for rows.Next() {
		var id, record string
		if err := rows.Scan(&id, &record); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		if !json.Valid([]byte(record)) {
			corrupt = append(corrupt, fmt.Errorf("row %s: record is not valid JSON", id))
			continue
		}
		records = append(records, json.RawMessage(record))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}
	if len(records) == 0 {
		reportDropped(s.logger(), s.Path, corrupt)
		return []*rules.Rule{}, nil
	}

	// Rows are decoded as one array so malformed and duplicate records are
	// handled exactly like the JSON store.
	doc, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("assemble rules: %w", err)
	}
	loaded, dropped, err := rules.DecodeRecords(doc)
	if err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	reportDropped(s.logger(), s.Path, append(corrupt, dropped...))
	return loaded, nil
}

// Save replaces every row in a single transaction.
func (s *SQLite) Save(rs []*rules.Rule) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM rules`); err != nil {
		return fmt.Errorf("clear rules: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO rules (position, id, record) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range rs {
		record, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode rule %s: %w", r.ShortID(), err)
		}
		if _, err := stmt.Exec(i, r.ID.String(), string(record)); err != nil {
			return fmt.Errorf("insert rule %s: %w", r.ShortID(), err)
		}
	}
	return tx.Commit()
}

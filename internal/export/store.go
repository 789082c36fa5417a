// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vimarian/mirage/pkg/table"
)

// Store manages the SQLite exposure index.
type Store struct {
	db *sql.DB
}

// indexedColumns are the exposure-table columns mirrored into SQLite,
// in schema order. Columns missing from a given run are stored as the
// "None" sentinel.
var indexedColumns = []string{
	"observation_id", "visit_id", "obs_num", "visit_num", "act_id",
	"Instrument", "detector", "aperture", "exposure", "dither",
	"ra_ref", "dec_ref",
}

// OpenStore opens or creates the exposure index database at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening exposure index: %w", err)
	}
	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating exposure index schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS exposures (
			observation_id TEXT NOT NULL,
			visit_id TEXT NOT NULL,
			obs_num TEXT,
			visit_num TEXT,
			act_id TEXT,
			instrument TEXT,
			detector TEXT,
			aperture TEXT,
			exposure TEXT,
			dither TEXT,
			ra_ref TEXT,
			dec_ref TEXT,
			PRIMARY KEY (observation_id, detector)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_exposures_visit_id ON exposures(visit_id)`,
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at TEXT NOT NULL,
			xml_file TEXT,
			pointing_file TEXT,
			n_exposures INTEGER
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// IndexExposures records one pipeline run: a runs row plus one
// exposures row per table row. Detector expansion leaves every detector
// row of an exposure sharing one observation id, so the exposure key is
// (observation_id, detector); re-running the same proposal replaces its
// prior rows.
func (s *Store) IndexExposures(ctx context.Context, tab *table.Table, xmlFile, pointingFile string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting index transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (created_at, xml_file, pointing_file, n_exposures) VALUES (?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339), xmlFile, pointingFile, tab.Len(),
	); err != nil {
		return fmt.Errorf("recording run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO exposures
		 (observation_id, visit_id, obs_num, visit_num, act_id, instrument,
		  detector, aperture, exposure, dither, ra_ref, dec_ref)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing exposure insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(indexedColumns))
	for i := 0; i < tab.Len(); i++ {
		for j, name := range indexedColumns {
			if tab.Has(name) {
				args[j] = tab.Value(name, i)
			} else {
				args[j] = table.None
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("indexing exposure row %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// CountExposures returns the number of indexed exposures.
func (s *Store) CountExposures(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM exposures`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting exposures: %w", err)
	}
	return n, nil
}

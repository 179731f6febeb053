// Package annotations persists user state (status and notes) for
// recommendations across collection cycles. Recommendations are rebuilt
// by value every cycle; annotations are the only persisted-by-reference
// state, keyed by the same identity key and merged back in after each
// rebuild.
package annotations

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/finopshub/advisor/pkg/errors"
	"github.com/finopshub/advisor/pkg/recommend"
)

// Store provides persistence for annotations in a SQLite database.
type Store struct {
	conn   *sql.DB
	dbPath string
}

// Open opens or creates the annotations database under dataDir.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, errors.NewConfigError("annotations", "failed to create data directory", err)
	}

	dbPath := filepath.Join(dataDir, "annotations.db")
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.NewConfigError("annotations", "failed to open database", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, errors.NewConfigError("annotations", "failed to set pragma", err)
		}
	}

	store := &Store{conn: conn, dbPath: dbPath}
	if err := store.initializeSchema(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) initializeSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS annotations (
			key        TEXT PRIMARY KEY,
			status     TEXT NOT NULL,
			notes      TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMP NOT NULL
		)`
	if _, err := s.conn.Exec(schema); err != nil {
		return errors.NewConfigError("annotations", "failed to initialize schema", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Annotation is the user state attached to one identity key.
type Annotation struct {
	Key       string
	Status    recommend.Status
	Notes     string
	UpdatedAt time.Time
}

// Set upserts the annotation for an identity key.
func (s *Store) Set(key string, status recommend.Status, notes string) error {
	if !status.Valid() {
		return errors.NewValidationError("status", status, "unknown status")
	}
	_, err := s.conn.Exec(`
		INSERT INTO annotations (key, status, notes, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			status = excluded.status,
			notes = excluded.notes,
			updated_at = excluded.updated_at`,
		key, string(status), notes, time.Now().UTC())
	return err
}

// Get returns the annotation for a key, or ErrNotFound.
func (s *Store) Get(key string) (*Annotation, error) {
	row := s.conn.QueryRow(
		`SELECT key, status, notes, updated_at FROM annotations WHERE key = ?`, key)

	var a Annotation
	var status string
	if err := row.Scan(&a.Key, &status, &a.Notes, &a.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrNotFound
		}
		return nil, err
	}
	a.Status = recommend.Status(status)
	return &a, nil
}

// All returns every stored annotation keyed by identity key.
func (s *Store) All() (map[string]Annotation, error) {
	rows, err := s.conn.Query(`SELECT key, status, notes, updated_at FROM annotations`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]Annotation)
	for rows.Next() {
		var a Annotation
		var status string
		if err := rows.Scan(&a.Key, &status, &a.Notes, &a.UpdatedAt); err != nil {
			return nil, err
		}
		a.Status = recommend.Status(status)
		out[a.Key] = a
	}
	return out, rows.Err()
}

// Apply re-attaches stored annotations to a freshly rebuilt
// recommendation set by identity key. Records without an annotation keep
// their pipeline defaults.
func (s *Store) Apply(recs []recommend.Recommendation) error {
	stored, err := s.All()
	if err != nil {
		return err
	}
	for i := range recs {
		if a, ok := stored[recs[i].Key()]; ok {
			recs[i].Status = a.Status
			recs[i].Notes = a.Notes
		}
	}
	return nil
}

// Prune removes annotations whose identity key no longer appears in the
// current recommendation set, keeping the side table from growing without
// bound as recommendations resolve.
func (s *Store) Prune(current []recommend.Recommendation) error {
	keep := make(map[string]bool, len(current))
	for i := range current {
		keep[current[i].Key()] = true
	}

	stored, err := s.All()
	if err != nil {
		return err
	}
	for key := range stored {
		if !keep[key] {
			if _, err := s.conn.Exec(`DELETE FROM annotations WHERE key = ?`, key); err != nil {
				return err
			}
		}
	}
	return nil
}

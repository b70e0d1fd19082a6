package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/legacylink/legacylink/pkg/errors"
	"github.com/legacylink/legacylink/pkg/family"
	"github.com/legacylink/legacylink/pkg/graph"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS trees (
	id         TEXT PRIMARY KEY,
	document   BLOB NOT NULL,
	members    INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLite stores trees in a single database file, one row per tree holding
// the JSON roster document.
type SQLite struct {
	conn *sql.DB
	now  func() time.Time
}

// NewSQLite opens or creates the database at dsn. A plain path gets its
// parent directory created; ":memory:" works for tests.
func NewSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	if dsn != ":memory:" && filepath.Dir(dsn) != "." {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorage, err, "create database dir")
		}
	}
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "open database %s", dsn)
	}
	// A single connection keeps ":memory:" databases shared and
	// serializes writers.
	conn.SetMaxOpenConns(1)

	if _, err := conn.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "enable WAL mode")
	}
	if _, err := conn.ExecContext(ctx, sqliteSchema); err != nil {
		conn.Close()
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "apply schema")
	}
	return &SQLite{conn: conn, now: time.Now}, nil
}

func (s *SQLite) Load(ctx context.Context, treeID string) (*family.Roster, error) {
	if err := checkTree(treeID); err != nil {
		return nil, err
	}
	var data []byte
	err := s.conn.QueryRowContext(ctx, `SELECT document FROM trees WHERE id = ?`, treeID).Scan(&data)
	if stderrors.Is(err, sql.ErrNoRows) {
		return emptyRoster(), nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "load tree %s", treeID)
	}
	doc, err := graph.UnmarshalRoster(data)
	if err != nil {
		return nil, storageErr(err, "decode tree %s", treeID)
	}
	return doc.Roster(), nil
}

func (s *SQLite) Save(ctx context.Context, treeID string, r *family.Roster) error {
	if err := checkTree(treeID); err != nil {
		return err
	}
	data, err := graph.MarshalRoster(treeID, r)
	if err != nil {
		return err
	}
	n := 0
	if r != nil {
		n = r.Len()
	}
	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO trees (id, document, members, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document = excluded.document,
			members = excluded.members,
			updated_at = excluded.updated_at`,
		treeID, data, n, s.now().Unix())
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "save tree %s", treeID)
	}
	return nil
}

func (s *SQLite) List(ctx context.Context) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT id FROM trees ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "list trees")
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorage, err, "scan tree id")
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLite) Delete(ctx context.Context, treeID string) error {
	if err := checkTree(treeID); err != nil {
		return err
	}
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM trees WHERE id = ?`, treeID); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "delete tree %s", treeID)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.conn.Close()
}

var _ RosterStore = (*SQLite)(nil)

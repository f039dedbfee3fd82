// Package store keeps bundle file trees in a SQLite database, so a set of
// Quills can be saved once and re-assembled later without the original
// directories.
//
// A stored tree is only bytes and paths. Loading it goes through
// quill.New like every other load path.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/agentic-research/quill/internal/filetree"
)

var ErrNotFound = errors.New("bundle not stored")

const (
	kindFile = 0
	kindDir  = 1
)

const schema = `
CREATE TABLE IF NOT EXISTS bundles (
	name TEXT PRIMARY KEY,
	stored INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS entries (
	bundle TEXT NOT NULL,
	path TEXT NOT NULL,
	kind INTEGER NOT NULL,
	contents BLOB,
	PRIMARY KEY (bundle, path)
) WITHOUT ROWID;
`

// Store is a handle on one database file. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Entry describes one stored bundle.
type Entry struct {
	Name   string
	Files  int
	Stored time.Time
}

// Open opens or creates the database at path. ":memory:" works for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One connection keeps ":memory:" databases intact.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores tree under name, replacing any earlier copy.
func (s *Store) Put(ctx context.Context, name string, tree *filetree.Tree) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE bundle = ?`, name); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO bundles (name, stored) VALUES (?, ?)`,
		name, time.Now().Unix()); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO entries (bundle, path, kind, contents) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	err = tree.Walk(func(p string, n *filetree.Node) error {
		if n.IsDir() {
			_, err := stmt.ExecContext(ctx, name, p, kindDir, nil)
			return err
		}
		contents := n.Contents
		if contents == nil {
			contents = []byte{}
		}
		_, err := stmt.ExecContext(ctx, name, p, kindFile, contents)
		return err
	})
	if err != nil {
		return fmt.Errorf("store %s: %w", name, err)
	}
	return tx.Commit()
}

// Tree rebuilds the tree stored under name.
func (s *Store) Tree(ctx context.Context, name string) (*filetree.Tree, error) {
	var stored int64
	err := s.db.QueryRowContext(ctx, `SELECT stored FROM bundles WHERE name = ?`, name).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT path, kind, contents FROM entries WHERE bundle = ? ORDER BY path`, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	tree := filetree.New()
	for rows.Next() {
		var (
			p        string
			kind     int
			contents []byte
		)
		if err := rows.Scan(&p, &kind, &contents); err != nil {
			return nil, err
		}
		if kind == kindDir {
			err = tree.Mkdir(p)
		} else {
			if contents == nil {
				contents = []byte{}
			}
			err = tree.Insert(p, contents)
		}
		if err != nil {
			return nil, fmt.Errorf("bundle %s: %w", name, err)
		}
	}
	return tree, rows.Err()
}

// List returns the stored bundles sorted by name.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT b.name, b.stored, COUNT(e.path)
		FROM bundles b
		LEFT JOIN entries e ON e.bundle = b.name AND e.kind = ?
		GROUP BY b.name
		ORDER BY b.name`, kindFile)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var (
			e      Entry
			stored int64
		)
		if err := rows.Scan(&e.Name, &stored, &e.Files); err != nil {
			return nil, err
		}
		e.Stored = time.Unix(stored, 0)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Delete removes name and reports whether it was stored.
func (s *Store) Delete(ctx context.Context, name string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM bundles WHERE name = ?`, name)
	if err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE bundle = ?`, name); err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, tx.Commit()
}

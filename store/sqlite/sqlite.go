// Package sqlite provides a Store backed by SQLite (modernc.org/sqlite,
// pure Go). Predicate expressions are compiled to parameterized SQL, so
// the ancestry arithmetic runs inside the database; the primary key on
// (tree_id, a11, a21) enforces position uniqueness for append atomicity.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sqlite3 "modernc.org/sqlite"

	"github.com/jacentio/arbor/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS nodes (
	id        TEXT    NOT NULL,
	tree_id   INTEGER NOT NULL,
	a11       INTEGER NOT NULL,
	a12       INTEGER NOT NULL,
	a21       INTEGER NOT NULL,
	a22       INTEGER NOT NULL,
	parent_id TEXT,
	attrs     TEXT    NOT NULL DEFAULT '{}',
	PRIMARY KEY (tree_id, a11, a21)
);
CREATE INDEX IF NOT EXISTS nodes_parent ON nodes (tree_id, a12, a22);
CREATE TABLE IF NOT EXISTS tree_seq (
	id   INTEGER PRIMARY KEY CHECK (id = 1),
	last INTEGER NOT NULL
);
INSERT OR IGNORE INTO tree_seq (id, last) VALUES (1, 0);
`

// Store is a SQLite-backed store.Store implementation.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open opens (creating if necessary) the database at path and prepares
// the schema. An empty path opens a private in-memory database.
func Open(path string) (*Store, error) {
	var dsn string
	single := false
	if path == "" {
		dsn = ":memory:"
		single = true
	} else {
		dsn = "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if single {
		// each pooled connection would get its own empty :memory: db
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// NextTreeID atomically increments and returns the tree id sequence.
func (s *Store) NextTreeID(ctx context.Context) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`UPDATE tree_seq SET last = last + 1 WHERE id = 1 RETURNING last`).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("advance tree sequence: %w", err)
	}
	return id, nil
}

// LastTreeID returns the most recently allocated tree id.
func (s *Store) LastTreeID(ctx context.Context) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT last FROM tree_seq WHERE id = 1`).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("read tree sequence: %w", err)
	}
	return id, nil
}

// Insert stores a new row. The parent existence check and the insert run
// in one transaction; a primary key conflict maps to ErrPositionTaken.
func (s *Store) Insert(ctx context.Context, row *store.Row) error {
	if err := row.Enc.Validate(); err != nil {
		return err
	}
	attrs, err := json.Marshal(row.Attrs)
	if err != nil {
		return fmt.Errorf("marshal attrs: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if !row.Enc.IsRoot() {
		var one int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM nodes WHERE tree_id = ? AND a11 = ? AND a21 = ?`,
			row.TreeID, row.Enc.A12, row.Enc.A22).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: tree %d position (%d,%d)",
				store.ErrParentNotFound, row.TreeID, row.Enc.A12, row.Enc.A22)
		}
		if err != nil {
			return err
		}
	}

	var parentID any
	if row.ParentID != "" {
		parentID = row.ParentID
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO nodes (id, tree_id, a11, a12, a21, a22, parent_id, attrs)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.TreeID, row.Enc.A11, row.Enc.A12, row.Enc.A21, row.Enc.A22,
		parentID, string(attrs))
	if err != nil {
		if isConstraintErr(err) {
			return fmt.Errorf("%w: tree %d position (%d,%d)",
				store.ErrPositionTaken, row.TreeID, row.Enc.A11, row.Enc.A21)
		}
		return err
	}

	return tx.Commit()
}

// Get returns the row at position pair (a11, a21).
func (s *Store) Get(ctx context.Context, treeID, a11, a21 int64) (*store.Row, error) {
	row, err := scanRow(s.db.QueryRowContext(ctx,
		`SELECT id, tree_id, a11, a12, a21, a22, parent_id, attrs
		 FROM nodes WHERE tree_id = ? AND a11 = ? AND a21 = ?`,
		treeID, a11, a21))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: tree %d position (%d,%d)", store.ErrNotFound, treeID, a11, a21)
	}
	return row, err
}

// Select returns the rows matching q.
func (s *Store) Select(ctx context.Context, q store.Query) ([]*store.Row, error) {
	where, args, err := compileWhere(q.Where)
	if err != nil {
		return nil, err
	}

	query := `SELECT id, tree_id, a11, a12, a21, a22, parent_id, attrs
		 FROM nodes WHERE tree_id = ? AND ` + where
	if order := orderClause(q.Order); order != "" {
		query += " ORDER BY " + order
	}
	args = append([]any{q.TreeID}, args...)
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*store.Row
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Max returns the maximum of term over matching rows.
func (s *Store) Max(ctx context.Context, treeID int64, term store.Term, where store.Expr) (int64, bool, error) {
	cond, args, err := compileWhere(where)
	if err != nil {
		return 0, false, err
	}
	var termArgs []any
	termSQL, err := compileTerm(term, &termArgs)
	if err != nil {
		return 0, false, err
	}

	query := `SELECT MAX(` + termSQL + `) FROM nodes WHERE tree_id = ? AND ` + cond
	all := append(termArgs, append([]any{treeID}, args...)...)

	var max sql.NullInt64
	if err := s.db.QueryRowContext(ctx, query, all...).Scan(&max); err != nil {
		return 0, false, err
	}
	return max.Int64, max.Valid, nil
}

// Count returns the number of matching rows.
func (s *Store) Count(ctx context.Context, treeID int64, where store.Expr) (int64, error) {
	cond, args, err := compileWhere(where)
	if err != nil {
		return 0, err
	}

	var n int64
	query := `SELECT COUNT(*) FROM nodes WHERE tree_id = ? AND ` + cond
	err = s.db.QueryRowContext(ctx, query, append([]any{treeID}, args...)...).Scan(&n)
	return n, err
}

// Delete removes the row at position pair (a11, a21).
func (s *Store) Delete(ctx context.Context, treeID, a11, a21 int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM nodes WHERE tree_id = ? AND a11 = ? AND a21 = ?`,
		treeID, a11, a21)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(sc scanner) (*store.Row, error) {
	var (
		row      store.Row
		parentID sql.NullString
		attrs    string
	)
	err := sc.Scan(&row.ID, &row.TreeID,
		&row.Enc.A11, &row.Enc.A12, &row.Enc.A21, &row.Enc.A22,
		&parentID, &attrs)
	if err != nil {
		return nil, err
	}
	row.ParentID = parentID.String
	if attrs != "" && attrs != "null" {
		if err := json.Unmarshal([]byte(attrs), &row.Attrs); err != nil {
			return nil, fmt.Errorf("unmarshal attrs: %w", err)
		}
	}
	return &row, nil
}

func isConstraintErr(err error) bool {
	var se *sqlite3.Error
	// SQLITE_CONSTRAINT is the low byte of every constraint error code.
	return errors.As(err, &se) && se.Code()&0xff == 19
}

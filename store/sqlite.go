package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/brensch/snekq/qlearn"
	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

-- One row per state key, action values in move order.
CREATE TABLE q_values (
	state_index  INTEGER PRIMARY KEY,
	danger_ahead BOOLEAN NOT NULL,
	danger_left  BOOLEAN NOT NULL,
	danger_right BOOLEAN NOT NULL,
	heading      TEXT NOT NULL,
	food_x       INTEGER NOT NULL,
	food_y       INTEGER NOT NULL,
	q_up         REAL NOT NULL,
	q_down       REAL NOT NULL,
	q_left       REAL NOT NULL,
	q_right      REAL NOT NULL
);
`

// SQLiteBackend stores the table in a small SQLite database.
type SQLiteBackend struct {
	path string
}

func NewSQLiteBackend(path string) *SQLiteBackend {
	return &SQLiteBackend{path: path}
}

func (s *SQLiteBackend) Path() string { return s.path }

// Save builds a fresh database next to the destination and renames it into place.
func (s *SQLiteBackend) Save(ctx context.Context, t *qlearn.Table) (err error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmpPath := s.path + ".tmp"
	_ = os.Remove(tmpPath)
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	conn, err := sql.Open("sqlite3", tmpPath+"?_journal_mode=DELETE&_synchronous=FULL")
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err = writeSQLiteTable(ctx, conn, t); err != nil {
		_ = conn.Close()
		return err
	}
	if err = conn.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	if err = os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename database: %w", err)
	}
	return nil
}

func writeSQLiteTable(ctx context.Context, conn *sql.DB, t *qlearn.Table) error {
	if _, err := conn.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES ('schema', ?)`, QTableSchema); err != nil {
		return fmt.Errorf("failed to insert schema: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO q_values (state_index, danger_ahead, danger_left, danger_right, heading, food_x, food_y, q_up, q_down, q_left, q_right)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range t.Entries() {
		r := rowFromEntry(e)
		if _, err := stmt.ExecContext(ctx,
			r.StateIndex, r.DangerAhead, r.DangerLeft, r.DangerRight, r.Heading, r.FoodX, r.FoodY,
			r.QUp, r.QDown, r.QLeft, r.QRight,
		); err != nil {
			return fmt.Errorf("failed to insert state %d: %w", r.StateIndex, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteBackend) Load(ctx context.Context) (*qlearn.Table, error) {
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return qlearn.NewTable(), nil
	} else if err != nil {
		return nil, fmt.Errorf("stat table: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+s.path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer conn.Close()

	var schema string
	err = conn.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'schema'`).Scan(&schema)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: missing", ErrUnsupportedSchema)
	}
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	if schema != QTableSchema {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSchema, schema)
	}

	rows, err := conn.QueryContext(ctx, `
		SELECT state_index, danger_ahead, danger_left, danger_right, heading, food_x, food_y, q_up, q_down, q_left, q_right
		FROM q_values ORDER BY state_index`)
	if err != nil {
		return nil, fmt.Errorf("query values: %w", err)
	}
	defer rows.Close()

	var entries []qlearn.Entry
	for rows.Next() {
		var r QTableRow
		if err := rows.Scan(
			&r.StateIndex, &r.DangerAhead, &r.DangerLeft, &r.DangerRight, &r.Heading, &r.FoodX, &r.FoodY,
			&r.QUp, &r.QDown, &r.QLeft, &r.QRight,
		); err != nil {
			return nil, fmt.Errorf("scan values: %w", err)
		}
		if e, ok := r.entry(); ok {
			entries = append(entries, e)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate values: %w", err)
	}
	return tableFromEntries(entries), nil
}

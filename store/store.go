// Package store persists the value table and the per-episode training log.
//
// Every write goes to a temporary file that is synced and then renamed over
// the destination, so readers and crashed writers never leave a
// half-written table behind.
package store

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/brensch/snekq/qlearn"
)

// QTableSchema versions the on-disk table layout.
const QTableSchema = "qtable_v1"

// ErrUnsupportedSchema is returned when a stored table has another layout.
var ErrUnsupportedSchema = errors.New("unsupported table schema")

// Backend is one durable home for a value table.
//
// Load on a missing resource returns an empty table and no error.
// Corrupt or foreign resources return an error; see LoadOrEmpty.
type Backend interface {
	Save(ctx context.Context, t *qlearn.Table) error
	Load(ctx context.Context) (*qlearn.Table, error)
	Path() string
}

// Open picks a backend from the file extension: .db, .sqlite and .sqlite3
// use SQLite, anything else Parquet.
func Open(path string) Backend {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return NewSQLiteBackend(path)
	default:
		return NewParquetBackend(path)
	}
}

// LoadOrEmpty loads the table and degrades any failure to an empty table.
// The agent can always relearn, so a bad checkpoint must never stop a run.
func LoadOrEmpty(ctx context.Context, b Backend, logger *slog.Logger) *qlearn.Table {
	if logger == nil {
		logger = slog.Default()
	}
	t, err := b.Load(ctx)
	if err != nil {
		logger.Warn("could not load value table, starting empty", "path", b.Path(), "err", err)
		return qlearn.NewTable()
	}
	if t.Len() == 0 {
		logger.Info("no value table found, starting empty", "path", b.Path())
	} else {
		logger.Info("value table loaded", "path", b.Path(), "states", t.Len())
	}
	return t
}

// tableFromEntries rebuilds a table, dropping rows that fail validation.
func tableFromEntries(entries []qlearn.Entry) *qlearn.Table {
	t := qlearn.NewTable()
	for _, e := range entries {
		_ = t.Put(e.Key, e.Values)
	}
	return t
}

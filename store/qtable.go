package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/brensch/snekq/game"
	"github.com/brensch/snekq/qlearn"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

// QTableRow is one state key and its four action values.
//
// The key is stored both as its index and as explicit fields so the file
// stays readable from any parquet tool. Heading uses the move names
// up/down/left/right.
type QTableRow struct {
	StateIndex  int32   `parquet:"state_index"`
	DangerAhead bool    `parquet:"danger_ahead"`
	DangerLeft  bool    `parquet:"danger_left"`
	DangerRight bool    `parquet:"danger_right"`
	Heading     string  `parquet:"heading,dict"`
	FoodX       int32   `parquet:"food_x"`
	FoodY       int32   `parquet:"food_y"`
	QUp         float64 `parquet:"q_up"`
	QDown       float64 `parquet:"q_down"`
	QLeft       float64 `parquet:"q_left"`
	QRight      float64 `parquet:"q_right"`
}

func rowFromEntry(e qlearn.Entry) QTableRow {
	return QTableRow{
		StateIndex:  int32(e.Key.Index()),
		DangerAhead: e.Key.DangerAhead,
		DangerLeft:  e.Key.DangerLeft,
		DangerRight: e.Key.DangerRight,
		Heading:     e.Key.Heading.String(),
		FoodX:       int32(e.Key.FoodX),
		FoodY:       int32(e.Key.FoodY),
		QUp:         e.Values[game.MoveUp],
		QDown:       e.Values[game.MoveDown],
		QLeft:       e.Values[game.MoveLeft],
		QRight:      e.Values[game.MoveRight],
	}
}

func (r QTableRow) entry() (qlearn.Entry, bool) {
	heading, ok := game.ParseMove(r.Heading)
	if !ok {
		return qlearn.Entry{}, false
	}
	key := qlearn.StateKey{
		DangerAhead: r.DangerAhead,
		DangerLeft:  r.DangerLeft,
		DangerRight: r.DangerRight,
		Heading:     heading,
		FoodX:       int8(r.FoodX),
		FoodY:       int8(r.FoodY),
	}
	if int32(key.Index()) != r.StateIndex {
		return qlearn.Entry{}, false
	}
	return qlearn.Entry{
		Key:    key,
		Values: qlearn.Values{r.QUp, r.QDown, r.QLeft, r.QRight},
	}, true
}

// ParquetBackend stores the table as a single zstd-compressed parquet file.
type ParquetBackend struct {
	path string
}

func NewParquetBackend(path string) *ParquetBackend {
	return &ParquetBackend{path: path}
}

func (p *ParquetBackend) Path() string { return p.path }

func (p *ParquetBackend) Save(ctx context.Context, t *qlearn.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entries := t.Entries()
	rows := make([]QTableRow, len(entries))
	for i, e := range entries {
		rows[i] = rowFromEntry(e)
	}
	return writeParquetAtomic(p.path, QTableSchema, rows)
}

func (p *ParquetBackend) Load(ctx context.Context) (*qlearn.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return qlearn.NewTable(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat table: %w", err)
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	if schema, ok := pf.Lookup("schema"); !ok || schema != QTableSchema {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSchema, schema)
	}

	reader := parquet.NewGenericReader[QTableRow](pf)
	defer reader.Close()

	var entries []qlearn.Entry
	buf := make([]QTableRow, 64)
	for {
		n, err := reader.Read(buf)
		for _, r := range buf[:n] {
			if e, ok := r.entry(); ok {
				entries = append(entries, e)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read parquet: %w", err)
		}
	}
	return tableFromEntries(entries), nil
}

// writeParquetAtomic writes rows to path.tmp, syncs, and renames it over path.
func writeParquetAtomic[T any](path, schema string, rows []T) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmpPath := path + ".tmp"
	_ = os.Remove(tmpPath)

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open tmp parquet: %w", err)
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	w := parquet.NewGenericWriter[T](f,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
	)
	w.SetKeyValueMetadata("schema", schema)
	if _, err = w.Write(rows); err != nil {
		return fmt.Errorf("write parquet: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	if err = f.Sync(); err != nil {
		return fmt.Errorf("sync parquet: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close parquet file: %w", err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename parquet: %w", err)
	}
	return nil
}

package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/brensch/snekq/qlearn"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

// EpisodeSchema versions the episode log layout.
const EpisodeSchema = "episode_row_v1"

// EpisodeRow is one finished training episode.
type EpisodeRow struct {
	RunID       string  `parquet:"run_id,dict"`
	Episode     int64   `parquet:"episode"`
	Steps       int64   `parquet:"steps"`
	Food        int64   `parquet:"food"`
	TotalReward float64 `parquet:"total_reward"`
	Epsilon     float64 `parquet:"epsilon"`
	Phase       string  `parquet:"phase,dict"`
	Skipped     int64   `parquet:"skipped"`
	DurationMs  float64 `parquet:"duration_ms"`
	TableSize   int64   `parquet:"table_size"`
	FinishedAt  int64   `parquet:"finished_at"` // unix millis
}

// RowFromResult flattens a controller result into a log row.
func RowFromResult(runID string, r qlearn.EpisodeResult, finishedAt time.Time) EpisodeRow {
	return EpisodeRow{
		RunID:       runID,
		Episode:     int64(r.Episode),
		Steps:       int64(r.Steps),
		Food:        int64(r.Food),
		TotalReward: r.TotalReward,
		Epsilon:     r.Epsilon,
		Phase:       r.Phase.String(),
		Skipped:     int64(r.Skipped),
		DurationMs:  float64(r.Duration) / float64(time.Millisecond),
		TableSize:   int64(r.TableSize),
		FinishedAt:  finishedAt.UnixMilli(),
	}
}

// EpisodeWriter streams episode rows into one parquet file under outDir/tmp
// and moves it into outDir on Finalize.
type EpisodeWriter struct {
	outDir  string
	tmpPath string
	outPath string

	file   *os.File
	writer *parquet.GenericWriter[EpisodeRow]

	bufferedRows int
}

func NewEpisodeWriter(outDir, runID string) (*EpisodeWriter, error) {
	if outDir == "" {
		return nil, fmt.Errorf("outDir is required")
	}

	absOut, err := filepath.Abs(outDir)
	if err != nil {
		absOut = outDir
	}
	tmpDir := filepath.Join(absOut, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("create tmp dir: %w", err)
	}

	name := fmt.Sprintf("episodes_%s_%d.parquet", runID, time.Now().UnixNano())
	tmpPath := filepath.Join(tmpDir, name)

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open tmp parquet: %w", err)
	}

	w := parquet.NewGenericWriter[EpisodeRow](
		f,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
	)
	w.SetKeyValueMetadata("schema", EpisodeSchema)

	return &EpisodeWriter{
		outDir:  absOut,
		tmpPath: tmpPath,
		outPath: filepath.Join(absOut, name),
		file:    f,
		writer:  w,
	}, nil
}

func (e *EpisodeWriter) TmpPath() string   { return e.tmpPath }
func (e *EpisodeWriter) OutPath() string   { return e.outPath }
func (e *EpisodeWriter) BufferedRows() int { return e.bufferedRows }

func (e *EpisodeWriter) Write(rows ...EpisodeRow) error {
	if e.writer == nil || e.file == nil {
		return fmt.Errorf("episode writer is closed")
	}
	if len(rows) == 0 {
		return nil
	}
	if _, err := e.writer.Write(rows); err != nil {
		return err
	}
	e.bufferedRows += len(rows)
	return nil
}

// Finalize closes the parquet writer and moves the file from tmp/ to outDir.
// If no rows were written, the tmp file is removed and outPath is returned empty.
func (e *EpisodeWriter) Finalize() (outPath string, rows int, err error) {
	if e.writer == nil && e.file == nil {
		return "", 0, nil
	}

	rows = e.bufferedRows

	var closeErr error
	if e.writer != nil {
		closeErr = e.writer.Close()
		e.writer = nil
	}
	var fileErr error
	if e.file != nil {
		_ = e.file.Sync()
		fileErr = e.file.Close()
		e.file = nil
	}
	if closeErr != nil {
		return "", 0, fmt.Errorf("close parquet writer: %w", closeErr)
	}
	if fileErr != nil {
		return "", 0, fmt.Errorf("close parquet file: %w", fileErr)
	}

	if rows == 0 {
		_ = os.Remove(e.tmpPath)
		return "", 0, nil
	}
	if err := os.Rename(e.tmpPath, e.outPath); err != nil {
		return "", 0, fmt.Errorf("rename parquet: %w", err)
	}
	return e.outPath, rows, nil
}

// EpisodeFiles lists finalized episode logs in dir, oldest name first.
func EpisodeFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "episodes_*.parquet"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// ReadEpisodes loads every row of one episode log.
func ReadEpisodes(path string) ([]EpisodeRow, error) {
	rows, err := parquet.ReadFile[EpisodeRow](path)
	if err != nil {
		return nil, fmt.Errorf("read episodes %s: %w", path, err)
	}
	return rows, nil
}

package main

import (
	"context"
	"database/sql"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
)

// DBCache maintains a DuckDB connection whose episodes view is rebuilt
// periodically so new log files show up.
type DBCache struct {
	roots       []string
	refreshRate time.Duration
	logger      *slog.Logger

	mu          sync.RWMutex
	db          *sql.DB
	lastRefresh time.Time
}

func NewDBCache(roots []string, refreshRate time.Duration, logger *slog.Logger) *DBCache {
	return &DBCache{
		roots:       roots,
		refreshRate: refreshRate,
		logger:      logger,
	}
}

// Get returns the cached DB connection, refreshing if needed.
func (c *DBCache) Get() (*sql.DB, error) {
	c.mu.RLock()
	if c.db != nil && time.Since(c.lastRefresh) < c.refreshRate {
		db := c.db
		c.mu.RUnlock()
		return db, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock
	if c.db != nil && time.Since(c.lastRefresh) < c.refreshRate {
		return c.db, nil
	}
	return c.refreshLocked()
}

func (c *DBCache) refreshLocked() (*sql.DB, error) {
	start := time.Now()

	newDB, files, err := openEpisodesDB(c.roots)
	if err != nil {
		return nil, err
	}
	if c.db != nil {
		_ = c.db.Close()
	}
	c.db = newDB
	c.lastRefresh = time.Now()

	c.logger.Debug("episode db refreshed", "files", files, "took", time.Since(start))
	return c.db, nil
}

func (c *DBCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		err := c.db.Close()
		c.db = nil
		return err
	}
	return nil
}

// openEpisodesDB creates an in-memory DuckDB with an "episodes" view over
// every finalized episode log under roots. Files still in tmp/ are not
// matched by the pattern.
func openEpisodesDB(roots []string) (*sql.DB, int, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, 0, err
	}
	// Basic pragmas; ignore errors for compatibility across versions.
	_, _ = db.Exec("PRAGMA threads=4")

	// read_parquet fails on a pattern with no matches, so only list
	// patterns that currently match something.
	var globs []string
	files := 0
	for _, root := range roots {
		pattern := filepath.Join(strings.TrimSpace(root), "episodes_*.parquet")
		matches, _ := filepath.Glob(pattern)
		if len(matches) == 0 {
			continue
		}
		files += len(matches)
		globs = append(globs, "'"+escapeSQLString(pattern)+"'")
	}

	sqlText := `CREATE OR REPLACE VIEW episodes AS
		SELECT * FROM (
			SELECT
				NULL::VARCHAR AS run_id,
				NULL::BIGINT AS episode,
				NULL::BIGINT AS steps,
				NULL::BIGINT AS food,
				NULL::DOUBLE AS total_reward,
				NULL::DOUBLE AS epsilon,
				NULL::VARCHAR AS phase,
				NULL::BIGINT AS skipped,
				NULL::DOUBLE AS duration_ms,
				NULL::BIGINT AS table_size,
				NULL::BIGINT AS finished_at
		) WHERE 1=0`
	if len(globs) > 0 {
		sqlText = `CREATE OR REPLACE VIEW episodes AS
			SELECT * FROM read_parquet([` + strings.Join(globs, ",") + `], union_by_name=true)`
	}
	if _, err := db.Exec(sqlText); err != nil {
		_ = db.Close()
		return nil, 0, err
	}
	return db, files, nil
}

func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

const episodeColumns = `run_id, episode, steps, food, total_reward, epsilon, phase, skipped, duration_ms, table_size, finished_at`

func scanEpisodes(rows *sql.Rows) ([]Episode, error) {
	defer rows.Close()
	out := make([]Episode, 0, 256)
	for rows.Next() {
		var e Episode
		if err := rows.Scan(
			&e.RunID,
			&e.Episode,
			&e.Steps,
			&e.Food,
			&e.TotalReward,
			&e.Epsilon,
			&e.Phase,
			&e.Skipped,
			&e.DurationMs,
			&e.TableSize,
			&e.FinishedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// latestRunID returns the run with the most recent episode, or "" when
// there are no episodes.
func latestRunID(ctx context.Context, db *sql.DB) (string, error) {
	var runID sql.NullString
	err := db.QueryRowContext(ctx, `SELECT run_id FROM episodes ORDER BY finished_at DESC, episode DESC LIMIT 1`).Scan(&runID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return runID.String, nil
}

// queryEpisodes pages through one run in episode order.
func queryEpisodes(ctx context.Context, db *sql.DB, runID string, limit, offset int) ([]Episode, int64, error) {
	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM episodes WHERE run_id = ?`, runID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := db.QueryContext(ctx, `SELECT `+episodeColumns+`
		FROM episodes
		WHERE run_id = ?
		ORDER BY episode ASC
		LIMIT ? OFFSET ?`, runID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	eps, err := scanEpisodes(rows)
	return eps, total, err
}

// queryLastEpisodes returns the last n episodes of a run, oldest first.
func queryLastEpisodes(ctx context.Context, db *sql.DB, runID string, n int) ([]Episode, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+episodeColumns+` FROM (
			SELECT * FROM episodes WHERE run_id = ? ORDER BY episode DESC LIMIT ?
		) ORDER BY episode ASC`, runID, n)
	if err != nil {
		return nil, err
	}
	return scanEpisodes(rows)
}

func queryRuns(ctx context.Context, db *sql.DB) ([]RunSummary, error) {
	rows, err := db.QueryContext(ctx, `SELECT
			run_id,
			COUNT(*)::BIGINT AS episodes,
			MIN(finished_at)::BIGINT AS first_ms,
			MAX(finished_at)::BIGINT AS last_ms,
			MAX(food)::BIGINT AS best_food,
			AVG(total_reward)::DOUBLE AS avg_reward,
			arg_max(epsilon, episode)::DOUBLE AS last_epsilon
		FROM episodes
		GROUP BY run_id
		ORDER BY last_ms DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RunID, &r.Episodes, &r.FirstMs, &r.LastMs, &r.BestFood, &r.AvgReward, &r.LastEpsilon); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

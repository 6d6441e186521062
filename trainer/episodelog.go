package main

import (
	"log/slog"
	"time"

	"github.com/brensch/snekq/qlearn"
	"github.com/brensch/snekq/store"
)

// episodeLogLoop writes every result from in to parquet files under outDir,
// starting a new file every perFile episodes. It returns once in is closed
// and the last file is finalized.
func episodeLogLoop(outDir, runID string, perFile int, in <-chan qlearn.EpisodeResult, logger *slog.Logger) {
	if perFile <= 0 {
		perFile = 500
	}

	var w *store.EpisodeWriter
	finalize := func() {
		if w == nil {
			return
		}
		outPath, rows, err := w.Finalize()
		if err != nil {
			logger.Error("finalize episode log", "path", w.TmpPath(), "err", err)
		} else if rows > 0 {
			logger.Info("episode log written", "path", outPath, "episodes", rows)
		}
		w = nil
	}
	defer finalize()

	for res := range in {
		if w == nil {
			var err error
			w, err = store.NewEpisodeWriter(outDir, runID)
			if err != nil {
				logger.Error("open episode log", "dir", outDir, "err", err)
				continue
			}
		}
		if err := w.Write(store.RowFromResult(runID, res, time.Now())); err != nil {
			logger.Error("write episode log", "episode", res.Episode, "err", err)
			continue
		}
		if w.BufferedRows() >= perFile {
			finalize()
		}
	}
}

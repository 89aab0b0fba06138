package main

import (
	"log/slog"

	"github.com/brensch/snekab/store"
)

// writerLoop buffers finished games and flushes every gamesPerFlush games,
// plus once more when in closes. It returns the files written.
func writerLoop(outDir string, gamesPerFlush int, in <-chan []store.ArchiveTurnRow, log *slog.Logger) []string {
	if gamesPerFlush <= 0 {
		gamesPerFlush = 20
	}

	var (
		files   []string
		pending []store.ArchiveTurnRow
		games   int
	)
	flush := func() {
		if games == 0 {
			return
		}
		path, err := store.WriteArchiveBatchParquetAtomic(outDir, pending)
		if err != nil {
			log.Error("parquet flush failed", "games", games, "rows", len(pending), "err", err)
		} else {
			log.Info("parquet flush", "path", path, "games", games, "rows", len(pending))
			files = append(files, path)
		}
		pending = pending[:0]
		games = 0
	}

	for rows := range in {
		if len(rows) == 0 {
			continue
		}
		pending = append(pending, rows...)
		games++
		if games >= gamesPerFlush {
			flush()
		}
	}
	flush()
	return files
}

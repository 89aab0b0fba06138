// Package store persists played games as Parquet and queries them with DuckDB.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"github.com/brensch/snekab/game"
)

const archiveSchema = "archive_turn_v2"

// NoMove marks a snake that did not pick a move on a turn (dead, or the row
// is the final board).
const NoMove int32 = -1

// ArchiveTurnRow is one (game, turn) snapshot: the board before the turn's
// moves plus what every snake chose on it.
//
// Food, hazards and bodies are stored as parallel x/y columns, which
// compress far better than nested points.
type ArchiveTurnRow struct {
	GameID string `parquet:"game_id,dict" json:"game_id"`
	Turn   int32  `parquet:"turn" json:"turn"`
	Width  int32  `parquet:"width" json:"width"`
	Height int32  `parquet:"height" json:"height"`

	FoodX []int32 `parquet:"food_x" json:"food_x"`
	FoodY []int32 `parquet:"food_y" json:"food_y"`

	HazardX []int32 `parquet:"hazard_x" json:"hazard_x"`
	HazardY []int32 `parquet:"hazard_y" json:"hazard_y"`

	Snakes []ArchiveSnake `parquet:"snakes" json:"snakes"`

	Source string `parquet:"source,dict" json:"source"`
}

type ArchiveSnake struct {
	ID string `parquet:"id,dict" json:"id"`
	// Name identifies the engine configuration that played this snake, so
	// results can be grouped across games.
	Name   string `parquet:"name,dict" json:"name"`
	Alive  bool   `parquet:"alive" json:"alive"`
	Health int32  `parquet:"health" json:"health"`

	BodyX []int32 `parquet:"body_x" json:"body_x"`
	BodyY []int32 `parquet:"body_y" json:"body_y"`

	// Move is 0=up 1=down 2=left 3=right, or NoMove.
	Move     int32 `parquet:"move" json:"move"`
	Score    int64 `parquet:"score" json:"score"`
	Depth    int32 `parquet:"depth" json:"depth"`
	Nodes    int64 `parquet:"nodes" json:"nodes"`
	Fallback bool  `parquet:"fallback" json:"fallback"`

	// Value is the final outcome for this snake: 1 won, -1 lost, 0 draw.
	Value float32 `parquet:"value" json:"value"`
}

// RowFromState snapshots state. Every snake starts with Move set to NoMove;
// names maps snake id to its Name (missing ids get an empty name).
func RowFromState(gameID, source string, state *game.GameState, names map[string]string) ArchiveTurnRow {
	row := ArchiveTurnRow{
		GameID: gameID,
		Turn:   state.Turn,
		Width:  state.Width,
		Height: state.Height,
		Source: source,
	}
	row.FoodX, row.FoodY = split(state.Food)
	row.HazardX, row.HazardY = split(state.Hazards)

	row.Snakes = make([]ArchiveSnake, len(state.Snakes))
	for i := range state.Snakes {
		s := &state.Snakes[i]
		as := ArchiveSnake{
			ID:     s.Id,
			Name:   names[s.Id],
			Alive:  s.Alive(),
			Health: s.Health,
			Move:   NoMove,
		}
		as.BodyX, as.BodyY = split(s.Body)
		row.Snakes[i] = as
	}
	return row
}

// State rebuilds the board stored in the row.
func (r *ArchiveTurnRow) State() *game.GameState {
	state := &game.GameState{
		Width:   r.Width,
		Height:  r.Height,
		Turn:    r.Turn,
		Food:    join(r.FoodX, r.FoodY),
		Hazards: join(r.HazardX, r.HazardY),
		Snakes:  make([]game.Snake, len(r.Snakes)),
	}
	for i := range r.Snakes {
		as := &r.Snakes[i]
		s := game.Snake{Id: as.ID, Health: as.Health}
		if as.Alive {
			s.Body = join(as.BodyX, as.BodyY)
		}
		state.Snakes[i] = s
	}
	return state
}

func split(ps []game.Point) ([]int32, []int32) {
	xs := make([]int32, len(ps))
	ys := make([]int32, len(ps))
	for i, p := range ps {
		xs[i], ys[i] = p.X, p.Y
	}
	return xs, ys
}

func join(xs, ys []int32) []game.Point {
	n := min(len(xs), len(ys))
	out := make([]game.Point, n)
	for i := 0; i < n; i++ {
		out[i] = game.Point{X: xs[i], Y: ys[i]}
	}
	return out
}

// WriteArchiveBatchParquetAtomic writes rows to outDir/tmp and then renames
// the file into outDir, so readers globbing outDir never see a partial file.
func WriteArchiveBatchParquetAtomic(outDir string, rows []ArchiveTurnRow) (string, error) {
	tmpDir := filepath.Join(outDir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", fmt.Errorf("create tmp dir: %w", err)
	}

	name := fmt.Sprintf("batch_%d.parquet", time.Now().UnixNano())
	finalPath := filepath.Join(outDir, name)
	tmpPath := filepath.Join(tmpDir, name+".tmp")

	if err := parquet.WriteFile(tmpPath, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", archiveSchema),
	); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write parquet: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("rename parquet: %w", err)
	}
	return finalPath, nil
}

// ReadArchive loads every row of one archive file.
func ReadArchive(path string) ([]ArchiveTurnRow, error) {
	rows, err := parquet.ReadFile[ArchiveTurnRow](path)
	if err != nil {
		return nil, fmt.Errorf("read archive %s: %w", path, err)
	}
	return rows, nil
}

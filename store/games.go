package store

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
)

// ErrGameNotFound is returned when no archive holds the requested game.
var ErrGameNotFound = errors.New("store: game not found")

// GameIndex is one archived game as listed by ListGames.
type GameIndex struct {
	GameID string `json:"game_id"`
	Source string `json:"source"`
	File   string `json:"file"`
	// Turns is the turn number of the final row.
	Turns  int32  `json:"turns"`
	Width  int32  `json:"width"`
	Height int32  `json:"height"`
	Winner string `json:"winner"`
}

// ListGames indexes every game under roots, ordered by game id.
func ListGames(ctx context.Context, roots ...string) ([]GameIndex, error) {
	turns, ok := turnsSource(roots)
	if !ok {
		return nil, nil
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	defer db.Close()

	query := `WITH turns AS (` + turns + `),
	games AS (
		SELECT
			game_id,
			MIN(source)::VARCHAR AS source,
			MIN(filename)::VARCHAR AS file,
			MAX(turn)::INTEGER AS turns,
			MIN(width)::INTEGER AS width,
			MIN(height)::INTEGER AS height
		FROM turns
		GROUP BY game_id
	),
	last_snakes AS (
		SELECT game_id, unnest(snakes) AS s
		FROM (
			SELECT game_id, snakes,
				row_number() OVER (PARTITION BY game_id ORDER BY turn DESC) AS rn
			FROM turns
		)
		WHERE rn = 1
	),
	winners AS (
		SELECT game_id, MAX(CASE WHEN s.value > 0 THEN s.name END) AS winner
		FROM last_snakes
		GROUP BY game_id
	)
	SELECT g.game_id, g.source, g.file, g.turns, g.width, g.height, COALESCE(w.winner, '')
	FROM games g
	LEFT JOIN winners w ON g.game_id = w.game_id
	ORDER BY g.game_id`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var out []GameIndex
	for rows.Next() {
		var g GameIndex
		if err := rows.Scan(&g.GameID, &g.Source, &g.File, &g.Turns, &g.Width, &g.Height, &g.Winner); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// ReadGame loads the rows of one game from the archive file at path, in turn
// order.
func ReadGame(path, gameID string) ([]ArchiveTurnRow, error) {
	rows, err := ReadArchive(path)
	if err != nil {
		return nil, err
	}
	out := slices.DeleteFunc(rows, func(r ArchiveTurnRow) bool { return r.GameID != gameID })
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s in %s", ErrGameNotFound, gameID, path)
	}
	slices.SortStableFunc(out, func(a, b ArchiveTurnRow) int { return cmp.Compare(a.Turn, b.Turn) })
	return out, nil
}

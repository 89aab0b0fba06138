package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
)

// Summary is the record of one snake name across every archived game.
type Summary struct {
	Name     string
	Games    int64
	Wins     int64
	Draws    int64
	Losses   int64
	AvgTurns float64
}

func (s Summary) WinRate() float64 {
	if s.Games == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Games)
}

// Summarize reads every *.parquet under roots and
// tallies outcomes from each game's final row. Roots without archives are
// ignored; if none remain the result is empty.
func Summarize(ctx context.Context, roots ...string) ([]Summary, error) {
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
	last_turns AS (
		SELECT game_id, turn, snakes
		FROM (
			SELECT game_id, turn, snakes,
				row_number() OVER (PARTITION BY game_id ORDER BY turn DESC) AS rn
			FROM turns
		)
		WHERE rn = 1
	),
	per_snake AS (
		SELECT game_id, turn, unnest(snakes) AS s FROM last_turns
	)
	SELECT
		s.name AS name,
		COUNT(*)::BIGINT AS games,
		SUM(CASE WHEN s.value > 0 THEN 1 ELSE 0 END)::BIGINT AS wins,
		SUM(CASE WHEN s.value = 0 THEN 1 ELSE 0 END)::BIGINT AS draws,
		SUM(CASE WHEN s.value < 0 THEN 1 ELSE 0 END)::BIGINT AS losses,
		AVG(turn)::DOUBLE AS avg_turns
	FROM per_snake
	GROUP BY s.name
	ORDER BY wins DESC, name`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.Name, &s.Games, &s.Wins, &s.Draws, &s.Losses, &s.AvgTurns); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// turnsSource is a SELECT over every archive under roots, with the source
// file name attached. ok is false when no root holds an archive.
func turnsSource(roots []string) (string, bool) {
	globs := make([]string, 0, len(roots))
	for _, root := range roots {
		root = strings.TrimSpace(root)
		if root == "" || !hasArchives(root) {
			continue
		}
		glob := filepath.Join(root, "**", "*.parquet")
		globs = append(globs, "'"+strings.ReplaceAll(glob, "'", "''")+"'")
	}
	if len(globs) == 0 {
		return "", false
	}
	// In-flight files end in .tmp, so the glob never sees them.
	return `SELECT * FROM read_parquet([` + strings.Join(globs, ",") + `], filename=true, union_by_name=true)`, true
}

var errFound = errors.New("found")

// hasArchives reports whether root holds any finished parquet file. DuckDB
// fails a glob that matches nothing, so empty roots are dropped up front.
func hasArchives(root string) bool {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() && d.Name() == "tmp" {
			return filepath.SkipDir
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".parquet") {
			return errFound
		}
		return nil
	})
	return errors.Is(err, errFound)
}

// Command arena plays engine configurations against each other under the
// true simultaneous rules, archives every turn as Parquet and reports results.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/brensch/snekab/config"
	"github.com/brensch/snekab/engine"
	"github.com/brensch/snekab/eval"
	"github.com/brensch/snekab/logging"
	"github.com/brensch/snekab/selfplay"
	"github.com/brensch/snekab/store"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type playerFlags struct {
	name    *string
	depth   *int
	weights *string
}

func (p playerFlags) build(cfg config.Config, log *slog.Logger) (selfplay.Player, error) {
	w := cfg.Weights
	if *p.weights != "" {
		var err error
		if w, err = eval.LoadWeights(*p.weights); err != nil {
			return selfplay.Player{}, err
		}
	}
	sc := cfg.SearchConfig()
	sc.MaxDepth = *p.depth
	return selfplay.Player{
		Name: *p.name,
		Engine: engine.New(engine.Options{
			Rules:   cfg.Ruleset(),
			Weights: w,
			Search:  sc,
			Logger:  log.With("player", *p.name),
		}),
	}, nil
}

func run(args []string) error {
	fs := flag.NewFlagSet("arena", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	configPath := fs.String("config", config.EnvString("SNEKAB_CONFIG", ""), "YAML config file")
	outDir := fs.String("out-dir", config.EnvString("SNEKAB_ARENA_DIR", filepath.Join("data", "arena")), "Directory for archived parquet batches")
	workers := fs.Int("workers", config.EnvInt("SNEKAB_ARENA_WORKERS", 4), "Games played concurrently")
	maxGames := fs.Int64("games", 0, "Stop after this many games (0 runs until interrupted)")
	gamesPerFlush := fs.Int("games-per-flush", 20, "Games buffered per parquet file")
	moveTimeout := fs.Duration("move-timeout", 100*time.Millisecond, "Per-move decision deadline")
	maxTurns := fs.Int("max-turns", int(selfplay.DefaultMaxTurns), "Turn cap; games reaching it are draws")
	size := fs.Int("size", int(selfplay.DefaultSize), "Board width and height")
	useTUI := fs.Bool("tui", true, "Show a live progress screen")
	summarize := fs.Bool("summarize", false, "Print a per-player summary of out-dir and exit")

	a := playerFlags{
		name:    fs.String("a-name", "alpha", "Name of the first player"),
		depth:   fs.Int("a-depth", 6, "Search depth of the first player"),
		weights: fs.String("a-weights", "", "YAML weights file for the first player"),
	}
	b := playerFlags{
		name:    fs.String("b-name", "beta", "Name of the second player"),
		depth:   fs.Int("b-depth", 4, "Search depth of the second player"),
		weights: fs.String("b-weights", "", "YAML weights file for the second player"),
	}

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("flag parse: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *summarize {
		return printSummary(ctx, os.Stdout, *outDir)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	// The TUI owns the terminal, so logs go to a file beside the archive.
	logOut := io.Writer(os.Stderr)
	if *useTUI {
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			return fmt.Errorf("create out dir: %w", err)
		}
		f, err := os.OpenFile(filepath.Join(*outDir, "arena.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	log, err := logging.New(logOut, cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return err
	}

	var players []selfplay.Player
	for _, pf := range []playerFlags{a, b} {
		p, err := pf.build(cfg, log)
		if err != nil {
			return err
		}
		players = append(players, p)
	}
	if players[0].Name == players[1].Name {
		return fmt.Errorf("players need distinct names, both are %q", players[0].Name)
	}
	if err := selfplay.CheckBoard(int32(*size), int32(*size), len(players)); err != nil {
		return err
	}

	opts := selfplay.Options{
		Width:       int32(*size),
		Height:      int32(*size),
		Rules:       cfg.Ruleset(),
		MoveTimeout: *moveTimeout,
		MaxTurns:    int32(*maxTurns),
		Logger:      log,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stats := &counters{}
	updates := make(chan gameUpdate, *workers)
	writes := make(chan []store.ArchiveTurnRow, *workers*4)

	writerDone := make(chan []string, 1)
	go func() { writerDone <- writerLoop(*outDir, *gamesPerFlush, writes, log) }()

	log.Info("arena starting", "workers", *workers, "out_dir", *outDir, "a", *a.name, "b", *b.name)

	var g errgroup.Group
	for w := 0; w < *workers; w++ {
		g.Go(func() error {
			for ctx.Err() == nil {
				o := opts
				o.OnTurn = func(int32) { stats.turns.Add(1) }
				// Alternate seats so neither player always gets the first start.
				seats := players
				if stats.games.Load()%2 == 1 {
					seats = []selfplay.Player{players[1], players[0]}
				}
				res, err := selfplay.PlayGame(ctx, seats, o)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				if err != nil {
					// Game setup and decisions only fail on bad input, which
					// every later game would repeat.
					log.Error("game failed", "worker", w, "err", err)
					cancel()
					return fmt.Errorf("worker %d: %w", w, err)
				}
				writes <- res.Rows
				if n := stats.games.Add(1); *maxGames > 0 && n >= *maxGames {
					cancel()
				}
				u := gameUpdate{Worker: w, Winner: res.WinnerName, Turns: res.Turns}
				log.Info("game finished", "worker", w, "game", res.GameID, "winner", res.WinnerName, "turns", res.Turns)
				select {
				case updates <- u:
				default:
				}
			}
			return nil
		})
	}

	workersDone := make(chan error, 1)
	go func() {
		err := g.Wait()
		close(writes)
		close(updates)
		workersDone <- err
	}()

	if *useTUI {
		p := tea.NewProgram(newModel(stats, updates), tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("tui: %w", err)
		}
		cancel()
	} else {
		for range updates {
		}
	}

	files := <-writerDone
	log.Info("arena stopped", "games", stats.games.Load(), "files", len(files))
	if err := <-workersDone; err != nil {
		return err
	}
	return printSummary(context.Background(), os.Stdout, *outDir)
}

func printSummary(ctx context.Context, w io.Writer, dir string) error {
	rows, err := store.Summarize(ctx, dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%-16s %6s %6s %6s %6s %7s %9s\n", "player", "games", "wins", "draws", "losses", "win%", "avg turns")
	for _, s := range rows {
		fmt.Fprintf(w, "%-16s %6d %6d %6d %6d %6.1f%% %9.1f\n", s.Name, s.Games, s.Wins, s.Draws, s.Losses, 100*s.WinRate(), s.AvgTurns)
	}
	return nil
}

// Command replay downloads real games, asks the engine for a move on every
// turn one snake played, and reports how often the two agree.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/brensch/snekab/config"
	"github.com/brensch/snekab/engine"
	"github.com/brensch/snekab/logging"
	"github.com/brensch/snekab/replay"
	"github.com/brensch/snekab/store"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	configPath := fs.String("config", config.EnvString("SNEKAB_CONFIG", ""), "YAML config file")
	ids := fs.String("games", "", "Comma separated game ids")
	discover := fs.Bool("discover", false, "Find game ids on the public leaderboards")
	maxPlayers := fs.Int("max-players", 20, "Players crawled per leaderboard with -discover")
	snake := fs.String("snake", "", "Snake to imitate, by id or name (required)")
	budget := fs.Duration("budget", 0, "Per-turn search deadline (defaults to the config's compute budget)")
	workers := fs.Int("workers", 4, "Games evaluated concurrently")
	seenPath := fs.String("seen", filepath.Join("data", "replay", "seen.log"), "Log of already replayed game ids")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("flag parse: %w", err)
	}
	if *snake == "" {
		return fmt.Errorf("-snake is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	log, err := logging.New(os.Stderr, cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return err
	}
	if *budget <= 0 {
		*budget = cfg.ComputeBudget(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	seen, err := store.OpenSeenLog(*seenPath)
	if err != nil {
		return err
	}
	defer seen.Close()

	var gameIDs []string
	for _, id := range strings.Split(*ids, ",") {
		if id = strings.TrimSpace(id); id != "" && !seen.Has(id) {
			gameIDs = append(gameIDs, id)
		}
	}
	if *discover {
		dc := replay.DefaultDiscoverConfig()
		dc.MaxPlayers = *maxPlayers
		dc.Logger = log
		found, err := replay.Discover(ctx, dc, seen.Has)
		if err != nil {
			return fmt.Errorf("discover: %w", err)
		}
		gameIDs = append(gameIDs, found...)
	}
	log.Info("replaying", "games", len(gameIDs), "snake", *snake, "budget", *budget, "already_seen", seen.Count())

	eng := engine.New(engine.Options{
		Rules:   cfg.Ruleset(),
		Weights: cfg.Weights,
		Search:  cfg.SearchConfig(),
		Logger:  log,
	})
	dl := replay.DefaultConfig()
	dl.Logger = log

	var (
		mu      sync.Mutex
		reports []replay.Report
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(*workers, 1))
	for _, id := range gameIDs {
		g.Go(func() error {
			game, err := replay.Download(gctx, dl, id)
			if err != nil {
				log.Warn("download failed", "game", id, "err", err)
				return nil
			}
			rep, err := replay.Evaluate(gctx, eng, game, *snake, *budget)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Warn("evaluate failed", "game", id, "err", err)
				return seen.Add(id)
			}
			log.Info("replayed", "game", id, "turns", rep.Turns, "agreed", rep.Agreed, "rate", rep.AgreementRate())
			mu.Lock()
			reports = append(reports, rep)
			mu.Unlock()
			return seen.Add(id)
		})
	}
	err = g.Wait()

	printReports(os.Stdout, reports)
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func printReports(w io.Writer, reports []replay.Report) {
	var turns, agreed, fallbacks int
	for _, r := range reports {
		fmt.Fprintf(w, "%s %-20s %4d/%-4d %5.1f%%\n", r.GameID, r.SnakeName, r.Agreed, r.Turns, 100*r.AgreementRate())
		turns += r.Turns
		agreed += r.Agreed
		fallbacks += r.Fallbacks
	}
	total := replay.Report{Turns: turns, Agreed: agreed}
	fmt.Fprintf(w, "games %d, turns %d, agreed %d (%.1f%%), fallbacks %d\n", len(reports), turns, agreed, 100*total.AgreementRate(), fallbacks)
}

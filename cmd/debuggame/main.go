// Command debuggame reads one /move request body (from a file or stdin),
// prints the board and the engine's decision for it.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/brensch/snekab/api"
	"github.com/brensch/snekab/config"
	"github.com/brensch/snekab/engine"
	"github.com/brensch/snekab/game"
	"github.com/brensch/snekab/logging"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("debuggame", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	configPath := fs.String("config", config.EnvString("SNEKAB_CONFIG", ""), "YAML config file")
	maxDepth := fs.Int("max-depth", -1, "Search depth limit in plies (overrides config)")
	logLevel := fs.String("log-level", "debug", "debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("flag parse: %w", err)
	}

	in := stdin
	if path := fs.Arg(0); path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open request: %w", err)
		}
		defer f.Close()
		in = f
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *maxDepth >= 0 {
		cfg.Search.MaxDepth = *maxDepth
	}
	log, err := logging.New(os.Stderr, cfg.Log.Format, *logLevel)
	if err != nil {
		return err
	}

	eng := engine.New(engine.Options{
		Rules:   cfg.Ruleset(),
		Weights: cfg.Weights,
		Search:  cfg.SearchConfig(),
		Logger:  log,
	})
	return decideRequest(context.Background(), in, stdout, eng, cfg)
}

func decideRequest(ctx context.Context, in io.Reader, out io.Writer, eng *engine.Engine, cfg config.Config) error {
	var req api.GameRequest
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	state := req.ToGameState()

	fmt.Fprintf(out, "game %s turn %d, you %s (%s)\n", req.Game.ID, req.Turn, req.You.Name, req.You.ID)
	fmt.Fprint(out, game.Render(state))

	budget := cfg.ComputeBudget(req.Game.Timeout)
	sess := engine.NewSession(req.Game.ID, req.You.ID, req.Rules(cfg.Ruleset()), budget)
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	d, err := eng.Decide(ctx, sess, state, req.You.ID)
	if err != nil {
		fmt.Fprintf(out, "invalid board: %v\n", err)
	}
	fmt.Fprintf(out, "move %s (score %d, depth %d, nodes %d, fallback %t, %s of %s)\n",
		d.Move, d.Score, d.Depth, d.Nodes, d.Fallback, d.Elapsed.Round(time.Microsecond), budget)
	return nil
}

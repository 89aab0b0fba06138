// Command battlesnake serves the bot over the Battlesnake HTTP API.
//
// Every /move runs an alpha-beta search bounded by the game's timeout minus a
// latency buffer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/brensch/snekab/config"
	"github.com/brensch/snekab/engine"
	"github.com/brensch/snekab/logging"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("battlesnake", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	configPath := fs.String("config", config.EnvString("SNEKAB_CONFIG", ""), "YAML config file")
	listen := fs.String("listen", "", "HTTP listen address (overrides config)")
	moveTimeout := fs.Duration("move-timeout", 0, "Default move timeout (overrides config)")
	maxDepth := fs.Int("max-depth", -1, "Search depth limit in plies (overrides config)")
	parallel := fs.Bool("parallel", false, "Search root moves in parallel")
	logLevel := fs.String("log-level", "", "debug, info, warn or error (overrides config)")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("flag parse: %w", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *moveTimeout > 0 {
		cfg.MoveTimeout = *moveTimeout
	}
	if *maxDepth >= 0 {
		cfg.Search.MaxDepth = *maxDepth
	}
	if *parallel {
		cfg.Search.Parallel = true
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	log, err := logging.New(os.Stderr, cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return err
	}

	eng := engine.New(engine.Options{
		Rules:   cfg.Ruleset(),
		Weights: cfg.Weights,
		Search:  cfg.SearchConfig(),
		Logger:  log,
	})

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           NewServer(cfg, eng, log).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("battlesnake server listening", "addr", cfg.Listen, "max_depth", cfg.Search.MaxDepth, "parallel", cfg.Search.Parallel)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

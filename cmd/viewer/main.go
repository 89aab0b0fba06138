// Command viewer serves archived arena games as JSON for browsing and lets a
// client re-run the engine on any stored position.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
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
	fs := flag.NewFlagSet("viewer", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	configPath := fs.String("config", config.EnvString("SNEKAB_CONFIG", ""), "YAML config file")
	listen := fs.String("listen", config.EnvString("SNEKAB_VIEWER_LISTEN", ":8081"), "HTTP listen address")
	roots := fs.String("data", config.EnvString("SNEKAB_ARENA_DIR", filepath.Join("data", "arena")), "Comma separated archive directories")
	budget := fs.Duration("budget", 2*time.Second, "Search deadline for /decide")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("flag parse: %w", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	log, err := logging.New(os.Stderr, cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return err
	}

	var dirs []string
	for _, d := range strings.Split(*roots, ",") {
		if d = strings.TrimSpace(d); d != "" {
			dirs = append(dirs, d)
		}
	}

	eng := engine.New(engine.Options{
		Rules:   cfg.Ruleset(),
		Weights: cfg.Weights,
		Search:  cfg.SearchConfig(),
		Logger:  log,
	})

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              *listen,
		Handler:           NewServer(dirs, eng, cfg.Ruleset(), *budget, log).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("viewer listening", "addr", *listen, "roots", dirs)
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

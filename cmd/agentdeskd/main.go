// Package main provides the agentdesk engine daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/meridianhq/agentdesk/internal/config"
	"github.com/meridianhq/agentdesk/internal/contextwatch"
	"github.com/meridianhq/agentdesk/internal/notify"
	"github.com/meridianhq/agentdesk/internal/search"
	"github.com/meridianhq/agentdesk/internal/server"
	"github.com/meridianhq/agentdesk/internal/session"
	"github.com/meridianhq/agentdesk/internal/workspace"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	listen := flag.String("listen", "", "Listen address (default from config)")
	dataDir := flag.String("data-dir", "", "Data directory (default: ~/.agentdesk)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})

	if *dataDir != "" {
		os.Setenv("AGENTDESK_DATA_DIR", *dataDir)
	}
	if err := config.EnsureAll(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize data directory")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load config, using defaults")
		cfg = config.Default()
	}
	if *listen != "" {
		cfg.ListenAddr = *listen
	}

	paths := workspace.NewPaths(config.DataDir())
	workspaces := workspace.NewStore(paths)
	if err := workspaces.EnsureDefault(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure default workspace")
	}
	sessions := session.NewStore(paths, workspaces)

	var index *search.Index
	if cfg.SearchEnabled {
		index, err = search.Open(config.SearchIndexPath())
		if err != nil {
			log.Warn().Err(err).Msg("Search index unavailable, continuing without search")
		}
	}

	estimator, err := contextwatch.NewEstimator()
	if err != nil {
		log.Warn().Err(err).Msg("Tokenizer unavailable, context estimates disabled")
		estimator = nil
	}

	srv := server.New(server.Config{
		Sessions:      sessions,
		Workspaces:    workspaces,
		Index:         index,
		Estimator:     estimator,
		ContextWindow: cfg.ContextWindow,
	})

	notifier := notify.New(paths.WorkspacesDir(), srv, cfg.DebounceWindow())
	if err := notifier.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start file-change notifier")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("Shutting down")
		cancel()
	}()

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.ListenAddr).Str("version", Version).Msg("agentdesk engine listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if index == nil {
			return nil
		}
		// Rebuild the derived search projection in the background.
		if err := index.Rebuild(gctx, sessions); err != nil {
			log.Warn().Err(err).Msg("Search index rebuild failed")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Engine exited with error")
	}

	if err := notifier.Stop(); err != nil {
		log.Warn().Err(err).Msg("Failed to stop notifier")
	}
	if index != nil {
		if err := index.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close search index")
		}
	}
}

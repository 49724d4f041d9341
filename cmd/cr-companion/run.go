package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/crtools/cr-companion/internal/archetype"
	"github.com/crtools/cr-companion/internal/cards"
	"github.com/crtools/cr-companion/internal/config"
	"github.com/crtools/cr-companion/internal/detect"
	"github.com/crtools/cr-companion/internal/events"
	"github.com/crtools/cr-companion/internal/feed"
	"github.com/crtools/cr-companion/internal/history"
	"github.com/crtools/cr-companion/internal/match"
	"github.com/crtools/cr-companion/internal/pipeline"
	"github.com/crtools/cr-companion/internal/server"
	"github.com/crtools/cr-companion/internal/tracker"
)

// RunCmd runs the companion: detector ticks in on stdin, overlay feed out
// over WebSocket, matches persisted to SQLite.
type RunCmd struct {
	NoServer  bool `help:"Disable the overlay WebSocket feed."`
	NoHistory bool `help:"Disable match history persistence."`
}

// Run implements the kong command.
func (r *RunCmd) Run(rc *runContext) error {
	cfg := rc.config
	logger := rc.logger
	clock := quartz.NewReal()

	catalog := cards.Load(cfg.Catalog.Path, logger)
	if cfg.Catalog.Watch && cfg.Catalog.Path != "" {
		watcher, err := cards.Watch(catalog, cfg.Catalog.Path, logger)
		if err != nil {
			logger.Warn("catalog watching disabled", "error", err)
		} else {
			defer watcher.Close()
		}
	}

	dispatcher := events.NewDispatcher(logger)
	classifier := archetype.NewClassifier(archetypeConfig(cfg))

	sessionCfg := &tracker.SessionConfig{
		Estimator: &tracker.EstimatorConfig{
			StartElixir: cfg.Elixir.StartElixir,
			MaxElixir:   cfg.Elixir.MaxElixir,
			RegenRate:   cfg.Elixir.RegenRate,
			DoubleRate:  cfg.Elixir.DoubleRate,
		},
		HandSize:    cfg.Deck.HandSize,
		RecentPlays: cfg.Deck.RecentPlays,
	}
	newSession := func() *tracker.Session {
		return tracker.NewSession(sessionCfg, classifier, clock, logger)
	}

	controller := match.NewController(&match.Config{
		ResetThreshold: config.MustDuration(cfg.Match.ResetThreshold),
		DoubleElixirAt: config.MustDuration(cfg.Elixir.DoubleElixirAt),
	}, newSession, dispatcher, clock, logger)

	filter := detect.NewFilter(catalog, &detect.FilterConfig{
		ConfidenceThreshold: cfg.Detection.ConfidenceThreshold,
		DuplicateWindow:     config.MustDuration(cfg.Detection.DuplicateWindow),
	}, clock, logger)

	adapter := feed.Adapter{}
	pipe := pipeline.New(&pipeline.Config{
		QueueCapacity: cfg.Detection.QueueCapacity,
		TickInterval:  config.MustDuration(cfg.Detection.TickInterval),
	}, adapter, adapter, filter, controller, dispatcher, clock, logger)

	if cfg.History.Enabled && !r.NoHistory {
		store, err := history.Open(history.DefaultConfig(historyPath(cfg)))
		if err != nil {
			return err
		}
		defer store.Close()

		recorder := history.NewRecorder(store, logger)
		dispatcher.Register(recorder)
		defer recorder.Close(time.Now())
	}

	if cfg.Server.Enabled && !r.NoServer {
		srv := server.New(cfg.Server.Addr, logger)
		if err := srv.Start(); err != nil {
			return err
		}
		dispatcher.Register(srv)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reader := feed.NewReader(os.Stdin, pipe, clock, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return pipe.Run(ctx) })
	g.Go(func() error {
		// A closed feed means the detector process is gone; wind down.
		defer stop()
		return reader.Run(ctx)
	})

	logger.Info("companion running", "catalog_cards", catalog.Len())
	err := g.Wait()

	ticks := pipe.TickLatency().Stats()
	logger.Info("stopped",
		"dropped_frames", pipe.DroppedFrames(),
		"tick_p95_ms", ticks.P95,
		"ticks", ticks.Count,
		"detections", pipe.DetectionConfidence().Count(),
	)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func archetypeConfig(cfg *config.Config) *archetype.Config {
	if len(cfg.Deck.WinConditions) == 0 && len(cfg.Deck.CycleCards) == 0 && len(cfg.Deck.SiegeCards) == 0 {
		return nil
	}

	ac := archetype.DefaultConfig()
	if len(cfg.Deck.WinConditions) > 0 {
		ac.WinConditions = cfg.Deck.WinConditions
	}
	if len(cfg.Deck.CycleCards) > 0 {
		ac.CycleCards = cfg.Deck.CycleCards
	}
	if len(cfg.Deck.SiegeCards) > 0 {
		ac.SiegeCards = cfg.Deck.SiegeCards
	}
	return ac
}

func historyPath(cfg *config.Config) string {
	if cfg.History.Path != "" {
		return cfg.History.Path
	}
	dir, err := config.Dir()
	if err != nil {
		return "history.db"
	}
	return filepath.Join(dir, "history.db")
}

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/arin/scholar/internal/ai"
	"github.com/arin/scholar/internal/config"
	"github.com/arin/scholar/internal/history"
	"github.com/arin/scholar/internal/logger"
	"github.com/arin/scholar/internal/stats"
	"github.com/arin/scholar/internal/turn"
	"github.com/arin/scholar/internal/wikimedia"
)

// app bundles what most commands need: settings, state and collaborators.
type app struct {
	cfg      *config.Config
	store    *history.Store
	logger   *slog.Logger
	resolver *wikimedia.Resolver
	studio   *ai.Studio // nil without a Google API key
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	log := logger.New(level, os.Stderr)
	slog.SetDefault(log)

	store, err := history.Open()
	if err != nil {
		return nil, err
	}
	resolver, err := wikimedia.New(wikimedia.WithLogger(log))
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, store: store, logger: log, resolver: resolver}
	if cfg.GoogleAPIKey != "" {
		if a.studio, err = ai.NewStudio(ctx, cfg, ai.WithLogger(log)); err != nil {
			log.Debug("native helpers unavailable", "error", err)
		}
	}
	return a, nil
}

func (a *app) close() {
	a.resolver.Close()
}

// runner builds a turn runner that records stats under source.
func (a *app) runner(source string) *turn.Runner {
	opts := []turn.Option{
		turn.WithResolver(a.resolver),
		turn.WithRecorder(stats.Save, source),
		turn.WithLogger(a.logger),
	}
	if a.studio != nil {
		opts = append(opts, turn.WithSuggester(a.studio))
	}
	return turn.NewRunner(a.store, a.cfg, opts...)
}

// requireStudio returns the native helpers or a configuration hint.
func (a *app) requireStudio() (*ai.Studio, error) {
	if a.studio == nil {
		return nil, &config.MisconfiguredError{Provider: config.ProviderGoogle, Field: "Google API key"}
	}
	return a.studio, nil
}

// conversation returns the active conversation, or a fresh one when fresh is set.
func (a *app) conversation(fresh bool) (history.Conversation, error) {
	if fresh {
		return a.store.NewConversation()
	}
	return a.store.Active()
}

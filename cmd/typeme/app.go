package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verte-zerg/typeme/internal/backend"
	"github.com/verte-zerg/typeme/internal/backend/rest"
	"github.com/verte-zerg/typeme/internal/config"
	"github.com/verte-zerg/typeme/internal/gateway"
	"github.com/verte-zerg/typeme/internal/identity"
	"github.com/verte-zerg/typeme/internal/logging"
	"github.com/verte-zerg/typeme/internal/model"
	"github.com/verte-zerg/typeme/internal/ranking"
	"github.com/verte-zerg/typeme/internal/store"
	"github.com/verte-zerg/typeme/internal/viewmodel"
)

// app holds the wired dependencies shared by every command.
type app struct {
	settings config.Settings
	logger   *zap.Logger
	identity *identity.Store
	gateway  *gateway.Gateway
	closers  []func() error
}

func loadSettings(cmd *cobra.Command) (config.Settings, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return config.Settings{}, fmt.Errorf("failed to load config: %w", err)
	}
	env, err := config.LoadEnv(config.DefaultEnvPath())
	if err != nil {
		return config.Settings{}, fmt.Errorf("failed to load env: %w", err)
	}
	settings, err := config.Resolve(fileCfg, env)
	if err != nil {
		return config.Settings{}, err
	}
	applyFlags(cmd, &settings)
	if err := settings.Validate(); err != nil {
		return config.Settings{}, err
	}
	return settings, nil
}

func applyFlags(cmd *cobra.Command, s *config.Settings) {
	flags := cmd.Flags()
	if flags.Changed("duration") {
		s.Practice.Duration = practiceDuration
	}
	if flags.Changed("mode") {
		s.Practice.Mode = model.TestType(practiceMode)
	}
	if flags.Changed("words") {
		s.Practice.Words = practiceWords
	}
	if flags.Changed("wordlist") {
		s.Practice.WordListPath = practiceWordList
	}
	if flags.Changed("backend") {
		s.Backend.Kind = backendKind
	}
	if verbose {
		s.LogLevel = "debug"
	}
}

func openApp(cmd *cobra.Command) (*app, error) {
	settings, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(settings.LogPath, settings.LogLevel)
	if err != nil {
		return nil, err
	}
	a := &app{settings: settings, logger: logger}

	idStore, err := store.OpenLocal(settings.IdentityPath)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open local storage: %w", err)
	}
	a.closers = append(a.closers, idStore.Close)
	a.identity = identity.New(idStore)

	b, closeBackend, err := openBackend(settings.Backend, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	if closeBackend != nil {
		a.closers = append(a.closers, closeBackend)
	}

	opts := []gateway.Option{gateway.WithLogger(logger)}
	if settings.Backend.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(cmd.Context(), settings.Backend.Timeout)
		ranker, err := ranking.New(ctx, ranking.Config{
			Addr:        settings.Backend.RedisAddr,
			DialTimeout: settings.Backend.Timeout,
		})
		cancel()
		if err != nil {
			// Without Redis the gateway dedupes best scores itself.
			logger.Warn("ranking unavailable", zap.String("addr", settings.Backend.RedisAddr), zap.Error(err))
		} else {
			a.closers = append(a.closers, ranker.Close)
			opts = append(opts, gateway.WithRanker(ranker))
		}
	}
	a.gateway = gateway.New(b, a.identity, opts...)
	logger.Debug("app ready",
		zap.String("backend", settings.Backend.Kind),
		zap.Bool("ranking", settings.Backend.RedisAddr != ""),
	)
	return a, nil
}

func openBackend(s config.BackendSettings, logger *zap.Logger) (backend.Backend, func() error, error) {
	switch s.Kind {
	case config.KindREST:
		info, err := rest.InspectKey(s.Key)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid backend key: %w", err)
		}
		if info.Expired(time.Now()) {
			logger.Warn("backend key expired", zap.Time("expires_at", info.ExpiresAt))
			logErrf("warning: backend key expired at %s\n", info.ExpiresAt.Format(time.RFC3339))
		}
		client, err := rest.New(s.URL, s.Key,
			rest.WithLogger(logger),
			rest.WithHTTPClient(&http.Client{Timeout: s.Timeout}),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create backend client: %w", err)
		}
		return client, nil, nil
	case config.KindSQLite:
		st, err := store.OpenSQLite(s.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open db: %w", err)
		}
		return st, st.Close, nil
	case config.KindPostgres:
		st, err := store.Open(store.DriverPostgres, s.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open postgres: %w", err)
		}
		return st, st.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend kind %q", s.Kind)
	}
}

func (a *app) viewModel(best bool) *viewmodel.Model {
	return viewmodel.New(a.gateway,
		viewmodel.WithLogger(a.logger),
		viewmodel.WithBestPerSession(best),
	)
}

func (a *app) context(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, a.settings.Backend.Timeout)
}

// Close releases storage and flushes the logger.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("failed to close resource", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

// Package cli holds the start-up steps shared by every carteira command.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"carteira/internal/backend"
	"carteira/internal/cache"
	"carteira/internal/config"
	"carteira/internal/log"
	"carteira/internal/services"
)

// LoadEnvFile loads .env files for local development. Missing files are
// ignored; variables already set in the environment win.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// LoadConfig reads and validates the configuration.
func LoadConfig(v *viper.Viper, configFile string) (*config.Config, error) {
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger builds the process logger from cfg and installs it as the
// slog default.
func SetupLogger(cfg *config.Config) (*log.Logger, error) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	lc := log.DefaultConfig()
	lc.Level = level
	lc.Format = cfg.LogFormat
	lc.Output = os.Stderr
	logger := log.New(lc)
	log.SetDefault(logger)
	return logger, nil
}

// App is the assembled service graph.
type App struct {
	Config   *config.Config
	Logger   *log.Logger
	Backend  *backend.Result
	Metrics  *services.MetricsService
	Ledger   *services.TransactionService
	Location *time.Location

	caches *cache.Manager
}

// Open creates the backend and the services on top of it. Close releases
// everything Open acquired.
func Open(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	memo := cache.NewLRUCache[any](cfg.CacheSize, cfg.CacheTTL)
	caches := cache.NewManager(logger)
	caches.Register(memo)
	caches.StartCleanup(cfg.CacheTTL)

	metricsSvc := services.NewMetricsService(res.Store, memo, logger)
	return &App{
		Config:   cfg,
		Logger:   logger,
		Backend:  res,
		Metrics:  metricsSvc,
		Ledger:   services.NewTransactionService(res.Store, metricsSvc, res.Publisher, logger),
		Location: loc,
		caches:   caches,
	}, nil
}

// Session is the default user's session in the configured timezone.
func (a *App) Session(user string) services.Session {
	if user == "" {
		user = a.Config.DefaultUser
	}
	return services.Session{UserID: user, Location: a.Location}
}

func (a *App) Close() error {
	a.caches.Stop()
	return a.Backend.Cleanup()
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context, logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// GracefulShutdown runs each step with a shared deadline and joins their
// errors.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, steps ...func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	for _, step := range steps {
		if err := step(ctx); err != nil {
			logger.Error("Shutdown step failed", log.FieldOperation, log.OpShutdown, log.FieldError, err)
			errs = append(errs, err)
		}
	}
	if ctx.Err() != nil {
		logger.Warn("Shutdown timeout reached")
	} else {
		logger.Info("Shutdown complete")
	}
	return errors.Join(errs...)
}

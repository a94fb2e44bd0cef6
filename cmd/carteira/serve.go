package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"carteira/internal/cli"
	"carteira/internal/log"
	apphttp "carteira/internal/http"
	"carteira/internal/middleware/ratelimit"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON API",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger := state.cfg, state.logger

	ctx, cancel := cli.SignalContext(cmd.Context(), logger)
	defer cancel()

	app, err := cli.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}

	limits := ratelimit.DefaultConfig()
	limits.RequestsPerSecond = cfg.RateLimitRPS
	limits.Burst = cfg.RateLimitBurst

	srv := apphttp.NewServer(apphttp.Options{
		Addr:        ":" + cfg.Port,
		Metrics:     app.Metrics,
		Ledger:      app.Ledger,
		Ping:        apphttp.PingFunc(app.Backend.Ping),
		Logger:      logger,
		RateLimit:   limits,
		DefaultUser: cfg.DefaultUser,
		Location:    app.Location,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", log.FieldOperation, log.OpStartup, "addr", srv.Addr, "backend", cfg.DataBackend, "read_only", app.Backend.ReadOnly)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server failed", "error", err)
		}
		cancel()
	}

	return cli.GracefulShutdown(logger, cfg.ShutdownTimeout,
		srv.Shutdown,
		func(context.Context) error { return app.Close() },
	)
}

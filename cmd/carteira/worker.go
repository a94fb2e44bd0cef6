package main

import (
	"errors"

	"github.com/spf13/cobra"

	"carteira/internal/cli"
	"carteira/internal/log"
	"carteira/internal/worker"
)

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Refresh metrics and raise budget alerts on data change events",
		RunE:  runWorker,
	}
}

func runWorker(cmd *cobra.Command, _ []string) error {
	cfg, logger := state.cfg, state.logger
	if !cfg.EventsEnabled() {
		return errors.New("worker needs an AMQP broker: set CARTEIRA_AMQP_URL")
	}

	ctx, cancel := cli.SignalContext(cmd.Context(), logger)
	defer cancel()

	app, err := cli.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	if app.Backend.Events == nil {
		return errors.New("worker could not connect to the AMQP broker")
	}

	w := worker.NewRefreshWorker(app.Metrics, app.Backend.Events, app.Location, logger)
	logger.Info("Refresh worker started", log.FieldOperation, log.OpStartup, "queue", cfg.AMQPQueue, "alert_queue", cfg.AMQPAlertQueue)
	return w.Run(ctx, app.Backend.Events)
}

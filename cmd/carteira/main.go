// Command carteira serves personal finance metrics and budget pacing.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"carteira/internal/cli"
	"carteira/internal/config"
	"carteira/internal/log"
)

var (
	cfgFile string
	version = "dev"
)

// state is filled by the root command before any subcommand runs.
var state struct {
	cfg    *config.Config
	logger *log.Logger
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "carteira",
		Short:         "Personal finance metrics and budget pacing",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := cli.LoadEnvFile(); err != nil {
				return err
			}
			cfg, err := cli.LoadConfig(viper.GetViper(), cfgFile)
			if err != nil {
				return err
			}
			logger, err := cli.SetupLogger(cfg)
			if err != nil {
				return err
			}
			state.cfg = cfg
			state.logger = logger
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "text", "log format (text, json)")
	_ = viper.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log_format", root.PersistentFlags().Lookup("log-format"))

	root.AddCommand(serveCmd())
	root.AddCommand(workerCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(reportCmd())
	root.AddCommand(dashboardCmd())
	return root
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

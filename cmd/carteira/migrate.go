package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"carteira/internal/log"
	"carteira/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply SQLite schema migrations",
		RunE:  runMigrate,
	}
	cmd.Flags().String("db", "", "database path (default: sqlite_db_path setting)")
	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, logger := state.cfg, state.logger
	path := cfg.SQLiteDBPath
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create database directory: %w", err)
	}

	version, err := storage.RunMigrations(path)
	if err != nil {
		return fmt.Errorf("migrate %s: %w", path, err)
	}
	logger.Info("Database migrations applied",
		log.FieldOperation, log.OpMigrate, "db_path", path, "schema_version", version)
	fmt.Fprintf(cmd.OutOrStdout(), "%s is at schema version %d\n", path, version)
	return nil
}

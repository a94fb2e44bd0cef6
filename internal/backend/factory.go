package backend

import (
	"context"
	"fmt"

	"carteira/internal/amqp"
	"carteira/internal/datastore"
	"carteira/internal/datastore/memory"
	"carteira/internal/datastore/sheets"
	"carteira/internal/log"
	"carteira/internal/storage"
)

// DefaultFactory builds the backends shipped with the application.
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	res := &Result{
		Store:   repo,
		Ping:    repo.Ping,
		Cleanup: repo.Close,
	}

	// Events are optional: without a broker writes still succeed.
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(ctx, amqp.Options{
			URL:        config.AMQPURL,
			Exchange:   config.AMQPExchange,
			Queue:      config.AMQPQueue,
			AlertQueue: config.AMQPAlertQueue,
			Logger:     f.logger,
		})
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events",
				log.FieldError, err.Error())
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange, "queue", config.AMQPQueue)
			res.Publisher = client
			res.Events = client
			res.Cleanup = func() error {
				client.Close()
				return repo.Close()
			}
		}
	}

	f.logger.InfoContext(ctx, "Initialized SQLite backend",
		"db_path", config.SQLiteDBPath, "events_enabled", res.Publisher != nil)
	return res, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*Result, error) {
	client, err := sheets.New(ctx, sheets.Options{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		CredentialsFile: config.GoogleCredentialsFile,
		CredentialsJSON: config.GoogleCredentialsJSON,
		Logger:          f.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized Google Sheets backend (read-only)",
		"spreadsheet_id", config.GoogleSpreadsheetID)
	return &Result{
		Store:    datastore.ReadOnly(client),
		Ping:     noopPing,
		Cleanup:  noopCleanup,
		ReadOnly: true,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*Result, error) {
	user := config.DefaultUser
	if user == "" {
		user = "default"
	}
	store, err := memory.NewFromFile(config.SeedFile, user)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
	}

	f.logger.Info("Initialized memory backend", "seed_file", config.SeedFile, log.FieldUserID, user)
	return &Result{
		Store:   store,
		Ping:    noopPing,
		Cleanup: noopCleanup,
	}, nil
}

func noopPing(context.Context) error { return nil }

func noopCleanup() error { return nil }

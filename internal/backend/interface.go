package backend

import (
	"context"

	"carteira/internal/amqp"
	"carteira/internal/datastore"
)

// CleanupFunc releases whatever a backend opened.
type CleanupFunc func() error

// PingFunc reports whether the backend can serve requests.
type PingFunc func(ctx context.Context) error

// Result is a ready backend. Publisher and Events are nil when change
// events are disabled; Cleanup is never nil.
type Result struct {
	Store     datastore.Store
	Publisher amqp.Publisher
	Events    *amqp.Client
	Ping      PingFunc
	Cleanup   CleanupFunc
	ReadOnly  bool
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// Package datastore defines the ports the metrics and ledger services use to
// reach a user's transactions, categories and goals.
package datastore

import (
	"context"
	"errors"
	"sort"

	"carteira/internal/core"
)

// ErrReadOnly is returned by backends that cannot accept writes.
var ErrReadOnly = errors.New("datastore: backend is read-only")

// Ports for outbound adapters.
type (
	TransactionReader interface {
		// ListTransactions returns every transaction of the user, newest
		// first; same-day rows are ordered by creation time, newest first.
		ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
	}

	CategoryReader interface {
		ListCategories(ctx context.Context, userID string) ([]core.Category, error)
	}

	GoalReader interface {
		ListGoals(ctx context.Context, userID string) ([]core.FinancialGoal, error)
	}

	// Source is everything the metrics need to read.
	Source interface {
		TransactionReader
		CategoryReader
		GoalReader
	}

	TransactionWriter interface {
		// CreateTransaction stores tx, assigning ID and CreatedAt when unset.
		CreateTransaction(ctx context.Context, userID string, tx core.Transaction) (core.Transaction, error)
		// CreateTransactions stores all rows or none.
		CreateTransactions(ctx context.Context, userID string, txs []core.Transaction) ([]core.Transaction, error)
		// DeleteTransaction returns core.ErrNotFound for unknown ids.
		DeleteTransaction(ctx context.Context, userID, id string) error
	}

	CategoryWriter interface {
		CreateCategory(ctx context.Context, userID string, c core.Category) (core.Category, error)
	}

	GoalWriter interface {
		CreateGoal(ctx context.Context, userID string, g core.FinancialGoal) (core.FinancialGoal, error)
	}

	// Store is a full read/write backend.
	Store interface {
		Source
		TransactionWriter
		CategoryWriter
		GoalWriter
	}
)

// SortTransactions orders txs the way ListTransactions promises.
func SortTransactions(txs []core.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		a, b := txs[i], txs[j]
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.After(b.Date.Time)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}

type readOnly struct {
	Source
}

// ReadOnly turns a Source into a Store whose writes fail with ErrReadOnly.
func ReadOnly(src Source) Store {
	return readOnly{Source: src}
}

func (readOnly) CreateTransaction(context.Context, string, core.Transaction) (core.Transaction, error) {
	return core.Transaction{}, ErrReadOnly
}

func (readOnly) CreateTransactions(context.Context, string, []core.Transaction) ([]core.Transaction, error) {
	return nil, ErrReadOnly
}

func (readOnly) DeleteTransaction(context.Context, string, string) error {
	return ErrReadOnly
}

func (readOnly) CreateCategory(context.Context, string, core.Category) (core.Category, error) {
	return core.Category{}, ErrReadOnly
}

func (readOnly) CreateGoal(context.Context, string, core.FinancialGoal) (core.FinancialGoal, error) {
	return core.FinancialGoal{}, ErrReadOnly
}

package services

import (
	"context"
	"fmt"

	"carteira/internal/amqp"
	"carteira/internal/core"
	"carteira/internal/datastore"
	"carteira/internal/finance"
	"carteira/internal/log"
)

// Invalidator drops cached metrics of a user after a write.
type Invalidator interface {
	Invalidate(userID string)
}

// TransactionService orchestrates writes: validate, store, invalidate the
// user's metrics, then announce the change. A failed announcement is logged
// and never fails the write.
type TransactionService struct {
	store     datastore.Store
	metrics   Invalidator
	publisher amqp.Publisher
	logger    *log.Logger
}

func NewTransactionService(store datastore.Store, metrics Invalidator, publisher amqp.Publisher, logger *log.Logger) *TransactionService {
	if logger == nil {
		logger = log.Discard()
	}
	return &TransactionService{
		store:     store,
		metrics:   metrics,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentLedger),
	}
}

func (s *TransactionService) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	txs, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

func (s *TransactionService) CreateTransaction(ctx context.Context, userID string, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	created, err := s.store.CreateTransaction(ctx, userID, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "Transaction created", log.NewFields().
		WithOperation(log.OpCreate).
		WithUser(userID).
		WithTransaction(created.ID, created.Title, created.Amount.Cents, created.CategoryID).
		ToSlice()...)

	s.changed(ctx, userID, amqp.EntityTransaction)
	return created, nil
}

// CreatePurchase splits req into installments and stores them all or none.
func (s *TransactionService) CreatePurchase(ctx context.Context, userID string, req finance.PurchaseRequest) ([]core.Transaction, error) {
	txs, err := finance.Installments(req)
	if err != nil {
		return nil, err
	}
	created, err := s.store.CreateTransactions(ctx, userID, txs)
	if err != nil {
		return nil, fmt.Errorf("save installments: %w", err)
	}

	s.logger.InfoContext(ctx, "Purchase created",
		log.FieldUserID, userID, log.FieldTitle, req.Title,
		log.FieldAmount, req.Amount.Cents, log.FieldRows, len(created))

	s.changed(ctx, userID, amqp.EntityTransaction)
	return created, nil
}

func (s *TransactionService) DeleteTransaction(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	s.logger.InfoContext(ctx, "Transaction deleted",
		log.FieldUserID, userID, log.FieldEntityID, id, log.FieldOperation, log.OpDelete)

	s.changed(ctx, userID, amqp.EntityTransaction)
	return nil
}

func (s *TransactionService) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	cats, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

func (s *TransactionService) CreateCategory(ctx context.Context, userID string, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	created, err := s.store.CreateCategory(ctx, userID, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("save category: %w", err)
	}
	s.changed(ctx, userID, amqp.EntityCategory)
	return created, nil
}

func (s *TransactionService) ListGoals(ctx context.Context, userID string) ([]core.FinancialGoal, error) {
	goals, err := s.store.ListGoals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return goals, nil
}

func (s *TransactionService) CreateGoal(ctx context.Context, userID string, g core.FinancialGoal) (core.FinancialGoal, error) {
	if err := g.Validate(); err != nil {
		return core.FinancialGoal{}, err
	}
	created, err := s.store.CreateGoal(ctx, userID, g)
	if err != nil {
		return core.FinancialGoal{}, fmt.Errorf("save goal: %w", err)
	}
	s.changed(ctx, userID, amqp.EntityGoal)
	return created, nil
}

func (s *TransactionService) changed(ctx context.Context, userID, entity string) {
	if s.metrics != nil {
		s.metrics.Invalidate(userID)
	}
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No event publisher configured, skipping change event", log.FieldEntity, entity)
		return
	}
	if err := s.publisher.PublishDataChanged(ctx, userID, entity); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish change event",
			log.FieldUserID, userID, log.FieldEntity, entity, log.FieldError, err.Error())
	}
}

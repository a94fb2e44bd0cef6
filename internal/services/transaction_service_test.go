package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carteira/internal/amqp"
	"carteira/internal/core"
	"carteira/internal/datastore"
	"carteira/internal/datastore/memory"
	"carteira/internal/finance"
)

type recordingInvalidator struct{ users []string }

func (r *recordingInvalidator) Invalidate(userID string) { r.users = append(r.users, userID) }

type recordingPublisher struct {
	entities []string
	alerts   []amqp.BudgetAlert
	err      error
}

func (p *recordingPublisher) PublishDataChanged(_ context.Context, _ string, entity string) error {
	p.entities = append(p.entities, entity)
	return p.err
}

func (p *recordingPublisher) PublishBudgetAlert(_ context.Context, alert amqp.BudgetAlert) error {
	p.alerts = append(p.alerts, alert)
	return p.err
}

func validTx() core.Transaction {
	return core.Transaction{
		Date:   core.MustParseDate("2024-03-10"),
		Type:   core.Expense,
		Amount: core.Money{Cents: 2590},
		Title:  "Farmácia",
	}
}

func TestTransactionServiceCreate(t *testing.T) {
	inv := &recordingInvalidator{}
	pub := &recordingPublisher{}
	svc := NewTransactionService(memory.New(), inv, pub, nil)
	ctx := context.Background()

	created, err := svc.CreateTransaction(ctx, "alice", validTx())
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, []string{"alice"}, inv.users)
	assert.Equal(t, []string{amqp.EntityTransaction}, pub.entities)

	txs, err := svc.ListTransactions(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestTransactionServiceRejectsInvalidInput(t *testing.T) {
	inv := &recordingInvalidator{}
	pub := &recordingPublisher{}
	svc := NewTransactionService(memory.New(), inv, pub, nil)

	tx := validTx()
	tx.Amount = core.Money{}
	_, err := svc.CreateTransaction(context.Background(), "alice", tx)
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
	assert.Empty(t, inv.users)
	assert.Empty(t, pub.entities)
}

func TestTransactionServicePublishFailureDoesNotFailWrite(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewTransactionService(memory.New(), nil, pub, nil)

	_, err := svc.CreateTransaction(context.Background(), "alice", validTx())
	assert.NoError(t, err)
	assert.Len(t, pub.entities, 1)
}

func TestTransactionServiceWithoutPublisher(t *testing.T) {
	svc := NewTransactionService(memory.New(), nil, nil, nil)
	_, err := svc.CreateTransaction(context.Background(), "alice", validTx())
	assert.NoError(t, err)
}

func TestTransactionServiceCreatePurchase(t *testing.T) {
	store := memory.New()
	pub := &recordingPublisher{}
	svc := NewTransactionService(store, nil, pub, nil)
	ctx := context.Background()

	created, err := svc.CreatePurchase(ctx, "alice", finance.PurchaseRequest{
		Title:        "Sofá",
		Amount:       core.Money{Cents: 120000},
		Installments: 4,
		FirstDate:    core.MustParseDate("2024-03-15"),
	})
	require.NoError(t, err)
	require.Len(t, created, 4)
	assert.Len(t, pub.entities, 1, "one event per purchase")

	txs, err := store.ListTransactions(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, txs, 4)
	assert.Equal(t, "2024-06-15", txs[0].Date.String())
	for _, tx := range txs {
		assert.Equal(t, created[0].InstallmentGroupID, tx.InstallmentGroupID)
		assert.Equal(t, int64(30000), tx.Amount.Cents)
	}

	_, err = svc.CreatePurchase(ctx, "alice", finance.PurchaseRequest{Title: "x", Amount: core.Money{Cents: 1}, FirstDate: core.MustParseDate("2024-03-15")})
	assert.ErrorIs(t, err, finance.ErrInvalidCount)
}

func TestTransactionServiceDelete(t *testing.T) {
	inv := &recordingInvalidator{}
	svc := NewTransactionService(memory.New(), inv, nil, nil)
	ctx := context.Background()

	created, err := svc.CreateTransaction(ctx, "alice", validTx())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTransaction(ctx, "alice", created.ID))
	assert.ErrorIs(t, svc.DeleteTransaction(ctx, "alice", created.ID), core.ErrNotFound)
	assert.Equal(t, []string{"alice", "alice"}, inv.users)
}

func TestTransactionServiceCategoriesAndGoals(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewTransactionService(memory.New(), nil, pub, nil)
	ctx := context.Background()

	_, err := svc.CreateCategory(ctx, "alice", core.Category{Name: "Lazer", Type: core.CategoryExpense})
	require.NoError(t, err)
	_, err = svc.CreateCategory(ctx, "alice", core.Category{Name: "", Type: core.CategoryExpense})
	assert.ErrorIs(t, err, core.ErrEmptyName)

	_, err = svc.CreateGoal(ctx, "alice", core.FinancialGoal{Name: "Reserva", TargetAmount: core.Money{Cents: 1000000}})
	require.NoError(t, err)

	cats, err := svc.ListCategories(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, cats, 1)
	goals, err := svc.ListGoals(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, goals, 1)

	assert.Equal(t, []string{amqp.EntityCategory, amqp.EntityGoal}, pub.entities)
}

func TestTransactionServiceReadOnlyStore(t *testing.T) {
	svc := NewTransactionService(datastore.ReadOnly(memory.New()), nil, nil, nil)
	_, err := svc.CreateTransaction(context.Background(), "alice", validTx())
	assert.ErrorIs(t, err, datastore.ErrReadOnly)
}

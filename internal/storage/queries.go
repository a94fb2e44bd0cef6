package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries holds the statements of the repository, bound to a DB or a Tx.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// TransactionRow mirrors the transactions table.
type TransactionRow struct {
	ID                 string
	UserID             string
	Date               string
	AmountCents        int64
	Type               string
	Title              string
	Subtitle           string
	CategoryID         string
	IsFixed            bool
	InstallmentNumber  int64
	InstallmentTotal   int64
	InstallmentGroupID string
	InterestRate       sql.NullFloat64
	LoanAmountCents    sql.NullInt64
	TotalInterestCents sql.NullInt64
	CreatedAt          int64
}

const createTransaction = `
INSERT INTO transactions (
    id, user_id, date, amount_cents, type, title, subtitle, category_id, is_fixed,
    installment_number, installment_total, installment_group_id,
    interest_rate, loan_amount_cents, total_interest_cents, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTransaction(ctx context.Context, r TransactionRow) error {
	_, err := q.db.ExecContext(ctx, createTransaction,
		r.ID, r.UserID, r.Date, r.AmountCents, r.Type, r.Title, r.Subtitle, r.CategoryID, r.IsFixed,
		r.InstallmentNumber, r.InstallmentTotal, r.InstallmentGroupID,
		r.InterestRate, r.LoanAmountCents, r.TotalInterestCents, r.CreatedAt,
	)
	return err
}

const listTransactions = `
SELECT id, user_id, date, amount_cents, type, title, subtitle, category_id, is_fixed,
       installment_number, installment_total, installment_group_id,
       interest_rate, loan_amount_cents, total_interest_cents, created_at
FROM transactions
WHERE user_id = ?
ORDER BY date DESC, created_at DESC`

func (q *Queries) ListTransactions(ctx context.Context, userID string) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []TransactionRow
	for rows.Next() {
		var r TransactionRow
		if err := rows.Scan(
			&r.ID, &r.UserID, &r.Date, &r.AmountCents, &r.Type, &r.Title, &r.Subtitle, &r.CategoryID, &r.IsFixed,
			&r.InstallmentNumber, &r.InstallmentTotal, &r.InstallmentGroupID,
			&r.InterestRate, &r.LoanAmountCents, &r.TotalInterestCents, &r.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const deleteTransaction = `DELETE FROM transactions WHERE user_id = ? AND id = ?`

// DeleteTransaction returns the number of rows removed.
func (q *Queries) DeleteTransaction(ctx context.Context, userID, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, userID, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type CategoryRow struct {
	ID          string
	UserID      string
	Name        string
	Type        string
	BudgetCents int64
	Color       string
}

const createCategory = `
INSERT INTO categories (id, user_id, name, type, budget_cents, color)
VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateCategory(ctx context.Context, r CategoryRow) error {
	_, err := q.db.ExecContext(ctx, createCategory, r.ID, r.UserID, r.Name, r.Type, r.BudgetCents, r.Color)
	return err
}

const listCategories = `
SELECT id, user_id, name, type, budget_cents, color
FROM categories
WHERE user_id = ?
ORDER BY name`

func (q *Queries) ListCategories(ctx context.Context, userID string) ([]CategoryRow, error) {
	rows, err := q.db.QueryContext(ctx, listCategories, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []CategoryRow
	for rows.Next() {
		var r CategoryRow
		if err := rows.Scan(&r.ID, &r.UserID, &r.Name, &r.Type, &r.BudgetCents, &r.Color); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

type GoalRow struct {
	ID           string
	UserID       string
	Name         string
	TargetCents  int64
	CurrentCents int64
	Deadline     sql.NullString
}

const createGoal = `
INSERT INTO goals (id, user_id, name, target_cents, current_cents, deadline)
VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateGoal(ctx context.Context, r GoalRow) error {
	_, err := q.db.ExecContext(ctx, createGoal, r.ID, r.UserID, r.Name, r.TargetCents, r.CurrentCents, r.Deadline)
	return err
}

const listGoals = `
SELECT id, user_id, name, target_cents, current_cents, deadline
FROM goals
WHERE user_id = ?
ORDER BY name`

func (q *Queries) ListGoals(ctx context.Context, userID string) ([]GoalRow, error) {
	rows, err := q.db.QueryContext(ctx, listGoals, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []GoalRow
	for rows.Next() {
		var r GoalRow
		if err := rows.Scan(&r.ID, &r.UserID, &r.Name, &r.TargetCents, &r.CurrentCents, &r.Deadline); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

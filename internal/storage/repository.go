package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"carteira/internal/core"
	"carteira/internal/datastore"
	"carteira/internal/log"
)

var _ datastore.Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
	now     func() time.Time
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// migrates it to the latest schema.
func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentStorage)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Debug("SQLite database ready", "path", dbPath, "schema_version", version)

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  logger,
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable; used by readiness checks.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// WithClock sets the clock stamping CreatedAt.
func (r *SQLiteRepository) WithClock(now func() time.Time) *SQLiteRepository {
	r.now = now
	return r
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		tx, err := r.fromTransactionRow(ctx, row)
		if err != nil {
			r.logger.WarnContext(ctx, "Skipping unreadable transaction row",
				log.FieldEntityID, row.ID, log.FieldError, err.Error())
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

func (r *SQLiteRepository) fromTransactionRow(ctx context.Context, row TransactionRow) (core.Transaction, error) {
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	tx := core.Transaction{
		ID:                 row.ID,
		Date:               date,
		Amount:             core.Money{Cents: row.AmountCents},
		Type:               core.TransactionType(row.Type),
		Title:              row.Title,
		CategoryID:         row.CategoryID,
		IsFixed:            row.IsFixed,
		InstallmentNumber:  int(row.InstallmentNumber),
		InstallmentTotal:   int(row.InstallmentTotal),
		InstallmentGroupID: row.InstallmentGroupID,
		CreatedAt:          time.Unix(0, row.CreatedAt).UTC(),
	}

	if row.InterestRate.Valid {
		tx.Financing = &core.FinancingDetails{
			InterestRate:  row.InterestRate.Float64,
			LoanAmount:    core.Money{Cents: row.LoanAmountCents.Int64},
			TotalInterest: core.Money{Cents: row.TotalInterestCents.Int64},
		}
		return tx, nil
	}

	if _, fin, err := DecodeLegacySubtitle(row.Subtitle); err != nil {
		r.logger.WarnContext(ctx, "Ignoring malformed legacy financing",
			log.FieldEntityID, row.ID, log.FieldError, err.Error())
	} else if fin != nil {
		tx.Financing = fin
	}
	return tx, nil
}

func (r *SQLiteRepository) toTransactionRow(userID string, tx core.Transaction) (core.Transaction, TransactionRow, error) {
	tx.Title = SanitizeText(tx.Title)
	if err := tx.Validate(); err != nil {
		return tx, TransactionRow{}, err
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = r.now().UTC()
	}
	row := TransactionRow{
		ID:                 tx.ID,
		UserID:             userID,
		Date:               tx.Date.String(),
		AmountCents:        tx.Amount.Cents,
		Type:               string(tx.Type),
		Title:              tx.Title,
		CategoryID:         tx.CategoryID,
		IsFixed:            tx.IsFixed,
		InstallmentNumber:  int64(tx.InstallmentNumber),
		InstallmentTotal:   int64(tx.InstallmentTotal),
		InstallmentGroupID: tx.InstallmentGroupID,
		CreatedAt:          tx.CreatedAt.UnixNano(),
	}
	if f := tx.Financing; f != nil {
		row.InterestRate = sql.NullFloat64{Float64: f.InterestRate, Valid: true}
		row.LoanAmountCents = sql.NullInt64{Int64: f.LoanAmount.Cents, Valid: true}
		row.TotalInterestCents = sql.NullInt64{Int64: f.TotalInterest.Cents, Valid: true}
	}
	return tx, row, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, userID string, tx core.Transaction) (core.Transaction, error) {
	created, err := r.CreateTransactions(ctx, userID, []core.Transaction{tx})
	if err != nil {
		return core.Transaction{}, err
	}
	return created[0], nil
}

// CreateTransactions inserts all rows in one database transaction.
func (r *SQLiteRepository) CreateTransactions(ctx context.Context, userID string, txs []core.Transaction) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(txs))
	rows := make([]TransactionRow, 0, len(txs))
	for _, tx := range txs {
		tx, row, err := r.toTransactionRow(userID, tx)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
		rows = append(rows, row)
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer dbTx.Rollback()

	q := r.queries.WithTx(dbTx)
	for _, row := range rows {
		if err := q.CreateTransaction(ctx, row); err != nil {
			return nil, fmt.Errorf("insert transaction: %w", err)
		}
	}
	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	r.logger.InfoContext(ctx, "Transactions saved", log.FieldUserID, userID, log.FieldRows, len(out))
	return out, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id string) error {
	n, err := r.queries.DeleteTransaction(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	rows, err := r.queries.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.Category{
			ID:     row.ID,
			Name:   row.Name,
			Type:   core.CategoryType(row.Type),
			Budget: core.Money{Cents: row.BudgetCents},
			Color:  row.Color,
		})
	}
	return out, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, userID string, c core.Category) (core.Category, error) {
	c.Name = SanitizeText(c.Name)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	err := r.queries.CreateCategory(ctx, CategoryRow{
		ID:          c.ID,
		UserID:      userID,
		Name:        c.Name,
		Type:        string(c.Type),
		BudgetCents: c.Budget.Cents,
		Color:       c.Color,
	})
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) ListGoals(ctx context.Context, userID string) ([]core.FinancialGoal, error) {
	rows, err := r.queries.ListGoals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	out := make([]core.FinancialGoal, 0, len(rows))
	for _, row := range rows {
		g := core.FinancialGoal{
			ID:            row.ID,
			Name:          row.Name,
			TargetAmount:  core.Money{Cents: row.TargetCents},
			CurrentAmount: core.Money{Cents: row.CurrentCents},
		}
		if row.Deadline.Valid && row.Deadline.String != "" {
			d, err := core.ParseDate(row.Deadline.String)
			if err != nil {
				r.logger.WarnContext(ctx, "Ignoring unreadable goal deadline",
					log.FieldEntityID, row.ID, log.FieldError, err.Error())
			} else {
				g.Deadline = &d
			}
		}
		out = append(out, g)
	}
	return out, nil
}

func (r *SQLiteRepository) CreateGoal(ctx context.Context, userID string, g core.FinancialGoal) (core.FinancialGoal, error) {
	g.Name = SanitizeText(g.Name)
	if err := g.Validate(); err != nil {
		return core.FinancialGoal{}, err
	}
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	row := GoalRow{
		ID:           g.ID,
		UserID:       userID,
		Name:         g.Name,
		TargetCents:  g.TargetAmount.Cents,
		CurrentCents: g.CurrentAmount.Cents,
	}
	if g.Deadline != nil && !g.Deadline.IsZero() {
		row.Deadline = sql.NullString{String: g.Deadline.String(), Valid: true}
	}
	if err := r.queries.CreateGoal(ctx, row); err != nil {
		return core.FinancialGoal{}, fmt.Errorf("insert goal: %w", err)
	}
	return g, nil
}

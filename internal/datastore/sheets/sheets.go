// Package sheets reads a user's ledger from a Google spreadsheet with one tab
// per collection. It is a read-only datastore.Source.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"carteira/internal/core"
	"carteira/internal/datastore"
	"carteira/internal/log"
)

// Default tab names.
const (
	TransactionsTab = "Transactions"
	CategoriesTab   = "Categories"
	GoalsTab        = "Goals"
)

var _ datastore.Source = (*Client)(nil)

// ValuesGetter fetches the cell values of an A1 range.
type ValuesGetter interface {
	Get(ctx context.Context, spreadsheetID, rng string) ([][]any, error)
}

type Options struct {
	SpreadsheetID   string
	CredentialsFile string
	CredentialsJSON string
	TransactionsTab string
	CategoriesTab   string
	GoalsTab        string
	Logger          *log.Logger
}

type Client struct {
	values          ValuesGetter
	spreadsheetID   string
	transactionsTab string
	categoriesTab   string
	goalsTab        string
	logger          *log.Logger
}

// New builds a client authenticated with service-account credentials.
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithGetter(serviceGetter{svc: svc}, opts), nil
}

// NewWithGetter builds a client over any ValuesGetter.
func NewWithGetter(values ValuesGetter, opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	return &Client{
		values:          values,
		spreadsheetID:   opts.SpreadsheetID,
		transactionsTab: orDefault(opts.TransactionsTab, TransactionsTab),
		categoriesTab:   orDefault(opts.CategoriesTab, CategoriesTab),
		goalsTab:        orDefault(opts.GoalsTab, GoalsTab),
		logger:          logger.WithComponent(log.ComponentSheets),
	}
}

func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	scope := goption.WithScopes(gsheet.SpreadsheetsReadonlyScope)
	switch {
	case opts.CredentialsJSON != "":
		return gsheet.NewService(ctx, goption.WithCredentialsJSON([]byte(opts.CredentialsJSON)), scope)
	case opts.CredentialsFile != "":
		return gsheet.NewService(ctx, goption.WithCredentialsFile(opts.CredentialsFile), scope)
	default:
		return nil, errors.New("missing service account credentials")
	}
}

type serviceGetter struct {
	svc *gsheet.Service
}

func (g serviceGetter) Get(ctx context.Context, spreadsheetID, rng string) ([][]any, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (c *Client) read(ctx context.Context, tab string) ([][]any, error) {
	rng := fmt.Sprintf("%s!A:Z", tab)
	values, err := c.values.Get(ctx, c.spreadsheetID, rng)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return values, nil
}

func (c *Client) logSkipped(ctx context.Context, tab string, skipped []error) {
	for _, err := range skipped {
		c.logger.WarnContext(ctx, "Skipping malformed row", "tab", tab, log.FieldError, err.Error())
	}
}

// ListTransactions reads the transactions tab. When the tab has a "user"
// column only the user's rows are returned.
func (c *Client) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	values, err := c.read(ctx, c.transactionsTab)
	if err != nil {
		return nil, err
	}
	txs, skipped := ParseTransactions(values, userID)
	c.logSkipped(ctx, c.transactionsTab, skipped)
	datastore.SortTransactions(txs)
	c.logger.DebugContext(ctx, "Transactions read", log.FieldUserID, userID, log.FieldRows, len(txs))
	return txs, nil
}

func (c *Client) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	values, err := c.read(ctx, c.categoriesTab)
	if err != nil {
		return nil, err
	}
	cats, skipped := ParseCategories(values, userID)
	c.logSkipped(ctx, c.categoriesTab, skipped)
	return cats, nil
}

func (c *Client) ListGoals(ctx context.Context, userID string) ([]core.FinancialGoal, error) {
	values, err := c.read(ctx, c.goalsTab)
	if err != nil {
		return nil, err
	}
	goals, skipped := ParseGoals(values, userID)
	c.logSkipped(ctx, c.goalsTab, skipped)
	return goals, nil
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}

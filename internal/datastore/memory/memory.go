// Package memory is an in-process datastore used for development, tests and
// the default backend.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"carteira/internal/core"
	"carteira/internal/datastore"
)

var _ datastore.Store = (*Store)(nil)

type userData struct {
	transactions []core.Transaction
	categories   []core.Category
	goals        []core.FinancialGoal
}

type Store struct {
	mu    sync.Mutex
	now   func() time.Time
	users map[string]*userData
}

// Seed is the on-disk layout accepted by NewFromFile.
type Seed struct {
	Transactions []core.Transaction   `json:"transactions"`
	Categories   []core.Category      `json:"categories"`
	Goals        []core.FinancialGoal `json:"goals"`
}

func New() *Store {
	return &Store{now: time.Now, users: make(map[string]*userData)}
}

// NewFromFile loads a JSON seed for userID. A missing file yields an empty
// store; a malformed one is an error.
func NewFromFile(path, userID string) (*Store, error) {
	s := New()
	if path == "" {
		return s, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(b, &seed); err != nil {
		return nil, fmt.Errorf("decode seed %s: %w", path, err)
	}
	s.Load(userID, seed)
	return s, nil
}

// Load replaces userID's data with seed, filling in missing ids.
func (s *Store) Load(userID string, seed Seed) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := &userData{}
	for _, tx := range seed.Transactions {
		u.transactions = append(u.transactions, s.prepareTx(tx))
	}
	for _, c := range seed.Categories {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		u.categories = append(u.categories, c)
	}
	for _, g := range seed.Goals {
		if g.ID == "" {
			g.ID = uuid.NewString()
		}
		u.goals = append(u.goals, g)
	}
	s.users[userID] = u
}

// WithClock sets the clock stamping CreatedAt.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func (s *Store) user(userID string) *userData {
	u, ok := s.users[userID]
	if !ok {
		u = &userData{}
		s.users[userID] = u
	}
	return u
}

// lookup is user without the insert, for paths that must not grow the map.
func (s *Store) lookup(userID string) *userData {
	if u, ok := s.users[userID]; ok {
		return u
	}
	return &userData{}
}

func (s *Store) prepareTx(tx core.Transaction) core.Transaction {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = s.now().UTC()
	}
	return tx
}

func (s *Store) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	out := slices.Clone(s.lookup(userID).transactions)
	s.mu.Unlock()
	datastore.SortTransactions(out)
	if out == nil {
		out = []core.Transaction{}
	}
	return out, nil
}

func (s *Store) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := slices.Clone(s.lookup(userID).categories)
	if out == nil {
		out = []core.Category{}
	}
	return out, nil
}

func (s *Store) ListGoals(ctx context.Context, userID string) ([]core.FinancialGoal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := slices.Clone(s.lookup(userID).goals)
	if out == nil {
		out = []core.FinancialGoal{}
	}
	return out, nil
}

func (s *Store) CreateTransaction(ctx context.Context, userID string, tx core.Transaction) (core.Transaction, error) {
	created, err := s.CreateTransactions(ctx, userID, []core.Transaction{tx})
	if err != nil {
		return core.Transaction{}, err
	}
	return created[0], nil
}

func (s *Store) CreateTransactions(ctx context.Context, userID string, txs []core.Transaction) ([]core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, tx := range txs {
		if err := tx.Validate(); err != nil {
			return nil, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		tx = s.prepareTx(tx)
		u.transactions = append(u.transactions, tx)
		out = append(out, tx)
	}
	return out, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.lookup(userID)
	idx := slices.IndexFunc(u.transactions, func(tx core.Transaction) bool { return tx.ID == id })
	if idx < 0 {
		return core.ErrNotFound
	}
	u.transactions = slices.Delete(u.transactions, idx, idx+1)
	return nil
}

func (s *Store) CreateCategory(ctx context.Context, userID string, c core.Category) (core.Category, error) {
	if err := ctx.Err(); err != nil {
		return core.Category{}, err
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	u.categories = append(u.categories, c)
	return c, nil
}

func (s *Store) CreateGoal(ctx context.Context, userID string, g core.FinancialGoal) (core.FinancialGoal, error) {
	if err := ctx.Err(); err != nil {
		return core.FinancialGoal{}, err
	}
	if err := g.Validate(); err != nil {
		return core.FinancialGoal{}, err
	}
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	u.goals = append(u.goals, g)
	return g, nil
}

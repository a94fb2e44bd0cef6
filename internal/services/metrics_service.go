package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"carteira/internal/cache"
	"carteira/internal/core"
	"carteira/internal/datastore"
	"carteira/internal/log"
	"carteira/internal/metrics"
)

// Session identifies whose data is read and in which timezone "today" is.
type Session struct {
	UserID   string
	Location *time.Location
}

func (s Session) location() *time.Location {
	if s.Location == nil {
		return time.Local
	}
	return s.Location
}

// snapshot is one consistent read of a user's data. degraded is set when any
// collection could not be fetched and was replaced by an empty one.
type snapshot struct {
	transactions []core.Transaction
	categories   []core.Category
	goals        []core.FinancialGoal
	degraded     bool
}

// MetricsService loads a user's data from a Source and computes the derived
// metrics. Fetch failures are logged and degrade to empty inputs, so every
// method returns a renderable value. Results are memoised per user, kind,
// period and day until Invalidate is called for the user.
type MetricsService struct {
	source datastore.Source
	memo   cache.Cache[any]
	group  singleflight.Group
	logger *log.Logger

	// generations counts invalidations per user; a result computed across a
	// bump is returned but never memoised.
	genMu       sync.Mutex
	generations map[string]uint64

	now    func() time.Time
}

func NewMetricsService(source datastore.Source, memo cache.Cache[any], logger *log.Logger) *MetricsService {
	if logger == nil {
		logger = log.Discard()
	}
	return &MetricsService{
		source: source,
		memo:   memo,
		logger: logger.WithComponent(log.ComponentMetrics),
		now:    time.Now,

		generations: make(map[string]uint64),
	}
}

// WithClock replaces the clock deciding "today".
func (s *MetricsService) WithClock(now func() time.Time) *MetricsService {
	s.now = now
	return s
}

// Today is the session's current civil date.
func (s *MetricsService) Today(sess Session) core.Date {
	return core.DateOf(s.now(), sess.location())
}

func (s *MetricsService) Dashboard(ctx context.Context, sess Session) metrics.DashboardMetrics {
	today := s.Today(sess)
	return memoize(ctx, s, sess, "dashboard", "", today, func(snap snapshot) metrics.DashboardMetrics {
		return metrics.Dashboard(snap.transactions, today)
	})
}

func (s *MetricsService) Insight(ctx context.Context, sess Session, year int, month time.Month) metrics.MonthlyInsight {
	today := s.Today(sess)
	period := fmt.Sprintf("%04d-%02d", year, int(month))
	return memoize(ctx, s, sess, "insight", period, today, func(snap snapshot) metrics.MonthlyInsight {
		return metrics.Insight(snap.transactions, snap.categories, year, month, today)
	})
}

// Budget returns the zeroed report when the data could not be loaded.
func (s *MetricsService) Budget(ctx context.Context, sess Session, year int, month time.Month) metrics.BudgetReport {
	today := s.Today(sess)
	period := fmt.Sprintf("%04d-%02d", year, int(month))
	return memoize(ctx, s, sess, "budget", period, today, func(snap snapshot) metrics.BudgetReport {
		if snap.degraded {
			return metrics.EmptyBudgetReport(year, month)
		}
		return metrics.Budget(snap.transactions, snap.categories, snap.goals, year, month, today)
	})
}

func (s *MetricsService) Shortcuts(ctx context.Context, sess Session, limit int) []metrics.ExpenseShortcut {
	today := s.Today(sess)
	return memoize(ctx, s, sess, "shortcuts", fmt.Sprint(limit), today, func(snap snapshot) []metrics.ExpenseShortcut {
		return metrics.Shortcuts(snap.transactions, today, limit)
	})
}

func (s *MetricsService) Streak(ctx context.Context, sess Session) metrics.StreakStats {
	today := s.Today(sess)
	return memoize(ctx, s, sess, "streak", "", today, func(snap snapshot) metrics.StreakStats {
		return metrics.Streak(snap.transactions, today)
	})
}

// Invalidate drops every memoised result of userID.
func (s *MetricsService) Invalidate(userID string) {
	s.genMu.Lock()
	s.generations[userID]++
	s.group.Forget(userID)
	s.genMu.Unlock()

	if s.memo == nil {
		return
	}
	if n := s.memo.DeletePrefix(userID + "|"); n > 0 {
		s.logger.Debug("Metrics cache invalidated",
			log.FieldUserID, userID, log.FieldOperation, log.OpInvalidate, "entries", n)
	}
}

func memoize[T any](ctx context.Context, s *MetricsService, sess Session, kind, period string, today core.Date, compute func(snapshot) T) T {
	key := sess.UserID + "|" + kind + "|" + period + "|" + today.String()
	if s.memo != nil {
		if v, ok := s.memo.Get(key); ok {
			if out, ok := v.(T); ok {
				s.logger.DebugContext(ctx, "Metrics served from cache",
					log.FieldUserID, sess.UserID, log.FieldCacheHit, true, "kind", kind)
				return out
			}
		}
	}

	gen := s.generation(sess.UserID)
	snap := s.load(ctx, sess.UserID)
	out := compute(snap)
	s.logger.DebugContext(ctx, "Metrics computed",
		log.FieldUserID, sess.UserID, log.FieldOperation, log.OpAggregate, log.FieldCacheHit, false,
		"kind", kind, log.FieldRows, len(snap.transactions))
	// Degraded results are not kept so the next call retries the fetch.
	if s.memo != nil && !snap.degraded {
		s.genMu.Lock()
		if s.generations[sess.UserID] == gen {
			s.memo.Set(key, out)
		}
		s.genMu.Unlock()
	}
	return out
}

func (s *MetricsService) generation(userID string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generations[userID]
}

// load fetches the three collections concurrently. Overlapping loads for the
// same user share one fetch.
func (s *MetricsService) load(ctx context.Context, userID string) snapshot {
	v, _, _ := s.group.Do(userID, func() (any, error) {
		return s.fetch(context.WithoutCancel(ctx), userID), nil
	})
	return v.(snapshot)
}

func (s *MetricsService) fetch(ctx context.Context, userID string) snapshot {
	start := time.Now()
	var (
		snap                        snapshot
		txErr, categoryErr, goalErr error
	)

	var g errgroup.Group
	g.Go(func() error {
		snap.transactions, txErr = s.source.ListTransactions(ctx, userID)
		return nil
	})
	g.Go(func() error {
		snap.categories, categoryErr = s.source.ListCategories(ctx, userID)
		return nil
	})
	g.Go(func() error {
		snap.goals, goalErr = s.source.ListGoals(ctx, userID)
		return nil
	})
	_ = g.Wait()

	for _, f := range []struct {
		entity string
		err    error
	}{{"transactions", txErr}, {"categories", categoryErr}, {"goals", goalErr}} {
		if f.err == nil {
			continue
		}
		snap.degraded = true
		s.logger.ErrorContext(ctx, "Failed to fetch user data, using empty collection",
			log.FieldUserID, userID, log.FieldOperation, log.OpFetch,
			log.FieldEntity, f.entity, log.FieldError, f.err.Error())
	}
	if txErr != nil {
		snap.transactions = nil
	}
	if categoryErr != nil {
		snap.categories = nil
	}
	if goalErr != nil {
		snap.goals = nil
	}

	s.logger.DebugContext(ctx, "User data loaded",
		log.FieldUserID, userID, log.FieldRows, len(snap.transactions),
		log.FieldDuration, time.Since(start).Milliseconds())
	return snap
}

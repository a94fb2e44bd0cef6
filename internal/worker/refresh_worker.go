// Package worker reacts to data change events outside the request path.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"carteira/internal/amqp"
	"carteira/internal/core"
	"carteira/internal/log"
	"carteira/internal/metrics"
	"carteira/internal/services"
)

// Metrics is the part of services.MetricsService the worker drives.
type Metrics interface {
	Invalidate(userID string)
	Today(sess services.Session) core.Date
	Budget(ctx context.Context, sess services.Session, year int, month time.Month) metrics.BudgetReport
}

type AlertPublisher interface {
	PublishBudgetAlert(ctx context.Context, alert amqp.BudgetAlert) error
}

type Consumer interface {
	ConsumeDataChanged(ctx context.Context, handler amqp.DataChangedHandler) error
}

// RefreshWorker drops a user's memoised metrics when their data changes,
// recomputes the current month's budget and raises an alert when the pace is
// critical or a category is over budget. An alert is only sent again once
// its content changes.
type RefreshWorker struct {
	metrics   Metrics
	publisher AlertPublisher
	location  *time.Location
	logger    *log.Logger
	retry     time.Duration

	mu   sync.Mutex
	sent map[string]string
}

func NewRefreshWorker(m Metrics, publisher AlertPublisher, location *time.Location, logger *log.Logger) *RefreshWorker {
	if logger == nil {
		logger = log.Discard()
	}
	if location == nil {
		location = time.Local
	}
	return &RefreshWorker{
		metrics:   m,
		publisher: publisher,
		location:  location,
		logger:    logger.WithComponent(log.ComponentWorker),
		retry:     5 * time.Second,
		sent:      make(map[string]string),
	}
}

// HandleDataChanged is the amqp.DataChangedHandler for change events.
func (w *RefreshWorker) HandleDataChanged(ctx context.Context, msg *amqp.DataChangedMessage) error {
	w.metrics.Invalidate(msg.UserID)
	w.logger.DebugContext(ctx, "Metrics invalidated",
		log.FieldUserID, msg.UserID, log.FieldEntity, msg.Entity, log.FieldMessageID, msg.ID)

	sess := services.Session{UserID: msg.UserID, Location: w.location}
	today := w.metrics.Today(sess)
	report := w.metrics.Budget(ctx, sess, today.Year(), today.Month())

	alert, ok := alertFor(msg.UserID, report)
	if !ok {
		w.forget(msg.UserID, report.Year, report.Month)
		return nil
	}
	if !w.remember(alert) {
		return nil
	}
	if w.publisher == nil {
		w.logger.WarnContext(ctx, "Budget alert raised without a publisher",
			log.FieldUserID, alert.UserID, log.FieldPace, alert.Pace)
		return nil
	}
	if err := w.publisher.PublishBudgetAlert(ctx, alert); err != nil {
		w.forget(msg.UserID, report.Year, report.Month)
		return fmt.Errorf("publish budget alert: %w", err)
	}

	w.logger.InfoContext(ctx, "Budget alert published",
		log.FieldUserID, alert.UserID, log.FieldPace, alert.Pace,
		log.FieldYear, alert.Year, log.FieldMonth, alert.Month)
	return nil
}

// Run consumes events until ctx is cancelled, reconnecting after failures.
func (w *RefreshWorker) Run(ctx context.Context, consumer Consumer) error {
	for {
		err := consumer.ConsumeDataChanged(ctx, w.HandleDataChanged)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, amqp.ErrCircuitOpen) {
			w.logger.WarnContext(ctx, "Broker circuit open, waiting", "retry_in", w.retry.String())
		} else {
			w.logger.ErrorContext(ctx, "Consumer stopped, restarting", log.FieldError, err, "retry_in", w.retry.String())
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.retry):
		}
	}
}

func alertFor(userID string, report metrics.BudgetReport) (amqp.BudgetAlert, bool) {
	if report.Pace != metrics.PaceCritical && report.AlertCategory == nil {
		return amqp.BudgetAlert{}, false
	}
	alert := amqp.BudgetAlert{
		ID:          uuid.NewString(),
		UserID:      userID,
		Year:        report.Year,
		Month:       int(report.Month),
		Pace:        string(report.Pace),
		ConsumedPct: report.ConsumedPct,
		Timestamp:   time.Now().UTC(),
	}
	if report.AlertCategory != nil {
		alert.AlertCategory = report.AlertCategory.Name
	}
	return alert, true
}

func alertKey(userID string, year int, month time.Month) string {
	return fmt.Sprintf("%s|%04d-%02d", userID, year, month)
}

// remember records alert and reports whether it differs from the last one
// sent for the same user and month.
func (w *RefreshWorker) remember(alert amqp.BudgetAlert) bool {
	key := alertKey(alert.UserID, alert.Year, time.Month(alert.Month))
	sig := alert.Pace + "|" + alert.AlertCategory

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.sent[key] == sig {
		return false
	}
	w.sent[key] = sig
	return true
}

func (w *RefreshWorker) forget(userID string, year int, month time.Month) {
	w.mu.Lock()
	delete(w.sent, alertKey(userID, year, month))
	w.mu.Unlock()
}

package alerting

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"pricewatch/internal/storage"
)

// AlertSource provides the alert batch and the conditional notified mark.
type AlertSource interface {
	ListDueAlerts(ctx context.Context, day time.Time) ([]storage.DueAlert, error)
	MarkNotified(ctx context.Context, alertID int64, day time.Time) (bool, error)
}

// LatestPriceSource resolves a product's current price.
type LatestPriceSource interface {
	LatestPrice(ctx context.Context, productID int64) (decimal.Decimal, bool, error)
}

// RunStats summarises one evaluation pass.
type RunStats struct {
	Evaluated int
	Notified  int
	Failed    int
	Skipped   int
}

// Evaluator walks the active alerts once per invocation and notifies each at
// most once per day. The batch query already excludes alerts notified today,
// an advisory lock serializes whole invocations, and the notified mark is a
// single conditional update, so overlapping runs cannot double-deliver.
type Evaluator struct {
	alerts   AlertSource
	prices   LatestPriceSource
	notifier Notifier
	locker   storage.AdvisoryLocker
	lockKey  int64
	logger   zerolog.Logger
}

// NewEvaluator constructs the alert evaluator. locker may be nil, in which
// case runs rely on the conditional mark alone.
func NewEvaluator(alerts AlertSource, prices LatestPriceSource, notifier Notifier, locker storage.AdvisoryLocker, lockKey int64, logger zerolog.Logger) *Evaluator {
	return &Evaluator{
		alerts:   alerts,
		prices:   prices,
		notifier: notifier,
		locker:   locker,
		lockKey:  lockKey,
		logger:   logger.With().Str("component", "alert_evaluator").Logger(),
	}
}

// Run evaluates every due alert for the given day. A delivery failure is
// local to its alert: it is logged, left unmarked for the next cycle, and the
// batch continues.
func (e *Evaluator) Run(ctx context.Context, today time.Time) (RunStats, error) {
	today = storage.DateOf(today)

	unlock, proceed, err := e.acquireLock(ctx)
	if err != nil {
		return RunStats{}, err
	}
	if !proceed {
		e.logger.Debug().Msg("skip run because advisory lock held elsewhere")
		return RunStats{}, nil
	}
	if unlock != nil {
		defer unlock()
	}

	alerts, err := e.alerts.ListDueAlerts(ctx, today)
	if err != nil {
		return RunStats{}, fmt.Errorf("list due alerts: %w", err)
	}

	stats := RunStats{}
	for _, alert := range alerts {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Evaluated++

		current, ok, err := e.prices.LatestPrice(ctx, alert.ProductID)
		if err != nil {
			stats.Failed++
			e.logger.Error().Err(err).Int64("alert_id", alert.ID).Msg("failed to resolve current price")
			continue
		}
		if !ok || current.GreaterThan(alert.ThresholdPrice) {
			// no price yet, or not low enough; stays idle until the next cycle
			stats.Skipped++
			continue
		}

		subject, body := renderAlertEmail(alert.ProductTitle, current, alert.ThresholdPrice, alert.ShopTitle, alert.ShopURL)
		if err := e.notifier.Notify(ctx, alert.Email, subject, body); err != nil {
			stats.Failed++
			e.logger.Error().Err(err).Int64("alert_id", alert.ID).Str("email", alert.Email).Msg("delivery failed; will retry next cycle")
			continue
		}

		marked, err := e.alerts.MarkNotified(ctx, alert.ID, today)
		if err != nil {
			stats.Failed++
			e.logger.Error().Err(err).Int64("alert_id", alert.ID).Msg("failed to mark alert notified")
			continue
		}
		if !marked {
			e.logger.Warn().Int64("alert_id", alert.ID).Msg("alert already marked notified by another run")
			continue
		}

		stats.Notified++
		e.logger.Info().
			Int64("alert_id", alert.ID).
			Str("product", alert.ProductTitle).
			Str("price", current.StringFixed(2)).
			Str("threshold", alert.ThresholdPrice.StringFixed(2)).
			Msg("alert notified")
	}

	e.logger.Info().
		Int("evaluated", stats.Evaluated).
		Int("notified", stats.Notified).
		Int("failed", stats.Failed).
		Int("skipped", stats.Skipped).
		Msg("evaluation run complete")

	return stats, nil
}

func (e *Evaluator) acquireLock(ctx context.Context) (func(), bool, error) {
	if e.lockKey == 0 || e.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := e.locker.TryAdvisoryLock(ctx, e.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}

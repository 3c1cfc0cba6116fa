package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"xpanel/internal/infra/redis"
	"xpanel/internal/usecase"
)

const expiryLockKey = "lock:sched:expiry"

// ExpiryWorker periodically expires lapsed subscriptions and refreshes the status gauges.
// With a locker, only one replica runs a given round.
type ExpiryWorker struct {
	interval time.Duration
	subUC    usecase.SubscriptionUseCase
	locker   redis.Locker
	log      *zerolog.Logger
}

func NewExpiryWorker(interval time.Duration, subUC usecase.SubscriptionUseCase, locker redis.Locker, logger *zerolog.Logger) *ExpiryWorker {
	exprLog := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{
		interval: interval,
		subUC:    subUC,
		locker:   locker,
		log:      &exprLog,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting expiry worker")
	// Run once on startup, then on every tick
	w.runOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping expiry worker")
			return ctx.Err()
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *ExpiryWorker) runOnce(ctx context.Context) {
	if w.locker != nil {
		token, err := w.locker.TryLock(ctx, expiryLockKey, w.interval)
		if errors.Is(err, redis.ErrLockHeld) {
			w.log.Debug().Msg("expiry round owned by another instance")
			return
		}
		if err != nil {
			// Expiry is idempotent, so a missing lock only costs duplicate work.
			w.log.Warn().Err(err).Msg("expiry lock unavailable, running unlocked")
		} else {
			defer func() {
				if err := w.locker.Unlock(context.WithoutCancel(ctx), expiryLockKey, token); err != nil {
					w.log.Warn().Err(err).Msg("expiry lock release failed")
				}
			}()
		}
	}

	n, err := w.subUC.ExpireDue(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("expiry worker error")
	}
	if n > 0 {
		w.log.Info().Int("count", n).Msg("expired subscriptions finished")
	}
	if err := w.subUC.RefreshGauges(ctx); err != nil {
		w.log.Warn().Err(err).Msg("subscription gauges not refreshed")
	}
}

// File: internal/usecase/subscription_uc.go
package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"xpanel/internal/domain/ports/repository"
	"xpanel/internal/infra/logging"
	"xpanel/internal/infra/metrics"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

// SubscriptionUseCase holds the housekeeping the scheduler runs over subscriptions.
type SubscriptionUseCase interface {
	// ExpireDue flips every active subscription whose end date has passed to expired.
	ExpireDue(ctx context.Context) (int, error)
	// RefreshGauges publishes the per-status subscription counts.
	RefreshGauges(ctx context.Context) error
}

type subscriptionUC struct {
	subs repository.SubscriptionRepository
	now  func() time.Time
	log  *zerolog.Logger
}

func NewSubscriptionUseCase(subs repository.SubscriptionRepository, logger *zerolog.Logger) *subscriptionUC {
	return &subscriptionUC{subs: subs, now: time.Now, log: logger}
}

func (u *subscriptionUC) ExpireDue(ctx context.Context) (int, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.ExpireDue")()

	n, err := u.subs.ExpireDue(ctx, repository.NoTX, u.now())
	if err != nil {
		return 0, translateErr(err)
	}
	if n > 0 {
		metrics.IncSubscriptionsExpired(n)
		u.log.Info().Int("count", n).Msg("subscriptions expired")
	}
	return n, nil
}

func (u *subscriptionUC) RefreshGauges(ctx context.Context) error {
	counts, err := u.subs.CountByStatus(ctx, repository.NoTX)
	if err != nil {
		return translateErr(err)
	}
	metrics.SetSubscriptionsTotal(counts)
	return nil
}

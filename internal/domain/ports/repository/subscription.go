package repository

import (
	"context"
	"time"

	"xpanel/internal/domain/model"
)

// SubscriptionRepository is the port for account subscriptions.
type SubscriptionRepository interface {
	// LockAccount serializes subscription writes for one account until the surrounding transaction ends.
	LockAccount(ctx context.Context, tx Tx, accountID int64) error
	// FindActiveByAccount returns the latest row in status active, even if its end date has passed.
	FindActiveByAccount(ctx context.Context, tx Tx, accountID int64) (*model.Subscription, error)
	// Save inserts when ID is zero and updates otherwise.
	Save(ctx context.Context, tx Tx, s *model.Subscription) error
	// ExpireDue flips active rows whose end date is not after now to expired.
	ExpireDue(ctx context.Context, tx Tx, now time.Time) (int, error)
	CountByStatus(ctx context.Context, tx Tx) (map[model.SubscriptionStatus]int, error)
}

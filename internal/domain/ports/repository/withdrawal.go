package repository

import (
	"context"
	"time"

	"xpanel/internal/domain/model"
)

// WithdrawalRepository is the port for commission withdrawal requests.
type WithdrawalRepository interface {
	Create(ctx context.Context, tx Tx, w *model.Withdrawal) error
	FindByID(ctx context.Context, tx Tx, id int64) (*model.Withdrawal, error)
	List(ctx context.Context, tx Tx, filter model.WithdrawalFilter) ([]*model.Withdrawal, int, error)
	// PendingTotal sums the amounts of the account's withdrawals still awaiting review.
	PendingTotal(ctx context.Context, tx Tx, accountID int64) (int64, error)
	// MarkProcessed moves a pending withdrawal to status and reports whether it did.
	MarkProcessed(ctx context.Context, tx Tx, id int64, status model.WithdrawalStatus, note string, at time.Time) (bool, error)
}

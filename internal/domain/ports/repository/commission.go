package repository

import (
	"context"
	"time"

	"xpanel/internal/domain/model"
)

// CommissionRepository is the port for referral commissions.
type CommissionRepository interface {
	Create(ctx context.Context, tx Tx, c *model.Commission) error
	FindByID(ctx context.Context, tx Tx, id int64) (*model.Commission, error)
	List(ctx context.Context, tx Tx, filter model.CommissionFilter) ([]*model.Commission, int, error)
	// MarkSettled moves a pending commission to settled and reports whether it did.
	MarkSettled(ctx context.Context, tx Tx, id int64, at time.Time) (bool, error)
	// MarkWithdrawn moves the referrer's oldest settled commissions that approved
	// withdrawals fully cover to withdrawn, tagging them with withdrawalID. It returns
	// how many rows moved.
	MarkWithdrawn(ctx context.Context, tx Tx, referrerID, withdrawalID int64) (int, error)
	// TotalsByStatus sums commission amounts per status for one referrer.
	TotalsByStatus(ctx context.Context, tx Tx, referrerID int64) (map[model.CommissionStatus]int64, error)
}

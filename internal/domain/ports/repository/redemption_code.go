package repository

import (
	"context"
	"time"

	"xpanel/internal/domain/model"
)

// RedemptionCodeRepository is the port for redemption code persistence.
type RedemptionCodeRepository interface {
	// Insert stores a new code and fills its ID. It returns false, without error,
	// when another row already holds the same code string.
	Insert(ctx context.Context, tx Tx, code *model.RedemptionCode) (bool, error)
	// FindByCode is an exact, case-sensitive match regardless of status.
	FindByCode(ctx context.Context, tx Tx, code string) (*model.RedemptionCode, error)
	// MarkRedeemed performs the Unused -> Used transition only if the code is still
	// unused and unexpired at `at`. It reports whether this call made the transition.
	MarkRedeemed(ctx context.Context, tx Tx, code string, accountID int64, at time.Time) (bool, error)
	List(ctx context.Context, tx Tx, filter model.CodeFilter) ([]*model.RedemptionCode, int, error)
	// DeleteUnused removes the code only while it is unused.
	DeleteUnused(ctx context.Context, tx Tx, code string) (bool, error)
}

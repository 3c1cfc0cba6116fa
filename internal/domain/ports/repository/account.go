package repository

import (
	"context"

	"xpanel/internal/domain/model"
)

// -----------------------------
// Accounts
// -----------------------------

type AccountRepository interface {
	FindByID(ctx context.Context, tx Tx, id int64) (*model.Account, error)
	FindByEmail(ctx context.Context, tx Tx, email string) (*model.Account, error)
	FindByReferralCode(ctx context.Context, tx Tx, code string) (*model.Account, error)
	// Create inserts the account and fills its ID. It returns false when the email
	// or the referral code is already taken.
	Create(ctx context.Context, tx Tx, a *model.Account) (bool, error)
	List(ctx context.Context, tx Tx, search string, offset, limit int) ([]*model.Account, int, error)
	// ListReferred pages through the accounts whose referred_by is referrerID, newest first.
	ListReferred(ctx context.Context, tx Tx, referrerID int64, offset, limit int) ([]*model.Account, int, error)
	UpdateStatus(ctx context.Context, tx Tx, id int64, status model.AccountStatus) error
	AddCommissionBalance(ctx context.Context, tx Tx, id int64, amount int64) error
	// DebitCommissionBalance subtracts amount only while the balance covers it and
	// reports whether it did.
	DebitCommissionBalance(ctx context.Context, tx Tx, id int64, amount int64) (bool, error)
}

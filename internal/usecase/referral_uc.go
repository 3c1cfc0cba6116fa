package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"xpanel/internal/domain"
	"xpanel/internal/domain/model"
	"xpanel/internal/domain/ports/repository"
	"xpanel/internal/infra/logging"
)

// Compile-time check
var _ ReferralUseCase = (*referralUC)(nil)

// ReferralOverview is what a referrer sees about their own programme.
type ReferralOverview struct {
	ReferralCode      string
	CommissionBalance int64
	ReferredCount     int
	Totals            map[model.CommissionStatus]int64
	Referred          []*model.Account
}

// ReferralUseCase serves the referrer-facing reads.
type ReferralUseCase interface {
	// Overview returns the caller's code, balance, commission totals and one page of referred accounts.
	Overview(ctx context.Context, accountID int64, page Page) (*ReferralOverview, error)
	Commissions(ctx context.Context, accountID int64, status model.CommissionStatus, page Page) ([]*model.Commission, int, error)
}

type referralUC struct {
	accounts    repository.AccountRepository
	commissions repository.CommissionRepository
	log         *zerolog.Logger
}

func NewReferralUseCase(
	accounts repository.AccountRepository,
	commissions repository.CommissionRepository,
	logger *zerolog.Logger,
) *referralUC {
	return &referralUC{accounts: accounts, commissions: commissions, log: logger}
}

func (u *referralUC) Overview(ctx context.Context, accountID int64, page Page) (*ReferralOverview, error) {
	defer logging.TraceDuration(u.log, "ReferralUC.Overview")()

	acc, err := u.accounts.FindByID(ctx, repository.NoTX, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, translateErr(err)
	}

	page = page.Normalize()
	referred, count, err := u.accounts.ListReferred(ctx, repository.NoTX, accountID, page.Offset(), page.Limit)
	if err != nil {
		return nil, translateErr(err)
	}
	totals, err := u.commissions.TotalsByStatus(ctx, repository.NoTX, accountID)
	if err != nil {
		return nil, translateErr(err)
	}
	for _, st := range []model.CommissionStatus{model.CommissionStatusPending, model.CommissionStatusSettled, model.CommissionStatusWithdrawn} {
		if _, ok := totals[st]; !ok {
			totals[st] = 0
		}
	}

	return &ReferralOverview{
		ReferralCode:      acc.ReferralCode,
		CommissionBalance: acc.CommissionBalance,
		ReferredCount:     count,
		Totals:            totals,
		Referred:          referred,
	}, nil
}

func (u *referralUC) Commissions(ctx context.Context, accountID int64, status model.CommissionStatus, page Page) ([]*model.Commission, int, error) {
	if err := checkCommissionStatus(status); err != nil {
		return nil, 0, err
	}
	page = page.Normalize()
	list, total, err := u.commissions.List(ctx, repository.NoTX, model.CommissionFilter{
		Status:            status,
		ReferrerAccountID: accountID,
		Offset:            page.Offset(),
		Limit:             page.Limit,
	})
	if err != nil {
		return nil, 0, translateErr(err)
	}
	return list, total, nil
}

package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"xpanel/internal/domain"
	"xpanel/internal/domain/model"
	"xpanel/internal/domain/ports/repository"
	"xpanel/internal/infra/logging"
	"xpanel/internal/infra/metrics"
)

// Compile-time check
var _ CommissionUseCase = (*commissionUC)(nil)

// CommissionUseCase lists and settles referral commissions.
type CommissionUseCase interface {
	List(ctx context.Context, status model.CommissionStatus, page Page) ([]*model.Commission, int, error)
	// Settle moves a pending commission to settled and credits the referrer's commission balance.
	Settle(ctx context.Context, id int64) (*model.Commission, error)
}

type commissionUC struct {
	commissions repository.CommissionRepository
	accounts    repository.AccountRepository
	tm          repository.TransactionManager
	now         func() time.Time
	log         *zerolog.Logger
}

func NewCommissionUseCase(
	commissions repository.CommissionRepository,
	accounts repository.AccountRepository,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *commissionUC {
	return &commissionUC{
		commissions: commissions,
		accounts:    accounts,
		tm:          tm,
		now:         time.Now,
		log:         logger,
	}
}

func (u *commissionUC) List(ctx context.Context, status model.CommissionStatus, page Page) ([]*model.Commission, int, error) {
	if err := checkCommissionStatus(status); err != nil {
		return nil, 0, err
	}

	page = page.Normalize()
	list, total, err := u.commissions.List(ctx, repository.NoTX, model.CommissionFilter{
		Status: status,
		Offset: page.Offset(),
		Limit:  page.Limit,
	})
	if err != nil {
		return nil, 0, translateErr(err)
	}
	return list, total, nil
}

// checkCommissionStatus accepts the empty filter and every known status.
func checkCommissionStatus(status model.CommissionStatus) error {
	switch status {
	case "", model.CommissionStatusPending, model.CommissionStatusSettled, model.CommissionStatusWithdrawn:
		return nil
	default:
		return invalidArg("unknown status %q", status)
	}
}

func (u *commissionUC) Settle(ctx context.Context, id int64) (*model.Commission, error) {
	defer logging.TraceDuration(u.log, "CommissionUC.Settle")()

	var settled *model.Commission
	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		c, err := u.commissions.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		now := u.now()
		ok, err := u.commissions.MarkSettled(ctx, tx, id, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrCommissionNotPending
		}
		if err := u.accounts.AddCommissionBalance(ctx, tx, c.ReferrerAccountID, c.Amount); err != nil {
			return err
		}
		c.Status = model.CommissionStatusSettled
		c.SettledAt = &now
		settled = c
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrCommissionNotPending) {
			log := logging.With(ctx, u.log)
			log.Error().Err(err).Int64("commission_id", id).Msg("commission settlement failed")
		}
		return nil, translateErr(err)
	}

	metrics.IncCommissionSettled()
	log := logging.With(ctx, u.log)
	log.Info().
		Int64("commission_id", id).
		Int64("referrer_id", settled.ReferrerAccountID).
		Int64("amount", settled.Amount).
		Msg("commission settled")
	return settled, nil
}

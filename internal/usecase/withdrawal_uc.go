package usecase

import (
	"context"
	"errors"
	"strings"
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
var _ WithdrawalUseCase = (*withdrawalUC)(nil)

const defaultMinWithdrawal = 10000

type WithdrawalPolicy struct {
	MinAmount int64 // minor currency units; zero means the default of 100.00
	Now       func() time.Time
}

func (p WithdrawalPolicy) withDefaults() WithdrawalPolicy {
	if p.MinAmount <= 0 {
		p.MinAmount = defaultMinWithdrawal
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return p
}

type WithdrawalRequest struct {
	AccountID      int64
	Amount         int64
	Method         model.WithdrawalMethod
	PaymentAccount string
	RealName       string
}

// WithdrawalUseCase lets referrers cash out commission balance and admins review the requests.
type WithdrawalUseCase interface {
	// Request files a pending withdrawal. The amount must fit into the commission
	// balance minus what other pending requests already claim.
	Request(ctx context.Context, req WithdrawalRequest) (*model.Withdrawal, error)
	ListMine(ctx context.Context, accountID int64, page Page) ([]*model.Withdrawal, int, error)
	List(ctx context.Context, status model.WithdrawalStatus, page Page) ([]*model.Withdrawal, int, error)
	// Approve debits the balance and moves the covered settled commissions to withdrawn, all in one transaction.
	Approve(ctx context.Context, id int64, note string) (*model.Withdrawal, error)
	Reject(ctx context.Context, id int64, note string) (*model.Withdrawal, error)
}

type withdrawalUC struct {
	withdrawals repository.WithdrawalRepository
	accounts    repository.AccountRepository
	commissions repository.CommissionRepository
	tm          repository.TransactionManager
	policy      WithdrawalPolicy
	log         *zerolog.Logger
}

func NewWithdrawalUseCase(
	withdrawals repository.WithdrawalRepository,
	accounts repository.AccountRepository,
	commissions repository.CommissionRepository,
	tm repository.TransactionManager,
	policy WithdrawalPolicy,
	logger *zerolog.Logger,
) *withdrawalUC {
	return &withdrawalUC{
		withdrawals: withdrawals,
		accounts:    accounts,
		commissions: commissions,
		tm:          tm,
		policy:      policy.withDefaults(),
		log:         logger,
	}
}

func (u *withdrawalUC) Request(ctx context.Context, req WithdrawalRequest) (*model.Withdrawal, error) {
	defer logging.TraceDuration(u.log, "WithdrawalUC.Request")()

	if req.Amount < u.policy.MinAmount {
		return nil, invalidArg("amount must be at least %d", u.policy.MinAmount)
	}
	w, err := model.NewWithdrawal(req.AccountID, req.Amount, req.Method, req.PaymentAccount, req.RealName, u.policy.Now())
	if err != nil {
		return nil, invalidArg("withdrawal details are incomplete")
	}

	err = u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		acc, err := u.accounts.FindByID(ctx, tx, req.AccountID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrAccountNotFound
			}
			return err
		}
		if !acc.IsActive() {
			return domain.ErrAccountDisabled
		}
		pending, err := u.withdrawals.PendingTotal(ctx, tx, acc.ID)
		if err != nil {
			return err
		}
		if req.Amount > acc.CommissionBalance-pending {
			return domain.ErrInsufficientBalance
		}
		return u.withdrawals.Create(ctx, tx, w)
	})
	if err != nil {
		return nil, translateErr(err)
	}

	metrics.IncWithdrawal("requested")
	log := logging.With(ctx, u.log)
	log.Info().Int64("withdrawal_id", w.ID).Int64("amount", w.Amount).Str("method", string(w.Method)).Msg("withdrawal requested")
	return w, nil
}

func (u *withdrawalUC) ListMine(ctx context.Context, accountID int64, page Page) ([]*model.Withdrawal, int, error) {
	page = page.Normalize()
	return u.list(ctx, model.WithdrawalFilter{AccountID: accountID, Offset: page.Offset(), Limit: page.Limit})
}

func (u *withdrawalUC) List(ctx context.Context, status model.WithdrawalStatus, page Page) ([]*model.Withdrawal, int, error) {
	switch status {
	case "", model.WithdrawalStatusPending, model.WithdrawalStatusApproved, model.WithdrawalStatusRejected:
	default:
		return nil, 0, invalidArg("unknown status %q", status)
	}
	page = page.Normalize()
	return u.list(ctx, model.WithdrawalFilter{Status: status, Offset: page.Offset(), Limit: page.Limit})
}

func (u *withdrawalUC) list(ctx context.Context, f model.WithdrawalFilter) ([]*model.Withdrawal, int, error) {
	list, total, err := u.withdrawals.List(ctx, repository.NoTX, f)
	if err != nil {
		return nil, 0, translateErr(err)
	}
	return list, total, nil
}

func (u *withdrawalUC) Approve(ctx context.Context, id int64, note string) (*model.Withdrawal, error) {
	defer logging.TraceDuration(u.log, "WithdrawalUC.Approve")()

	var moved int
	w, err := u.process(ctx, id, model.WithdrawalStatusApproved, note, func(ctx context.Context, tx repository.Tx, w *model.Withdrawal) error {
		ok, err := u.accounts.DebitCommissionBalance(ctx, tx, w.AccountID, w.Amount)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInsufficientBalance
		}
		moved, err = u.commissions.MarkWithdrawn(ctx, tx, w.AccountID, w.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.IncWithdrawal("approved")
	metrics.AddWithdrawnAmount(w.Amount)
	log := logging.With(ctx, u.log)
	log.Info().
		Int64("withdrawal_id", w.ID).
		Int64("referrer_id", w.AccountID).
		Int64("amount", w.Amount).
		Int("commissions_withdrawn", moved).
		Msg("withdrawal approved")
	return w, nil
}

func (u *withdrawalUC) Reject(ctx context.Context, id int64, note string) (*model.Withdrawal, error) {
	w, err := u.process(ctx, id, model.WithdrawalStatusRejected, note, nil)
	if err != nil {
		return nil, err
	}
	metrics.IncWithdrawal("rejected")
	log := logging.With(ctx, u.log)
	log.Info().Int64("withdrawal_id", w.ID).Int64("referrer_id", w.AccountID).Msg("withdrawal rejected")
	return w, nil
}

// process performs the pending -> status transition and runs then inside the same transaction.
func (u *withdrawalUC) process(
	ctx context.Context,
	id int64,
	status model.WithdrawalStatus,
	note string,
	then func(ctx context.Context, tx repository.Tx, w *model.Withdrawal) error,
) (*model.Withdrawal, error) {
	note = strings.TrimSpace(note)

	var out *model.Withdrawal
	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		w, err := u.withdrawals.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		now := u.policy.Now()
		ok, err := u.withdrawals.MarkProcessed(ctx, tx, id, status, note, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrWithdrawalNotPending
		}
		w.Status = status
		w.AdminNote = note
		w.ProcessedAt = &now
		if then != nil {
			if err := then(ctx, tx, w); err != nil {
				return err
			}
		}
		out = w
		return nil
	})
	if err != nil {
		err = translateErr(err)
		if errors.Is(err, domain.ErrPersistence) {
			log := logging.With(ctx, u.log)
			log.Error().Err(err).Int64("withdrawal_id", id).Str("status", string(status)).Msg("withdrawal processing failed")
		}
		return nil, err
	}
	return out, nil
}

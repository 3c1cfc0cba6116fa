package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"xpanel/internal/domain"
	"xpanel/internal/domain/model"
	"xpanel/internal/domain/ports/repository"
	"xpanel/internal/infra/logging"
)

// Compile-time check
var _ AccountUseCase = (*accountUC)(nil)

// CurrentSubscription pairs an account's running subscription with the plan it came from.
type CurrentSubscription struct {
	Subscription *model.Subscription
	Plan         *model.Plan
}

// AccountUseCase exposes the account reads and admin writes used by the HTTP layer.
type AccountUseCase interface {
	Get(ctx context.Context, id int64) (*model.Account, error)
	List(ctx context.Context, search string, page Page) ([]*model.Account, int, error)
	// SetStatus enables or disables an account. A disabled account can no longer redeem codes.
	SetStatus(ctx context.Context, id int64, status model.AccountStatus) (*model.Account, error)
	// CurrentSubscription returns nil, without error, when the account has no running subscription.
	CurrentSubscription(ctx context.Context, accountID int64) (*CurrentSubscription, error)
}

type accountUC struct {
	accounts repository.AccountRepository
	subs     repository.SubscriptionRepository
	plans    repository.PlanRepository
	now      func() time.Time
	log      *zerolog.Logger
}

func NewAccountUseCase(
	accounts repository.AccountRepository,
	subs repository.SubscriptionRepository,
	plans repository.PlanRepository,
	logger *zerolog.Logger,
) *accountUC {
	return &accountUC{
		accounts: accounts,
		subs:     subs,
		plans:    plans,
		now:      time.Now,
		log:      logger,
	}
}

func (u *accountUC) Get(ctx context.Context, id int64) (*model.Account, error) {
	acc, err := u.accounts.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, translateErr(err)
	}
	return acc, nil
}

func (u *accountUC) List(ctx context.Context, search string, page Page) ([]*model.Account, int, error) {
	defer logging.TraceDuration(u.log, "AccountUC.List")()

	page = page.Normalize()
	accounts, total, err := u.accounts.List(ctx, repository.NoTX, model.NormalizeEmail(search), page.Offset(), page.Limit)
	if err != nil {
		return nil, 0, translateErr(err)
	}
	return accounts, total, nil
}

func (u *accountUC) SetStatus(ctx context.Context, id int64, status model.AccountStatus) (*model.Account, error) {
	defer logging.TraceDuration(u.log, "AccountUC.SetStatus")()

	if status != model.AccountStatusActive && status != model.AccountStatusDisabled {
		return nil, invalidArg("unknown account status %q", status)
	}
	if err := u.accounts.UpdateStatus(ctx, repository.NoTX, id, status); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, translateErr(err)
	}

	log := logging.With(ctx, u.log)
	log.Info().Int64("target_account_id", id).Str("status", string(status)).Msg("account status changed")
	return u.Get(ctx, id)
}

func (u *accountUC) CurrentSubscription(ctx context.Context, accountID int64) (*CurrentSubscription, error) {
	sub, err := u.subs.FindActiveByAccount(ctx, repository.NoTX, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, translateErr(err)
	}
	if !sub.IsCurrent(u.now()) {
		return nil, nil
	}

	plan, err := u.plans.FindByID(ctx, repository.NoTX, sub.PlanID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, translateErr(err)
	}
	return &CurrentSubscription{Subscription: sub, Plan: plan}, nil
}

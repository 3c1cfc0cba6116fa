// File: internal/usecase/activation_uc.go
package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"xpanel/internal/domain"
	"xpanel/internal/domain/model"
	"xpanel/internal/domain/ports/adapter"
	"xpanel/internal/domain/ports/repository"
	"xpanel/internal/infra/logging"
	"xpanel/internal/infra/metrics"
)

// Compile-time check
var _ ActivationUseCase = (*activationUC)(nil)

// errLostRace signals that the conditional code update matched no row because a
// concurrent transaction consumed or expired the code first.
var errLostRace = errors.New("redemption code changed concurrently")

const (
	// maxRedeemAttempts bounds how often a lost race is re-evaluated against fresh state.
	maxRedeemAttempts = 3
	// maxGuestInsertAttempts bounds retries after a referral code collision.
	maxGuestInsertAttempts = 3
)

// ActivationPolicy tunes the activation transaction. A CommissionPercent of zero
// turns referral commissions off.
type ActivationPolicy struct {
	CommissionPercent int
	Now               func() time.Time
}

func (p ActivationPolicy) withDefaults() ActivationPolicy {
	if p.CommissionPercent < 0 {
		p.CommissionPercent = 0
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return p
}

// RedeemRequest carries either an authenticated AccountID or a guest Email.
// A non-zero AccountID takes precedence. ReferralCode only matters when the
// guest account is created by this redemption.
type RedeemRequest struct {
	Code         string
	AccountID    int64
	Email        string
	ReferralCode string
}

type ActivationResult struct {
	PlanName        string
	DurationDays    int
	TrafficGB       int64
	DeviceLimit     int
	AlreadyRedeemed bool
	AccountID       int64
	SubscriptionEnd *time.Time
}

// ActivationUseCase turns a redemption code into an active or extended subscription.
type ActivationUseCase interface {
	Redeem(ctx context.Context, req RedeemRequest) (*ActivationResult, error)
}

type activationUC struct {
	codes       repository.RedemptionCodeRepository
	plans       repository.PlanRepository
	accounts    repository.AccountRepository
	subs        repository.SubscriptionRepository
	commissions repository.CommissionRepository
	tm          repository.TransactionManager
	events      adapter.EventPublisher
	policy      ActivationPolicy
	log         *zerolog.Logger
}

func NewActivationUseCase(
	codes repository.RedemptionCodeRepository,
	plans repository.PlanRepository,
	accounts repository.AccountRepository,
	subs repository.SubscriptionRepository,
	commissions repository.CommissionRepository,
	tm repository.TransactionManager,
	events adapter.EventPublisher,
	policy ActivationPolicy,
	logger *zerolog.Logger,
) *activationUC {
	return &activationUC{
		codes:       codes,
		plans:       plans,
		accounts:    accounts,
		subs:        subs,
		commissions: commissions,
		tm:          tm,
		events:      events,
		policy:      policy.withDefaults(),
		log:         logger,
	}
}

// redeemOutcome is what one transaction attempt produced.
type redeemOutcome struct {
	result *ActivationResult
	event  *adapter.ActivationEvent
}

func (u *activationUC) Redeem(ctx context.Context, req RedeemRequest) (*ActivationResult, error) {
	defer logging.TraceDuration(u.log, "ActivationUC.Redeem")()

	req.Code = strings.TrimSpace(req.Code)
	req.Email = model.NormalizeEmail(req.Email)
	req.ReferralCode = model.NormalizeReferralCode(req.ReferralCode)
	if req.Code == "" {
		metrics.IncRedemptionAttempt("invalid")
		return nil, invalidArg("code is required")
	}
	if req.AccountID <= 0 && req.Email == "" {
		metrics.IncRedemptionAttempt("invalid")
		return nil, invalidArg("an account or an email is required")
	}

	var (
		out redeemOutcome
		err error
	)
	for attempt := 0; attempt < maxRedeemAttempts; attempt++ {
		out, err = u.redeemOnce(ctx, req)
		if !errors.Is(err, errLostRace) {
			break
		}
		u.log.Debug().Str("code", req.Code).Int("attempt", attempt+1).Msg("redemption lost a race, re-reading code")
	}

	log := logging.With(ctx, u.log)
	if err != nil {
		err = translateErr(err)
		metrics.IncRedemptionAttempt(attemptResult(err))
		if errors.Is(err, domain.ErrPersistence) {
			log.Error().Err(err).Str("code", req.Code).Msg("redemption failed")
		} else {
			log.Info().Err(err).Str("code", req.Code).Msg("redemption refused")
		}
		return nil, err
	}

	switch {
	case out.result.AlreadyRedeemed:
		metrics.IncRedemptionAttempt("already_redeemed")
	case out.event != nil && out.event.Extended:
		metrics.IncRedemptionAttempt("extended")
	default:
		metrics.IncRedemptionAttempt("activated")
	}

	if out.event != nil {
		metrics.AddSubscriptionDaysGranted(out.event.PlanID, out.result.DurationDays)
		if out.event.CommissionID != nil {
			metrics.IncCommissionCreated()
		}
		log.Info().
			Str("code", req.Code).
			Int64("account_id", out.result.AccountID).
			Int64("plan_id", out.event.PlanID).
			Bool("extended", out.event.Extended).
			Msg("redemption code activated")
		u.publish(ctx, *out.event)
	}
	return out.result, nil
}

// redeemOnce runs one read-committed transaction. It returns errLostRace when the
// conditional update found the code already consumed or expired.
func (u *activationUC) redeemOnce(ctx context.Context, req RedeemRequest) (redeemOutcome, error) {
	var out redeemOutcome
	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		now := u.policy.Now()

		code, err := u.codes.FindByCode(ctx, tx, req.Code)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrCodeNotFound
			}
			return err
		}

		account, err := u.resolveAccount(ctx, tx, req)
		if err != nil {
			return err
		}
		if !account.IsActive() {
			return domain.ErrAccountDisabled
		}

		plan, err := u.plans.FindByID(ctx, tx, code.PlanID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrPlanNotFound
			}
			return err
		}

		if code.IsUsed() {
			if !code.RedeemedByAccount(account.ID) {
				return domain.ErrCodeRedeemedByOther
			}
			res := resultFor(plan, account.ID, true)
			if sub, err := u.subs.FindActiveByAccount(ctx, tx, account.ID); err == nil {
				res.SubscriptionEnd = &sub.EndDate
			} else if !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			out.result = res
			return nil
		}
		if code.IsExpired(now) {
			return domain.ErrCodeExpired
		}

		if err := u.subs.LockAccount(ctx, tx, account.ID); err != nil {
			return err
		}

		ok, err := u.codes.MarkRedeemed(ctx, tx, code.Code, account.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return errLostRace
		}

		sub, extended, err := u.grant(ctx, tx, account.ID, plan, now)
		if err != nil {
			return err
		}

		var commissionID *int64
		if account.IsReferred() && u.policy.CommissionPercent > 0 {
			c, err := model.NewCommission(
				*account.ReferredBy,
				account.ID,
				model.CommissionAmount(plan.Price, u.policy.CommissionPercent),
				model.RedemptionSourceRef(code.Code),
				now,
			)
			if err != nil {
				return err
			}
			if err := u.commissions.Create(ctx, tx, c); err != nil {
				return err
			}
			commissionID = &c.ID
		}

		res := resultFor(plan, account.ID, false)
		res.SubscriptionEnd = &sub.EndDate
		out.result = res
		out.event = &adapter.ActivationEvent{
			Code:           code.Code,
			AccountID:      account.ID,
			PlanID:         plan.ID,
			SubscriptionID: sub.ID,
			EndDate:        sub.EndDate,
			Extended:       extended,
			CommissionID:   commissionID,
			OccurredAt:     now,
		}
		return nil
	})
	return out, err
}

// resolveAccount loads the authenticated account or finds-or-creates the guest account.
func (u *activationUC) resolveAccount(ctx context.Context, tx repository.Tx, req RedeemRequest) (*model.Account, error) {
	if req.AccountID > 0 {
		acc, err := u.accounts.FindByID(ctx, tx, req.AccountID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return acc, err
	}

	acc, err := u.accounts.FindByEmail(ctx, tx, req.Email)
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	guest, err := model.NewGuestAccount(req.Email)
	if err != nil {
		return nil, invalidArg("email is not valid")
	}
	if req.ReferralCode != "" {
		referrer, err := u.accounts.FindByReferralCode(ctx, tx, req.ReferralCode)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrReferralCodeInvalid
		}
		if err != nil {
			return nil, err
		}
		if !referrer.IsActive() {
			return nil, domain.ErrReferralCodeInvalid
		}
		guest.ReferredBy = &referrer.ID
	}

	for attempt := 0; attempt < maxGuestInsertAttempts; attempt++ {
		created, err := u.accounts.Create(ctx, tx, guest)
		if err != nil {
			return nil, err
		}
		if created {
			l := logging.With(ctx, u.log)
			l.Info().
				Int64("account_id", guest.ID).
				Str("email", logging.MaskEmail(guest.Email)).
				Bool("referred", guest.IsReferred()).
				Msg("guest account inserted")
			return guest, nil
		}
		// Either a concurrent guest redemption inserted the same email first,
		// or the referral code collided with an existing one.
		acc, err := u.accounts.FindByEmail(ctx, tx, req.Email)
		if !errors.Is(err, domain.ErrNotFound) {
			return acc, err
		}
		if guest.ReferralCode, err = model.NewReferralCode(rand.Reader); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("no free referral code after %d attempts", maxGuestInsertAttempts)
}

// grant extends the account's current subscription or starts a new one.
func (u *activationUC) grant(ctx context.Context, tx repository.Tx, accountID int64, plan *model.Plan, now time.Time) (*model.Subscription, bool, error) {
	current, err := u.subs.FindActiveByAccount(ctx, tx, accountID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}

	if current != nil && current.IsCurrent(now) {
		current.Extend(plan, now)
		if err := u.subs.Save(ctx, tx, current); err != nil {
			return nil, false, err
		}
		return current, true, nil
	}

	if current != nil {
		// Ran out but the expiry worker has not caught it yet.
		current.Status = model.SubscriptionStatusExpired
		current.UpdatedAt = now
		if err := u.subs.Save(ctx, tx, current); err != nil {
			return nil, false, err
		}
	}

	sub, err := model.NewSubscription(accountID, plan, now)
	if err != nil {
		return nil, false, err
	}
	if err := u.subs.Save(ctx, tx, sub); err != nil {
		return nil, false, err
	}
	return sub, false, nil
}

func (u *activationUC) publish(ctx context.Context, ev adapter.ActivationEvent) {
	if u.events == nil {
		return
	}
	if err := u.events.PublishActivation(ctx, ev); err != nil {
		log := logging.With(ctx, u.log)
		log.Warn().Err(err).Str("code", ev.Code).Msg("failed to publish activation event")
	}
}

func resultFor(plan *model.Plan, accountID int64, already bool) *ActivationResult {
	return &ActivationResult{
		PlanName:        plan.Name,
		DurationDays:    plan.DurationDays,
		TrafficGB:       plan.TrafficGB,
		DeviceLimit:     plan.DeviceLimit,
		AlreadyRedeemed: already,
		AccountID:       accountID,
	}
}

func attemptResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrReferralCodeInvalid):
		return "invalid"
	case errors.Is(err, domain.ErrCodeNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrCodeExpired):
		return "expired"
	case errors.Is(err, domain.ErrCodeRedeemedByOther):
		return "conflict"
	case errors.Is(err, domain.ErrAccountDisabled), errors.Is(err, domain.ErrAccountNotFound):
		return "rejected"
	default:
		return "error"
	}
}

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
var _ PlanUseCase = (*planUC)(nil)

type PlanInput struct {
	Name         string
	DurationDays int
	TrafficGB    int64
	DeviceLimit  int
	Price        int64
}

// PlanUseCase manages subscription plans.
type PlanUseCase interface {
	Create(ctx context.Context, in PlanInput) (*model.Plan, error)
	Get(ctx context.Context, id int64) (*model.Plan, error)
	// Update edits a plan in place. Subscriptions already granted keep the limits
	// they copied, so only future redemptions see the change.
	Update(ctx context.Context, id int64, patch model.PlanPatch) (*model.Plan, error)
	// List returns every plan, or only the purchasable ones when activeOnly is set.
	List(ctx context.Context, activeOnly bool) ([]*model.Plan, error)
}

type planUC struct {
	repo repository.PlanRepository
	log  *zerolog.Logger
}

func NewPlanUseCase(repo repository.PlanRepository, logger *zerolog.Logger) *planUC {
	return &planUC{repo: repo, log: logger}
}

func (u *planUC) Create(ctx context.Context, in PlanInput) (*model.Plan, error) {
	defer logging.TraceDuration(u.log, "PlanUC.Create")()

	plan, err := model.NewPlan(in.Name, in.DurationDays, in.TrafficGB, in.DeviceLimit, in.Price)
	if err != nil {
		return nil, err
	}
	if err := u.repo.Save(ctx, repository.NoTX, plan); err != nil {
		return nil, translateErr(err)
	}
	log := logging.With(ctx, u.log)
	log.Info().Int64("plan_id", plan.ID).Str("name", plan.Name).Msg("plan created")
	return plan, nil
}

func (u *planUC) Get(ctx context.Context, id int64) (*model.Plan, error) {
	plan, err := u.repo.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrPlanNotFound
		}
		return nil, translateErr(err)
	}
	return plan, nil
}

func (u *planUC) Update(ctx context.Context, id int64, patch model.PlanPatch) (*model.Plan, error) {
	defer logging.TraceDuration(u.log, "PlanUC.Update")()

	plan, err := u.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := plan.Apply(patch); err != nil {
		return nil, invalidArg("plan fields are out of range")
	}
	if err := u.repo.Save(ctx, repository.NoTX, plan); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrPlanNotFound
		}
		return nil, translateErr(err)
	}
	log := logging.With(ctx, u.log)
	log.Info().Int64("plan_id", plan.ID).Bool("is_active", plan.IsActive).Msg("plan updated")
	return plan, nil
}

func (u *planUC) List(ctx context.Context, activeOnly bool) ([]*model.Plan, error) {
	plans, err := u.repo.ListAll(ctx, repository.NoTX)
	if err != nil {
		return nil, translateErr(err)
	}
	if !activeOnly {
		return plans, nil
	}
	out := make([]*model.Plan, 0, len(plans))
	for _, p := range plans {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

package repository

import (
	"context"

	"xpanel/internal/domain/model"
)

// PlanRepository is the port for plan persistence.
type PlanRepository interface {
	// Save inserts a plan when its ID is zero and updates it otherwise.
	Save(ctx context.Context, tx Tx, plan *model.Plan) error
	FindByID(ctx context.Context, tx Tx, id int64) (*model.Plan, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.Plan, error)
}

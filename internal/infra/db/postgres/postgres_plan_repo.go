package postgres

import (
	"context"
	"errors"

	"xpanel/internal/domain"
	"xpanel/internal/domain/model"
	"xpanel/internal/domain/ports/repository"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Ensure interface compliance
var _ repository.PlanRepository = (*PostgresPlanRepo)(nil)

type PostgresPlanRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresPlanRepo(pool *pgxpool.Pool) *PostgresPlanRepo {
	return &PostgresPlanRepo{pool: pool}
}

func (r *PostgresPlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.Plan) error {
	if p.ID == 0 {
		const ins = `
INSERT INTO plans (name, duration_days, traffic_gb, device_limit, price, is_active, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id;`
		row, err := pickRow(ctx, r.pool, tx, ins, p.Name, p.DurationDays, p.TrafficGB, p.DeviceLimit, p.Price, p.IsActive, p.CreatedAt)
		if err != nil {
			return err
		}
		return wrapErr("insert plan", row.Scan(&p.ID))
	}

	const upd = `
UPDATE plans
   SET name = $2, duration_days = $3, traffic_gb = $4, device_limit = $5, price = $6, is_active = $7
 WHERE id = $1;`
	tag, err := execSQL(ctx, r.pool, tx, upd, p.ID, p.Name, p.DurationDays, p.TrafficGB, p.DeviceLimit, p.Price, p.IsActive)
	if err != nil {
		return wrapErr("update plan", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.Plan, error) {
	const q = `
SELECT id, name, duration_days, traffic_gb, device_limit, price, is_active, created_at
  FROM plans
 WHERE id = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	p, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func (r *PostgresPlanRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	const q = `
SELECT id, name, duration_days, traffic_gb, device_limit, price, is_active, created_at
  FROM plans
 ORDER BY price ASC, id ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, wrapErr("list plans", err)
	}
	defer rows.Close()

	var out []*model.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func scanPlan(row pgx.Row) (*model.Plan, error) {
	var p model.Plan
	if err := row.Scan(&p.ID, &p.Name, &p.DurationDays, &p.TrafficGB, &p.DeviceLimit, &p.Price, &p.IsActive, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

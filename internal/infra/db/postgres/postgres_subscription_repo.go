package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"xpanel/internal/domain"
	"xpanel/internal/domain/model"
	"xpanel/internal/domain/ports/repository"
)

// Ensure subscriptionRepo implements repository.SubscriptionRepository
var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subColumns = `id, account_id, plan_id, status, start_date, end_date, traffic_used, traffic_total, device_limit, created_at, updated_at`

// LockAccount takes a transaction-scoped advisory lock keyed by the account id.
// Outside a transaction the lock would be released immediately, so a tx is required.
func (r *subscriptionRepo) LockAccount(ctx context.Context, tx repository.Tx, accountID int64) error {
	if tx == nil {
		return domain.ErrInvalidExecContext
	}
	if _, err := execSQL(ctx, r.pool, tx, `SELECT pg_advisory_xact_lock($1)`, accountID); err != nil {
		return wrapErr("lock account", err)
	}
	return nil
}

func (r *subscriptionRepo) FindActiveByAccount(ctx context.Context, tx repository.Tx, accountID int64) (*model.Subscription, error) {
	q := `SELECT ` + subColumns + `
  FROM subscriptions
 WHERE account_id = $1 AND status = 'active'
 ORDER BY end_date DESC
 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, accountID)
	if err != nil {
		return nil, err
	}
	s, err := scanSub(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return s, nil
}

func (r *subscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	if s.ID == 0 {
		const ins = `
INSERT INTO subscriptions (account_id, plan_id, status, start_date, end_date, traffic_used, traffic_total, device_limit, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id;`
		row, err := pickRow(ctx, r.pool, tx, ins,
			s.AccountID, s.PlanID, string(s.Status), s.StartDate, s.EndDate, s.TrafficUsed, s.TrafficTotal, s.DeviceLimit, s.CreatedAt, s.UpdatedAt)
		if err != nil {
			return err
		}
		return wrapErr("insert subscription", row.Scan(&s.ID))
	}

	const upd = `
UPDATE subscriptions
   SET status = $2, end_date = $3, traffic_used = $4, traffic_total = $5, device_limit = $6, updated_at = $7
 WHERE id = $1;`
	tag, err := execSQL(ctx, r.pool, tx, upd, s.ID, string(s.Status), s.EndDate, s.TrafficUsed, s.TrafficTotal, s.DeviceLimit, s.UpdatedAt)
	if err != nil {
		return wrapErr("update subscription", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *subscriptionRepo) ExpireDue(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	const q = `
UPDATE subscriptions
   SET status = 'expired', updated_at = $1
 WHERE status = 'active' AND end_date <= $1;`
	tag, err := execSQL(ctx, r.pool, tx, q, now)
	if err != nil {
		return 0, wrapErr("expire subscriptions", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *subscriptionRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error) {
	const q = `SELECT status, COUNT(*) FROM subscriptions GROUP BY status;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, wrapErr("count subscriptions", err)
	}
	defer rows.Close()

	counts := make(map[model.SubscriptionStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		counts[model.SubscriptionStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return counts, nil
}

func scanSub(row pgx.Row) (*model.Subscription, error) {
	var (
		s      model.Subscription
		status string
	)
	if err := row.Scan(&s.ID, &s.AccountID, &s.PlanID, &status, &s.StartDate, &s.EndDate, &s.TrafficUsed, &s.TrafficTotal, &s.DeviceLimit, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Status = model.SubscriptionStatus(status)
	return &s, nil
}

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

var _ repository.CommissionRepository = (*commissionRepo)(nil)

type commissionRepo struct {
	pool *pgxpool.Pool
}

func NewCommissionRepo(pool *pgxpool.Pool) repository.CommissionRepository {
	return &commissionRepo{pool: pool}
}

const commissionColumns = `id, referrer_account_id, referee_account_id, amount, status, source_ref, created_at, settled_at, withdrawal_id`

func (r *commissionRepo) Create(ctx context.Context, tx repository.Tx, c *model.Commission) error {
	const q = `
INSERT INTO commissions (referrer_account_id, referee_account_id, amount, status, source_ref, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id;`
	row, err := pickRow(ctx, r.pool, tx, q, c.ReferrerAccountID, c.RefereeAccountID, c.Amount, string(c.Status), c.SourceRef, c.CreatedAt)
	if err != nil {
		return err
	}
	if err := row.Scan(&c.ID); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return wrapErr("insert commission", err)
	}
	return nil
}

func (r *commissionRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.Commission, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+commissionColumns+` FROM commissions WHERE id = $1;`, id)
	if err != nil {
		return nil, err
	}
	c, err := scanCommission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return c, nil
}

func (r *commissionRepo) List(ctx context.Context, tx repository.Tx, f model.CommissionFilter) ([]*model.Commission, int, error) {
	// Zero values match every row.
	const where = ` WHERE ($1 = '' OR status = $1) AND ($2::bigint = 0 OR referrer_account_id = $2)`
	status := string(f.Status)

	var total int
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM commissions`+where+`;`, status, f.ReferrerAccountID)
	if err != nil {
		return nil, 0, err
	}
	if err := row.Scan(&total); err != nil {
		return nil, 0, wrapErr("count commissions", err)
	}

	rows, err := queryRows(ctx, r.pool, tx,
		`SELECT `+commissionColumns+` FROM commissions`+where+` ORDER BY created_at DESC, id DESC LIMIT $3 OFFSET $4;`,
		status, f.ReferrerAccountID, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, wrapErr("list commissions", err)
	}
	defer rows.Close()

	out := make([]*model.Commission, 0, f.Limit)
	for rows.Next() {
		c, err := scanCommission(rows)
		if err != nil {
			return nil, 0, domain.ErrReadDatabaseRow
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, domain.ErrReadDatabaseRow
	}
	return out, total, nil
}

func (r *commissionRepo) MarkSettled(ctx context.Context, tx repository.Tx, id int64, at time.Time) (bool, error) {
	const q = `
UPDATE commissions
   SET status = 'settled', settled_at = $2
 WHERE id = $1 AND status = 'pending';`
	tag, err := execSQL(ctx, r.pool, tx, q, id, at)
	if err != nil {
		return false, wrapErr("settle commission", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkWithdrawn runs after the withdrawal row itself was approved in the same
// transaction, so the budget already includes its amount.
func (r *commissionRepo) MarkWithdrawn(ctx context.Context, tx repository.Tx, referrerID, withdrawalID int64) (int, error) {
	const q = `
WITH budget AS (
    SELECT (SELECT COALESCE(SUM(amount), 0) FROM withdrawals
             WHERE account_id = $1 AND status = 'approved')
         - (SELECT COALESCE(SUM(amount), 0) FROM commissions
             WHERE referrer_account_id = $1 AND status = 'withdrawn') AS remaining
), covered AS (
    SELECT s.id
      FROM (SELECT id, SUM(amount) OVER (ORDER BY settled_at, id) AS running
              FROM commissions
             WHERE referrer_account_id = $1 AND status = 'settled') s, budget
     WHERE s.running <= budget.remaining
)
UPDATE commissions
   SET status = 'withdrawn', withdrawal_id = $2
 WHERE id IN (SELECT id FROM covered) AND status = 'settled';`
	tag, err := execSQL(ctx, r.pool, tx, q, referrerID, withdrawalID)
	if err != nil {
		return 0, wrapErr("mark commissions withdrawn", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *commissionRepo) TotalsByStatus(ctx context.Context, tx repository.Tx, referrerID int64) (map[model.CommissionStatus]int64, error) {
	rows, err := queryRows(ctx, r.pool, tx,
		`SELECT status, COALESCE(SUM(amount), 0)::bigint FROM commissions WHERE referrer_account_id = $1 GROUP BY status;`, referrerID)
	if err != nil {
		return nil, wrapErr("sum commissions", err)
	}
	defer rows.Close()

	out := map[model.CommissionStatus]int64{}
	for rows.Next() {
		var (
			status string
			sum    int64
		)
		if err := rows.Scan(&status, &sum); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[model.CommissionStatus(status)] = sum
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func scanCommission(row pgx.Row) (*model.Commission, error) {
	var (
		c      model.Commission
		status string
	)
	if err := row.Scan(&c.ID, &c.ReferrerAccountID, &c.RefereeAccountID, &c.Amount, &status, &c.SourceRef, &c.CreatedAt, &c.SettledAt, &c.WithdrawalID); err != nil {
		return nil, err
	}
	c.Status = model.CommissionStatus(status)
	return &c, nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"xpanel/internal/domain"
	"xpanel/internal/domain/model"
	"xpanel/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.RedemptionCodeRepository = (*redemptionCodeRepo)(nil)

type redemptionCodeRepo struct {
	pool *pgxpool.Pool
}

func NewRedemptionCodeRepo(pool *pgxpool.Pool) repository.RedemptionCodeRepository {
	return &redemptionCodeRepo{pool: pool}
}

const codeColumns = `id, code, plan_id, batch_id, status, expires_at, redeemed_by, redeemed_at, created_by, created_at`

// Insert relies on ON CONFLICT DO NOTHING so a duplicate does not abort the
// surrounding transaction; the caller simply draws another candidate.
func (r *redemptionCodeRepo) Insert(ctx context.Context, tx repository.Tx, c *model.RedemptionCode) (bool, error) {
	const q = `
INSERT INTO redemption_codes (code, plan_id, batch_id, status, expires_at, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (code) DO NOTHING
RETURNING id;`
	row, err := pickRow(ctx, r.pool, tx, q,
		c.Code, c.PlanID, c.BatchID, string(c.Status), c.ExpiresAt, c.CreatedBy, c.CreatedAt,
	)
	if err != nil {
		return false, err
	}
	if err := row.Scan(&c.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, wrapErr("insert redemption code", err)
	}
	return true, nil
}

func (r *redemptionCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.RedemptionCode, error) {
	q := `SELECT ` + codeColumns + ` FROM redemption_codes WHERE code = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return nil, err
	}
	c, err := scanCode(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return c, nil
}

// MarkRedeemed is the compare-and-swap that decides which redemption wins.
func (r *redemptionCodeRepo) MarkRedeemed(ctx context.Context, tx repository.Tx, code string, accountID int64, at time.Time) (bool, error) {
	const q = `
UPDATE redemption_codes
   SET status = 'used', redeemed_by = $2, redeemed_at = $3
 WHERE code = $1
   AND status = 'unused'
   AND (expires_at IS NULL OR expires_at > $3);`
	tag, err := execSQL(ctx, r.pool, tx, q, code, accountID, at)
	if err != nil {
		return false, wrapErr("mark code redeemed", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *redemptionCodeRepo) List(ctx context.Context, tx repository.Tx, f model.CodeFilter) ([]*model.RedemptionCode, int, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, containsPattern(f.Search))
		where = append(where, fmt.Sprintf(`code LIKE $%d ESCAPE '\'`, len(args)))
	}
	if f.PlanID > 0 {
		args = append(args, f.PlanID)
		where = append(where, fmt.Sprintf("plan_id = $%d", len(args)))
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM redemption_codes`+cond, args...)
	if err != nil {
		return nil, 0, err
	}
	if err := row.Scan(&total); err != nil {
		return nil, 0, wrapErr("count redemption codes", err)
	}

	args = append(args, f.Limit, f.Offset)
	q := fmt.Sprintf(`SELECT %s FROM redemption_codes%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		codeColumns, cond, len(args)-1, len(args))
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, 0, wrapErr("list redemption codes", err)
	}
	defer rows.Close()

	out := make([]*model.RedemptionCode, 0, f.Limit)
	for rows.Next() {
		c, err := scanCode(rows)
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

func (r *redemptionCodeRepo) DeleteUnused(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM redemption_codes WHERE code = $1 AND status = 'unused';`, code)
	if err != nil {
		return false, wrapErr("delete redemption code", err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanCode(row pgx.Row) (*model.RedemptionCode, error) {
	var (
		c      model.RedemptionCode
		status string
	)
	if err := row.Scan(&c.ID, &c.Code, &c.PlanID, &c.BatchID, &status, &c.ExpiresAt, &c.RedeemedBy, &c.RedeemedAt, &c.CreatedBy, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.Status = model.CodeStatus(status)
	return &c, nil
}

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"xpanel/internal/domain"
	"xpanel/internal/domain/model"
	"xpanel/internal/domain/ports/repository"
)

var _ repository.AccountRepository = (*PostgresAccountRepo)(nil)

type PostgresAccountRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresAccountRepo(pool *pgxpool.Pool) *PostgresAccountRepo {
	return &PostgresAccountRepo{pool: pool}
}

const accountColumns = `id, email, password_hash, role, status, referred_by, referral_code, balance, commission_balance, created_at, updated_at`

func (r *PostgresAccountRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.Account, error) {
	return r.queryOne(ctx, tx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1;`, id)
}

func (r *PostgresAccountRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.Account, error) {
	return r.queryOne(ctx, tx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1;`, model.NormalizeEmail(email))
}

func (r *PostgresAccountRepo) FindByReferralCode(ctx context.Context, tx repository.Tx, code string) (*model.Account, error) {
	return r.queryOne(ctx, tx, `SELECT `+accountColumns+` FROM accounts WHERE referral_code = $1;`, model.NormalizeReferralCode(code))
}

// Create does not fail on a taken email or referral code. Concurrent guest
// redemptions for the same address re-read the winner instead, and a referral
// code collision is retried with a fresh code by the caller.
func (r *PostgresAccountRepo) Create(ctx context.Context, tx repository.Tx, a *model.Account) (bool, error) {
	const q = `
INSERT INTO accounts (email, password_hash, role, status, referred_by, referral_code, balance, commission_balance, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT DO NOTHING
RETURNING id;`
	row, err := pickRow(ctx, r.pool, tx, q,
		model.NormalizeEmail(a.Email), a.PasswordHash, string(a.Role), string(a.Status), a.ReferredBy,
		a.ReferralCode, a.Balance, a.CommissionBalance, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return false, err
	}
	if err := row.Scan(&a.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, wrapErr("insert account", err)
	}
	return true, nil
}

func (r *PostgresAccountRepo) List(ctx context.Context, tx repository.Tx, search string, offset, limit int) ([]*model.Account, int, error) {
	const from = ` FROM accounts WHERE email LIKE $1 ESCAPE '\'`
	return r.page(ctx, tx, "accounts", from, containsPattern(model.NormalizeEmail(search)), offset, limit)
}

func (r *PostgresAccountRepo) ListReferred(ctx context.Context, tx repository.Tx, referrerID int64, offset, limit int) ([]*model.Account, int, error) {
	return r.page(ctx, tx, "referred accounts", ` FROM accounts WHERE referred_by = $1`, referrerID, offset, limit)
}

// page counts and lists the accounts matched by from, which takes exactly one argument.
func (r *PostgresAccountRepo) page(ctx context.Context, tx repository.Tx, what, from string, arg interface{}, offset, limit int) ([]*model.Account, int, error) {
	var total int
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*)`+from+`;`, arg)
	if err != nil {
		return nil, 0, err
	}
	if err := row.Scan(&total); err != nil {
		return nil, 0, wrapErr("count "+what, err)
	}

	rows, err := queryRows(ctx, r.pool, tx,
		`SELECT `+accountColumns+from+` ORDER BY id DESC LIMIT $2 OFFSET $3;`,
		arg, limit, offset)
	if err != nil {
		return nil, 0, wrapErr("list "+what, err)
	}
	defer rows.Close()

	out := make([]*model.Account, 0, limit)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, 0, domain.ErrReadDatabaseRow
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, domain.ErrReadDatabaseRow
	}
	return out, total, nil
}

func (r *PostgresAccountRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id int64, status model.AccountStatus) error {
	tag, err := execSQL(ctx, r.pool, tx, `UPDATE accounts SET status = $2, updated_at = NOW() WHERE id = $1;`, id, string(status))
	if err != nil {
		return wrapErr("update account status", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresAccountRepo) AddCommissionBalance(ctx context.Context, tx repository.Tx, id int64, amount int64) error {
	const q = `
UPDATE accounts
   SET commission_balance = commission_balance + $2, updated_at = NOW()
 WHERE id = $1;`
	tag, err := execSQL(ctx, r.pool, tx, q, id, amount)
	if err != nil {
		return wrapErr("add commission balance", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresAccountRepo) DebitCommissionBalance(ctx context.Context, tx repository.Tx, id int64, amount int64) (bool, error) {
	const q = `
UPDATE accounts
   SET commission_balance = commission_balance - $2, updated_at = NOW()
 WHERE id = $1 AND commission_balance >= $2;`
	tag, err := execSQL(ctx, r.pool, tx, q, id, amount)
	if err != nil {
		return false, wrapErr("debit commission balance", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresAccountRepo) queryOne(ctx context.Context, tx repository.Tx, sql string, args ...interface{}) (*model.Account, error) {
	row, err := pickRow(ctx, r.pool, tx, sql, args...)
	if err != nil {
		return nil, err
	}
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return a, nil
}

func scanAccount(row pgx.Row) (*model.Account, error) {
	var (
		a            model.Account
		role, status string
	)
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &role, &status, &a.ReferredBy, &a.ReferralCode, &a.Balance, &a.CommissionBalance, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Role = model.Role(role)
	a.Status = model.AccountStatus(status)
	return &a, nil
}

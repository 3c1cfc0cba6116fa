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

var _ repository.WithdrawalRepository = (*withdrawalRepo)(nil)

type withdrawalRepo struct {
	pool *pgxpool.Pool
}

func NewWithdrawalRepo(pool *pgxpool.Pool) repository.WithdrawalRepository {
	return &withdrawalRepo{pool: pool}
}

const withdrawalColumns = `id, account_id, amount, method, payment_account, real_name, status, admin_note, created_at, processed_at`

func (r *withdrawalRepo) Create(ctx context.Context, tx repository.Tx, w *model.Withdrawal) error {
	const q = `
INSERT INTO withdrawals (account_id, amount, method, payment_account, real_name, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id;`
	row, err := pickRow(ctx, r.pool, tx, q,
		w.AccountID, w.Amount, string(w.Method), w.PaymentAccount, w.RealName, string(w.Status), w.CreatedAt)
	if err != nil {
		return err
	}
	return wrapErr("insert withdrawal", row.Scan(&w.ID))
}

func (r *withdrawalRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.Withdrawal, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1;`, id)
	if err != nil {
		return nil, err
	}
	w, err := scanWithdrawal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return w, nil
}

func (r *withdrawalRepo) List(ctx context.Context, tx repository.Tx, f model.WithdrawalFilter) ([]*model.Withdrawal, int, error) {
	const where = ` WHERE ($1 = '' OR status = $1) AND ($2::bigint = 0 OR account_id = $2)`
	status := string(f.Status)

	var total int
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM withdrawals`+where+`;`, status, f.AccountID)
	if err != nil {
		return nil, 0, err
	}
	if err := row.Scan(&total); err != nil {
		return nil, 0, wrapErr("count withdrawals", err)
	}

	rows, err := queryRows(ctx, r.pool, tx,
		`SELECT `+withdrawalColumns+` FROM withdrawals`+where+` ORDER BY created_at DESC, id DESC LIMIT $3 OFFSET $4;`,
		status, f.AccountID, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, wrapErr("list withdrawals", err)
	}
	defer rows.Close()

	out := make([]*model.Withdrawal, 0, f.Limit)
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, 0, domain.ErrReadDatabaseRow
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, domain.ErrReadDatabaseRow
	}
	return out, total, nil
}

func (r *withdrawalRepo) PendingTotal(ctx context.Context, tx repository.Tx, accountID int64) (int64, error) {
	row, err := pickRow(ctx, r.pool, tx,
		`SELECT COALESCE(SUM(amount), 0)::bigint FROM withdrawals WHERE account_id = $1 AND status = 'pending';`, accountID)
	if err != nil {
		return 0, err
	}
	var total int64
	if err := row.Scan(&total); err != nil {
		return 0, wrapErr("sum pending withdrawals", err)
	}
	return total, nil
}

func (r *withdrawalRepo) MarkProcessed(ctx context.Context, tx repository.Tx, id int64, status model.WithdrawalStatus, note string, at time.Time) (bool, error) {
	const q = `
UPDATE withdrawals
   SET status = $2, admin_note = $3, processed_at = $4
 WHERE id = $1 AND status = 'pending';`
	tag, err := execSQL(ctx, r.pool, tx, q, id, string(status), note, at)
	if err != nil {
		return false, wrapErr("process withdrawal", err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanWithdrawal(row pgx.Row) (*model.Withdrawal, error) {
	var (
		w              model.Withdrawal
		method, status string
	)
	if err := row.Scan(&w.ID, &w.AccountID, &w.Amount, &method, &w.PaymentAccount, &w.RealName, &status, &w.AdminNote, &w.CreatedAt, &w.ProcessedAt); err != nil {
		return nil, err
	}
	w.Method = model.WithdrawalMethod(method)
	w.Status = model.WithdrawalStatus(status)
	return &w, nil
}

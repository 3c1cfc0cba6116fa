package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle. Its concrete type belongs to the storage
// adapter (pgx.Tx for Postgres); use cases only pass it along.
type Tx interface{}

// NoTX tells a repository to run on its own connection, outside any transaction.
var NoTX interface{}

// TransactionManager runs fn inside one storage transaction.
//
// Repositories called with the tx handed to fn join that transaction. If fn returns
// an error everything it wrote is rolled back; otherwise the transaction commits and
// a commit failure is returned.
//
//	err := tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx Tx) error {
//		code, err := codes.FindByCode(ctx, tx, "ABC")
//		...
//	})
//
// Repositories MUST accept a nil tx (non-transactional path).
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}

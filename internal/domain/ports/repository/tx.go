package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager executes a function within a database transaction,
// passing the underlying handle via the `tx` argument.
//
// Repositories accept `tx Tx` and must gracefully accept nil (the
// non-transactional path); the concrete type is infra-defined (pgx.Tx for
// Postgres). This keeps use-case interfaces free of storage types.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}

package db

import (
	"context"
	"database/sql"
)

// MakeTx begins a transaction, the returned Queries run inside it until
// either discard or commit is called.
type MakeTx = func(ctx context.Context) (tx *Queries, discard, commit func() error, err error)

func NewMakeTx(database *sql.DB) MakeTx {
	return func(ctx context.Context) (*Queries, func() error, func() error, error) {
		sqltx, err := database.BeginTx(ctx, nil)
		if err != nil {
			return nil, nil, nil, err
		}
		return New(database).WithTx(sqltx),
			func() error {
				err := sqltx.Rollback()
				if err == sql.ErrTxDone {
					return nil
				}
				return err
			},
			sqltx.Commit,
			nil
	}
}

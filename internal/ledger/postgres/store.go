// Package postgres is the production ledger.Store backed by pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bitbazaar/marketplace-backend/internal/apperr"
)

type Store struct{ pool *pgxpool.Pool }

func NewStore(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

// withTx runs fn inside one serializable transaction; any error rolls
// the whole thing back.
func (s *Store) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return fmt.Errorf("%w: begin: %v", apperr.ErrDatabase, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %v", apperr.ErrDatabase, err)
	}
	return nil
}

// dbErr maps a pgx error onto the taxonomy, keeping no-rows as NotFound.
func dbErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.ErrNotFound
	}
	return fmt.Errorf("%w: %v", apperr.ErrDatabase, err)
}

package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bitbazaar/marketplace-backend/internal/apperr"
	"github.com/bitbazaar/marketplace-backend/internal/ledger"
	"github.com/bitbazaar/marketplace-backend/internal/models"
)

const orderCols = `id, buyer_account_id, item_id, amount, pay_rail, status, external_tx_ref, created_at, expires_at`

func scanOrder(row interface{ Scan(...any) error }) (models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.BuyerAccountID, &o.ItemID, &o.Amount, &o.PayRail, &o.Status, &o.ExternalTxRef, &o.CreatedAt, &o.ExpiresAt)
	return o, err
}

func (s *Store) GetOrder(ctx context.Context, id string) (models.Order, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1`, id)
	out, err := scanOrder(row)
	if err != nil {
		return models.Order{}, dbErr(err)
	}
	return out, nil
}

func (s *Store) ListOrdersByBuyer(ctx context.Context, buyerID string, limit, offset int) ([]models.Order, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+orderCols+` FROM orders
		  WHERE buyer_account_id=$1
		  ORDER BY created_at DESC
		  LIMIT $2 OFFSET $3`,
		buyerID, limit, offset,
	)
	if err != nil {
		return nil, dbErr(err)
	}
	defer rows.Close()

	var out []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, dbErr(err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr(err)
	}
	return out, nil
}

func (s *Store) InsertPendingOrder(ctx context.Context, o models.Order) (models.Order, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO orders(id, buyer_account_id, item_id, amount, pay_rail, status, external_tx_ref, expires_at)
		 VALUES($1,$2,$3,$4,$5,'pending',$6,$7)
		 RETURNING `+orderCols,
		o.ID, o.BuyerAccountID, o.ItemID, o.Amount, o.PayRail, o.ExternalTxRef, o.ExpiresAt,
	)
	out, err := scanOrder(row)
	if err != nil {
		return models.Order{}, dbErr(err)
	}
	return out, nil
}

func (s *Store) Reconcile(ctx context.Context, o models.Order, outcome models.Outcome, feeRate float64) (models.Order, error) {
	var out models.Order
	var err error
	switch o.PayRail {
	case models.RailInternal:
		err = s.withTx(ctx, func(tx pgx.Tx) error {
			out, err = s.reconcileInternal(ctx, tx, o, feeRate)
			return err
		})
	case models.RailExternal:
		err = s.withTx(ctx, func(tx pgx.Tx) error {
			out, err = s.reconcileExternal(ctx, tx, o, outcome)
			return err
		})
	default:
		return models.Order{}, fmt.Errorf("%w: unknown pay rail %q", apperr.ErrValidation, o.PayRail)
	}
	if err != nil {
		return models.Order{}, err
	}
	return out, nil
}

// reconcileInternal inserts the order as success, debits the buyer with a
// conditional decrement, credits the seller net of the fee and bumps the
// item's redemption count. One transaction; a failed debit aborts all of it.
func (s *Store) reconcileInternal(ctx context.Context, tx pgx.Tx, o models.Order, feeRate float64) (models.Order, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	row := tx.QueryRow(ctx,
		`INSERT INTO orders(id, buyer_account_id, item_id, amount, pay_rail, status, expires_at)
		 VALUES($1,$2,$3,$4,'internal','success',$5)
		 RETURNING `+orderCols,
		o.ID, o.BuyerAccountID, o.ItemID, o.Amount, o.ExpiresAt,
	)
	out, err := scanOrder(row)
	if err != nil {
		return models.Order{}, dbErr(err)
	}

	// The balance guard lives in the WHERE clause, not in application
	// code: two racing purchases both pass the router pre-check, but
	// only one can satisfy internal_balance >= amount here.
	tag, err := tx.Exec(ctx,
		`UPDATE accounts
		    SET internal_balance = internal_balance - $2, updated_at = now()
		  WHERE id = $1 AND internal_balance >= $2`,
		o.BuyerAccountID, o.Amount,
	)
	if err != nil {
		return models.Order{}, dbErr(err)
	}
	if tag.RowsAffected() == 0 {
		return models.Order{}, apperr.ErrInsufficientFunds
	}

	var sellerID string
	err = tx.QueryRow(ctx,
		`UPDATE items SET redemption_count = redemption_count + 1
		  WHERE id = $1
		  RETURNING seller_account_id`,
		o.ItemID,
	).Scan(&sellerID)
	if err != nil {
		return models.Order{}, dbErr(err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE accounts
		    SET internal_balance = internal_balance + $2, updated_at = now()
		  WHERE id = $1`,
		sellerID, ledger.SellerShare(o.Amount, feeRate),
	)
	if err != nil {
		return models.Order{}, dbErr(err)
	}
	return out, nil
}

// reconcileExternal applies a confirmed on-chain outcome to an existing
// pending order. Failed and unresolved outcomes deliberately leave the
// row untouched; there is no sweeper flipping stale orders to failed.
func (s *Store) reconcileExternal(ctx context.Context, tx pgx.Tx, o models.Order, outcome models.Outcome) (models.Order, error) {
	row := tx.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1 FOR UPDATE`, o.ID)
	cur, err := scanOrder(row)
	if err != nil {
		return models.Order{}, dbErr(err)
	}
	// Idempotency guard: a re-entrant call for an already-settled order
	// must not touch the counter again.
	if cur.Status == models.OrderSuccess {
		return cur, nil
	}
	if outcome != models.OutcomeConfirmed {
		return cur, nil
	}

	row = tx.QueryRow(ctx,
		`UPDATE orders SET status='success' WHERE id=$1 RETURNING `+orderCols,
		cur.ID,
	)
	out, err := scanOrder(row)
	if err != nil {
		return models.Order{}, dbErr(err)
	}
	_, err = tx.Exec(ctx,
		`UPDATE items SET redemption_count = redemption_count + 1 WHERE id=$1`,
		cur.ItemID,
	)
	if err != nil {
		return models.Order{}, dbErr(err)
	}
	return out, nil
}

package postgres

import (
	"context"

	"github.com/bitbazaar/marketplace-backend/internal/models"
)

func (s *Store) SaveToken(ctx context.Context, t models.RedemptionToken) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO redemption_tokens(token, order_id, issued_at) VALUES($1,$2,$3)`,
		t.Token, t.OrderID, t.IssuedAt,
	)
	if err != nil {
		return dbErr(err)
	}
	return nil
}

func (s *Store) GetToken(ctx context.Context, token string) (models.RedemptionToken, error) {
	var t models.RedemptionToken
	err := s.pool.QueryRow(ctx,
		`SELECT token, order_id, issued_at, redeemed_at FROM redemption_tokens WHERE token=$1`,
		token,
	).Scan(&t.Token, &t.OrderID, &t.IssuedAt, &t.RedeemedAt)
	if err != nil {
		return models.RedemptionToken{}, dbErr(err)
	}
	return t, nil
}

func (s *Store) GetTokenByOrder(ctx context.Context, orderID string) (models.RedemptionToken, error) {
	var t models.RedemptionToken
	err := s.pool.QueryRow(ctx,
		`SELECT token, order_id, issued_at, redeemed_at
		   FROM redemption_tokens
		  WHERE order_id = $1 AND redeemed_at IS NULL
		  ORDER BY issued_at DESC
		  LIMIT 1`,
		orderID,
	).Scan(&t.Token, &t.OrderID, &t.IssuedAt, &t.RedeemedAt)
	if err != nil {
		return models.RedemptionToken{}, dbErr(err)
	}
	return t, nil
}

// RedeemToken is single-use by construction: the UPDATE only matches an
// unredeemed row, so the second caller sees ErrNotFound.
func (s *Store) RedeemToken(ctx context.Context, token string) (models.RedemptionToken, error) {
	var t models.RedemptionToken
	err := s.pool.QueryRow(ctx,
		`UPDATE redemption_tokens
		    SET redeemed_at = now()
		  WHERE token = $1 AND redeemed_at IS NULL
		  RETURNING token, order_id, issued_at, redeemed_at`,
		token,
	).Scan(&t.Token, &t.OrderID, &t.IssuedAt, &t.RedeemedAt)
	if err != nil {
		return models.RedemptionToken{}, dbErr(err)
	}
	return t, nil
}

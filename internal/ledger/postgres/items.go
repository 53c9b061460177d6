package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/bitbazaar/marketplace-backend/internal/apperr"
	"github.com/bitbazaar/marketplace-backend/internal/models"
)

const itemCols = `id, seller_account_id, title, price, status, redemption_count, created_at`

func scanItem(row interface{ Scan(...any) error }) (models.Item, error) {
	var it models.Item
	err := row.Scan(&it.ID, &it.SellerAccountID, &it.Title, &it.Price, &it.Status, &it.RedemptionCount, &it.CreatedAt)
	return it, err
}

func (s *Store) CreateItem(ctx context.Context, it models.Item) (models.Item, error) {
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	if it.Status == "" {
		it.Status = models.ItemActive
	}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO items(id, seller_account_id, title, price, status)
		 VALUES($1,$2,$3,$4,$5)
		 RETURNING `+itemCols,
		it.ID, it.SellerAccountID, it.Title, it.Price, it.Status,
	)
	out, err := scanItem(row)
	if err != nil {
		return models.Item{}, dbErr(err)
	}
	return out, nil
}

func (s *Store) GetItem(ctx context.Context, id string) (models.Item, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+itemCols+` FROM items WHERE id=$1`, id)
	out, err := scanItem(row)
	if err != nil {
		return models.Item{}, dbErr(err)
	}
	return out, nil
}

func (s *Store) ListItems(ctx context.Context, onlyActive bool) ([]models.Item, error) {
	q := `SELECT ` + itemCols + ` FROM items ORDER BY created_at DESC LIMIT 200`
	if onlyActive {
		q = `SELECT ` + itemCols + ` FROM items WHERE status='active' ORDER BY created_at DESC LIMIT 200`
	}
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, dbErr(err)
	}
	defer rows.Close()

	var out []models.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, dbErr(err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr(err)
	}
	return out, nil
}

func (s *Store) DeactivateItem(ctx context.Context, id, sellerID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE items SET status='inactive' WHERE id=$1 AND seller_account_id=$2`,
		id, sellerID,
	)
	if err != nil {
		return dbErr(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

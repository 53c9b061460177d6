package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/bitbazaar/marketplace-backend/internal/models"
)

const accountCols = `id, email, password_hash, role, internal_balance, external_address, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Role, &a.InternalBalance, &a.ExternalAddress, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (s *Store) CreateAccount(ctx context.Context, a models.Account) (models.Account, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO accounts(id, email, password_hash, role, internal_balance, external_address)
		 VALUES($1,$2,$3,$4,$5,$6)
		 RETURNING `+accountCols,
		a.ID, a.Email, a.PasswordHash, a.Role, a.InternalBalance, a.ExternalAddress,
	)
	out, err := scanAccount(row)
	if err != nil {
		return models.Account{}, dbErr(err)
	}
	return out, nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (models.Account, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+accountCols+` FROM accounts WHERE id=$1`, id)
	out, err := scanAccount(row)
	if err != nil {
		return models.Account{}, dbErr(err)
	}
	return out, nil
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (models.Account, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+accountCols+` FROM accounts WHERE email=$1`, email)
	out, err := scanAccount(row)
	if err != nil {
		return models.Account{}, dbErr(err)
	}
	return out, nil
}

// CreditAccount tops up an internal balance outside of any purchase
// (deposits, promo credit). Debits never go through here.
func (s *Store) CreditAccount(ctx context.Context, id string, amount int64) (models.Account, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE accounts
		    SET internal_balance = internal_balance + $2,
		        updated_at = now()
		  WHERE id = $1
		  RETURNING `+accountCols,
		id, amount,
	)
	out, err := scanAccount(row)
	if err != nil {
		return models.Account{}, dbErr(err)
	}
	return out, nil
}

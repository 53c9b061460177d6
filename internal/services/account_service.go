package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bitbazaar/marketplace-backend/internal/apperr"
	"github.com/bitbazaar/marketplace-backend/internal/auth"
	"github.com/bitbazaar/marketplace-backend/internal/ledger"
	"github.com/bitbazaar/marketplace-backend/internal/models"
)

type AccountService struct {
	store ledger.Store
	tm    *auth.TokenManager
}

func NewAccountService(store ledger.Store, tm *auth.TokenManager) *AccountService {
	return &AccountService{store: store, tm: tm}
}

func (s *AccountService) Register(ctx context.Context, email, password string, role models.Role, externalAddress string) (models.Account, error) {
	a := models.Account{
		Email:           strings.TrimSpace(email),
		Role:            role,
		ExternalAddress: strings.TrimSpace(externalAddress),
	}
	if err := a.Validate(); err != nil {
		return models.Account{}, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	if len(password) < 8 {
		return models.Account{}, fmt.Errorf("%w: password too short", apperr.ErrValidation)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.Account{}, err
	}
	a.PasswordHash = hash
	return s.store.CreateAccount(ctx, a)
}

func (s *AccountService) Login(ctx context.Context, email, password string) (string, time.Time, error) {
	a, err := s.store.GetAccountByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: invalid credentials", apperr.ErrValidation)
	}
	if err := auth.VerifyPassword(password, a.PasswordHash); err != nil {
		return "", time.Time{}, fmt.Errorf("%w: invalid credentials", apperr.ErrValidation)
	}
	return s.tm.Generate(a.ID, string(a.Role))
}

func (s *AccountService) Get(ctx context.Context, id string) (models.Account, error) {
	return s.store.GetAccount(ctx, id)
}

// Deposit tops up an internal balance; purchases never come through here.
func (s *AccountService) Deposit(ctx context.Context, id string, amount int64) (models.Account, error) {
	if amount <= 0 {
		return models.Account{}, fmt.Errorf("%w: amount must be > 0", apperr.ErrValidation)
	}
	return s.store.CreditAccount(ctx, id, amount)
}

// Package memory is an in-process ledger.Store used by tests and local
// development. It mirrors the postgres semantics, including the
// conditional debit and the idempotent reconcile guard, under a single
// mutex.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bitbazaar/marketplace-backend/internal/apperr"
	"github.com/bitbazaar/marketplace-backend/internal/ledger"
	"github.com/bitbazaar/marketplace-backend/internal/models"
)

type Store struct {
	mu       sync.Mutex
	accounts map[string]models.Account
	items    map[string]models.Item
	orders   map[string]models.Order
	tokens   map[string]models.RedemptionToken
}

func NewStore() *Store {
	return &Store{
		accounts: make(map[string]models.Account),
		items:    make(map[string]models.Item),
		orders:   make(map[string]models.Order),
		tokens:   make(map[string]models.RedemptionToken),
	}
}

func (s *Store) CreateAccount(_ context.Context, a models.Account) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	s.accounts[a.ID] = a
	return a, nil
}

func (s *Store) GetAccount(_ context.Context, id string) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return models.Account{}, apperr.ErrNotFound
	}
	return a, nil
}

func (s *Store) GetAccountByEmail(_ context.Context, email string) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return models.Account{}, apperr.ErrNotFound
}

func (s *Store) CreditAccount(_ context.Context, id string, amount int64) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return models.Account{}, apperr.ErrNotFound
	}
	a.InternalBalance += amount
	a.UpdatedAt = time.Now()
	s.accounts[id] = a
	return a, nil
}

func (s *Store) CreateItem(_ context.Context, it models.Item) (models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	if it.Status == "" {
		it.Status = models.ItemActive
	}
	it.CreatedAt = time.Now()
	s.items[it.ID] = it
	return it, nil
}

func (s *Store) GetItem(_ context.Context, id string) (models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return models.Item{}, apperr.ErrNotFound
	}
	return it, nil
}

func (s *Store) ListItems(_ context.Context, onlyActive bool) ([]models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Item
	for _, it := range s.items {
		if onlyActive && it.Status != models.ItemActive {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

func (s *Store) DeactivateItem(_ context.Context, id, sellerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok || it.SellerAccountID != sellerID {
		return apperr.ErrNotFound
	}
	it.Status = models.ItemInactive
	s.items[id] = it
	return nil
}

func (s *Store) GetOrder(_ context.Context, id string) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return models.Order{}, apperr.ErrNotFound
	}
	return o, nil
}

func (s *Store) ListOrdersByBuyer(_ context.Context, buyerID string, limit, offset int) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Order
	for _, o := range s.orders {
		if o.BuyerAccountID == buyerID {
			out = append(out, o)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) InsertPendingOrder(_ context.Context, o models.Order) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	o.Status = models.OrderPending
	o.CreatedAt = time.Now()
	s.orders[o.ID] = o
	return o, nil
}

func (s *Store) Reconcile(_ context.Context, o models.Order, outcome models.Outcome, feeRate float64) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch o.PayRail {
	case models.RailInternal:
		return s.reconcileInternal(o, feeRate)
	case models.RailExternal:
		return s.reconcileExternal(o, outcome)
	}
	return models.Order{}, apperr.ErrValidation
}

func (s *Store) reconcileInternal(o models.Order, feeRate float64) (models.Order, error) {
	buyer, ok := s.accounts[o.BuyerAccountID]
	if !ok {
		return models.Order{}, apperr.ErrNotFound
	}
	it, ok := s.items[o.ItemID]
	if !ok {
		return models.Order{}, apperr.ErrNotFound
	}
	seller, ok := s.accounts[it.SellerAccountID]
	if !ok {
		return models.Order{}, apperr.ErrNotFound
	}
	// Same conditional-decrement rule as the SQL store: the check and
	// the debit happen under the lock, so no interleaving can drive the
	// balance negative.
	if buyer.InternalBalance < o.Amount {
		return models.Order{}, apperr.ErrInsufficientFunds
	}

	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	o.Status = models.OrderSuccess
	o.CreatedAt = time.Now()

	buyer.InternalBalance -= o.Amount
	seller.InternalBalance += ledger.SellerShare(o.Amount, feeRate)
	it.RedemptionCount++

	s.accounts[buyer.ID] = buyer
	s.accounts[seller.ID] = seller
	s.items[it.ID] = it
	s.orders[o.ID] = o
	return o, nil
}

func (s *Store) reconcileExternal(o models.Order, outcome models.Outcome) (models.Order, error) {
	cur, ok := s.orders[o.ID]
	if !ok {
		return models.Order{}, apperr.ErrNotFound
	}
	if cur.Status == models.OrderSuccess {
		return cur, nil
	}
	if outcome != models.OutcomeConfirmed {
		return cur, nil
	}
	cur.Status = models.OrderSuccess
	it, ok := s.items[cur.ItemID]
	if ok {
		it.RedemptionCount++
		s.items[it.ID] = it
	}
	s.orders[cur.ID] = cur
	return cur, nil
}

func (s *Store) SaveToken(_ context.Context, t models.RedemptionToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[t.Token] = t
	return nil
}

func (s *Store) GetToken(_ context.Context, token string) (models.RedemptionToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[token]
	if !ok {
		return models.RedemptionToken{}, apperr.ErrNotFound
	}
	return t, nil
}

func (s *Store) GetTokenByOrder(_ context.Context, orderID string) (models.RedemptionToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *models.RedemptionToken
	for _, t := range s.tokens {
		if t.OrderID != orderID || t.RedeemedAt != nil {
			continue
		}
		if latest == nil || t.IssuedAt.After(latest.IssuedAt) {
			cp := t
			latest = &cp
		}
	}
	if latest == nil {
		return models.RedemptionToken{}, apperr.ErrNotFound
	}
	return *latest, nil
}

func (s *Store) RedeemToken(_ context.Context, token string) (models.RedemptionToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[token]
	if !ok || t.RedeemedAt != nil {
		return models.RedemptionToken{}, apperr.ErrNotFound
	}
	now := time.Now()
	t.RedeemedAt = &now
	s.tokens[token] = t
	return t, nil
}

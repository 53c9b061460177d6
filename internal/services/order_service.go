package services

import (
	"context"
	"fmt"

	"github.com/bitbazaar/marketplace-backend/internal/apperr"
	"github.com/bitbazaar/marketplace-backend/internal/ledger"
	"github.com/bitbazaar/marketplace-backend/internal/models"
	"github.com/bitbazaar/marketplace-backend/internal/payments"
)

// OrderService fronts the reconciliation engine for the HTTP boundary.
type OrderService struct {
	store  ledger.Store
	router *payments.Router
}

func NewOrderService(store ledger.Store, router *payments.Router) *OrderService {
	return &OrderService{store: store, router: router}
}

func (s *OrderService) Purchase(ctx context.Context, buyerID, itemID string, rail models.PayRail) (payments.PurchaseResult, error) {
	return s.router.Route(ctx, buyerID, itemID, rail)
}

// Get returns an order, restricted to its buyer.
func (s *OrderService) Get(ctx context.Context, buyerID, orderID string) (models.Order, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return models.Order{}, err
	}
	if o.BuyerAccountID != buyerID {
		return models.Order{}, fmt.Errorf("order %s: %w", orderID, apperr.ErrNotFound)
	}
	return o, nil
}

func (s *OrderService) List(ctx context.Context, buyerID string, limit, offset int) ([]models.Order, error) {
	return s.store.ListOrdersByBuyer(ctx, buyerID, limit, offset)
}

// Credential returns the live download token for a settled order.
func (s *OrderService) Credential(ctx context.Context, buyerID, orderID string) (models.RedemptionToken, error) {
	o, err := s.Get(ctx, buyerID, orderID)
	if err != nil {
		return models.RedemptionToken{}, err
	}
	if o.Status != models.OrderSuccess {
		return models.RedemptionToken{}, fmt.Errorf("order %s not settled: %w", orderID, apperr.ErrNotFound)
	}
	return s.store.GetTokenByOrder(ctx, o.ID)
}

func (s *OrderService) Redeem(ctx context.Context, token string) (models.RedemptionToken, error) {
	return s.router.Redeem(ctx, token)
}

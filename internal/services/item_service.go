package services

import (
	"context"
	"fmt"

	"github.com/bitbazaar/marketplace-backend/internal/apperr"
	"github.com/bitbazaar/marketplace-backend/internal/ledger"
	"github.com/bitbazaar/marketplace-backend/internal/models"
)

type ItemService struct {
	store ledger.Store
}

func NewItemService(store ledger.Store) *ItemService {
	return &ItemService{store: store}
}

func (s *ItemService) Create(ctx context.Context, sellerID, title string, price int64) (models.Item, error) {
	it := models.Item{
		SellerAccountID: sellerID,
		Title:           title,
		Price:           price,
		Status:          models.ItemActive,
	}
	if err := it.Validate(); err != nil {
		return models.Item{}, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	return s.store.CreateItem(ctx, it)
}

func (s *ItemService) Get(ctx context.Context, id string) (models.Item, error) {
	return s.store.GetItem(ctx, id)
}

func (s *ItemService) List(ctx context.Context) ([]models.Item, error) {
	return s.store.ListItems(ctx, true)
}

func (s *ItemService) Deactivate(ctx context.Context, id, sellerID string) error {
	return s.store.DeactivateItem(ctx, id, sellerID)
}

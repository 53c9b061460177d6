// Package ledger defines the storage capability the reconciliation engine
// programs against. There are two implementations: postgres (production)
// and memory (tests).
package ledger

import (
	"context"

	"github.com/bitbazaar/marketplace-backend/internal/models"
)

// Store is the ledger capability. Reconcile is the single entry point
// that mutates balances, order status and redemption counters; every
// other method is a read or an insert that moves no money.
type Store interface {
	CreateAccount(ctx context.Context, a models.Account) (models.Account, error)
	GetAccount(ctx context.Context, id string) (models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (models.Account, error)
	CreditAccount(ctx context.Context, id string, amount int64) (models.Account, error)

	CreateItem(ctx context.Context, it models.Item) (models.Item, error)
	GetItem(ctx context.Context, id string) (models.Item, error)
	ListItems(ctx context.Context, onlyActive bool) ([]models.Item, error)
	DeactivateItem(ctx context.Context, id, sellerID string) error

	GetOrder(ctx context.Context, id string) (models.Order, error)
	ListOrdersByBuyer(ctx context.Context, buyerID string, limit, offset int) ([]models.Order, error)
	// InsertPendingOrder writes an external-rail order row with its tx
	// reference set and status pending. No balances move here.
	InsertPendingOrder(ctx context.Context, o models.Order) (models.Order, error)

	// Reconcile applies a payment outcome to ledger state in one atomic
	// transaction and returns the resulting order.
	//
	// Internal rail (outcome is always confirmed): inserts the order as
	// success, debits the buyer, credits the seller net of feeRate and
	// increments the item's redemption count. All four writes commit
	// together or not at all. The debit is a conditional decrement
	// (balance >= amount), so a concurrent double-spend loses the race
	// inside the database rather than in application code.
	//
	// External rail, confirmed: flips the existing order to success and
	// increments the redemption count; balances are untouched because
	// value already moved on-chain. Failed or unresolved outcomes
	// mutate nothing.
	//
	// Reconcile re-reads order status first and is a no-op for orders
	// already marked success, making re-entrant calls idempotent.
	Reconcile(ctx context.Context, o models.Order, outcome models.Outcome, feeRate float64) (models.Order, error)

	SaveToken(ctx context.Context, t models.RedemptionToken) error
	GetToken(ctx context.Context, token string) (models.RedemptionToken, error)
	// GetTokenByOrder returns the newest unredeemed token for an order.
	GetTokenByOrder(ctx context.Context, orderID string) (models.RedemptionToken, error)
	// RedeemToken marks a token used; a second call returns ErrNotFound.
	RedeemToken(ctx context.Context, token string) (models.RedemptionToken, error)
}

// SellerShare is the amount credited to the seller after the platform
// fee is withheld. Integer floor, same rounding on both store
// implementations.
func SellerShare(amount int64, feeRate float64) int64 {
	return amount - int64(float64(amount)*feeRate)
}

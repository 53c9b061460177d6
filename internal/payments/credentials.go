package payments

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bitbazaar/marketplace-backend/internal/apperr"
	"github.com/bitbazaar/marketplace-backend/internal/ledger"
	"github.com/bitbazaar/marketplace-backend/internal/metrics"
	"github.com/bitbazaar/marketplace-backend/internal/models"
)

// CredentialIssuer mints single-use download tokens for successful
// orders. Besides the persisted row it keeps a process-wide map of live
// tokens: created empty at startup, filled as tokens are issued, drained
// on redemption, never persisted. The store remains the source of truth;
// the map only short-circuits lookups for tokens minted by this process.
type CredentialIssuer struct {
	store ledger.Store

	mu   sync.RWMutex
	live map[string]string // token -> order id
}

func NewCredentialIssuer(store ledger.Store) *CredentialIssuer {
	return &CredentialIssuer{store: store, live: make(map[string]string)}
}

// Issue mints a token for a successful order. Calling it with anything
// other than a success order is a programming error surfaced as
// validation failure.
func (ci *CredentialIssuer) Issue(ctx context.Context, o models.Order) (string, error) {
	if o.Status != models.OrderSuccess {
		return "", fmt.Errorf("%w: order %s is %s, not success", apperr.ErrValidation, o.ID, o.Status)
	}
	t := models.RedemptionToken{
		Token:    uuid.NewString(),
		OrderID:  o.ID,
		IssuedAt: time.Now(),
	}
	if err := ci.store.SaveToken(ctx, t); err != nil {
		return "", err
	}

	ci.mu.Lock()
	ci.live[t.Token] = o.ID
	ci.mu.Unlock()

	metrics.TokensIssued.Inc()
	return t.Token, nil
}

// Redeem consumes a token. The store enforces single use; the live map
// is trimmed on the way out.
func (ci *CredentialIssuer) Redeem(ctx context.Context, token string) (models.RedemptionToken, error) {
	t, err := ci.store.RedeemToken(ctx, token)
	if err != nil {
		return models.RedemptionToken{}, err
	}

	ci.mu.Lock()
	delete(ci.live, token)
	ci.mu.Unlock()

	return t, nil
}

// Live reports whether this process issued the token and it has not yet
// been redeemed here.
func (ci *CredentialIssuer) Live(token string) (string, bool) {
	ci.mu.RLock()
	defer ci.mu.RUnlock()
	orderID, ok := ci.live[token]
	return orderID, ok
}

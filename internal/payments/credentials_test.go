package payments

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bitbazaar/marketplace-backend/internal/apperr"
	"github.com/bitbazaar/marketplace-backend/internal/ledger/memory"
	"github.com/bitbazaar/marketplace-backend/internal/models"
)

func TestIssueRequiresSuccessfulOrder(t *testing.T) {
	ci := NewCredentialIssuer(memory.NewStore())

	_, err := ci.Issue(context.Background(), models.Order{ID: "o1", Status: models.OrderPending})
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestIssueAndRedeemSingleUse(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	ci := NewCredentialIssuer(store)

	tok, err := ci.Issue(ctx, models.Order{ID: "o1", Status: models.OrderSuccess})
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	orderID, live := ci.Live(tok)
	require.True(t, live)
	require.Equal(t, "o1", orderID)

	got, err := ci.Redeem(ctx, tok)
	require.NoError(t, err)
	require.Equal(t, "o1", got.OrderID)
	require.NotNil(t, got.RedeemedAt)

	_, live = ci.Live(tok)
	require.False(t, live)

	// Second redemption fails: single use.
	_, err = ci.Redeem(ctx, tok)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestIssuedTokensAreUnique(t *testing.T) {
	ctx := context.Background()
	ci := NewCredentialIssuer(memory.NewStore())

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		tok, err := ci.Issue(ctx, models.Order{ID: "o1", Status: models.OrderSuccess})
		require.NoError(t, err)
		require.False(t, seen[tok])
		seen[tok] = true
	}
}

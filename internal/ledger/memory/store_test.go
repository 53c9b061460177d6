package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bitbazaar/marketplace-backend/internal/apperr"
	"github.com/bitbazaar/marketplace-backend/internal/models"
)

func seed(t *testing.T, s *Store, buyerBalance, price int64) (buyer, seller models.Account, item models.Item) {
	t.Helper()
	ctx := context.Background()
	var err error
	seller, err = s.CreateAccount(ctx, models.Account{Email: "s@x.com", Role: models.RoleSeller})
	require.NoError(t, err)
	buyer, err = s.CreateAccount(ctx, models.Account{Email: "b@x.com", Role: models.RoleBuyer, InternalBalance: buyerBalance})
	require.NoError(t, err)
	item, err = s.CreateItem(ctx, models.Item{SellerAccountID: seller.ID, Title: "zine", Price: price})
	require.NoError(t, err)
	return buyer, seller, item
}

func TestReconcileInternalMovesAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	buyer, seller, item := seed(t, s, 1000, 500)

	out, err := s.Reconcile(ctx, models.Order{
		BuyerAccountID: buyer.ID,
		ItemID:         item.ID,
		Amount:         500,
		PayRail:        models.RailInternal,
	}, models.OutcomeConfirmed, 0.05)
	require.NoError(t, err)
	require.Equal(t, models.OrderSuccess, out.Status)

	b, _ := s.GetAccount(ctx, buyer.ID)
	sl, _ := s.GetAccount(ctx, seller.ID)
	it, _ := s.GetItem(ctx, item.ID)
	require.Equal(t, int64(500), b.InternalBalance)
	require.Equal(t, int64(475), sl.InternalBalance)
	require.Equal(t, int64(1), it.RedemptionCount)
}

func TestReconcileInternalInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	buyer, seller, item := seed(t, s, 100, 500)

	_, err := s.Reconcile(ctx, models.Order{
		BuyerAccountID: buyer.ID,
		ItemID:         item.ID,
		Amount:         500,
		PayRail:        models.RailInternal,
	}, models.OutcomeConfirmed, 0.05)
	require.ErrorIs(t, err, apperr.ErrInsufficientFunds)

	b, _ := s.GetAccount(ctx, buyer.ID)
	sl, _ := s.GetAccount(ctx, seller.ID)
	it, _ := s.GetItem(ctx, item.ID)
	require.Equal(t, int64(100), b.InternalBalance)
	require.Equal(t, int64(0), sl.InternalBalance)
	require.Equal(t, int64(0), it.RedemptionCount)

	orders, _ := s.ListOrdersByBuyer(ctx, buyer.ID, 10, 0)
	require.Empty(t, orders)
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	buyer, _, item := seed(t, s, 500, 500)

	// Two concurrent purchases against a balance that covers only one.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Reconcile(ctx, models.Order{
				BuyerAccountID: buyer.ID,
				ItemID:         item.ID,
				Amount:         500,
				PayRail:        models.RailInternal,
			}, models.OutcomeConfirmed, 0.05)
		}(i)
	}
	wg.Wait()

	var ok, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		default:
			require.ErrorIs(t, err, apperr.ErrInsufficientFunds)
			insufficient++
		}
	}
	require.Equal(t, 1, ok)
	require.Equal(t, 1, insufficient)

	b, _ := s.GetAccount(ctx, buyer.ID)
	require.Equal(t, int64(0), b.InternalBalance)
}

func TestReconcileExternalIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	buyer, _, item := seed(t, s, 0, 500)

	ref := "0xabc"
	o, err := s.InsertPendingOrder(ctx, models.Order{
		BuyerAccountID: buyer.ID,
		ItemID:         item.ID,
		Amount:         500,
		PayRail:        models.RailExternal,
		ExternalTxRef:  &ref,
	})
	require.NoError(t, err)

	first, err := s.Reconcile(ctx, o, models.OutcomeConfirmed, 0.05)
	require.NoError(t, err)
	require.Equal(t, models.OrderSuccess, first.Status)

	second, err := s.Reconcile(ctx, o, models.OutcomeConfirmed, 0.05)
	require.NoError(t, err)
	require.Equal(t, models.OrderSuccess, second.Status)

	it, _ := s.GetItem(ctx, item.ID)
	require.Equal(t, int64(1), it.RedemptionCount)

	b, _ := s.GetAccount(ctx, buyer.ID)
	require.Equal(t, int64(0), b.InternalBalance)
}

func TestReconcileExternalUnresolvedMutatesNothing(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	buyer, _, item := seed(t, s, 0, 500)

	ref := "0xdef"
	o, err := s.InsertPendingOrder(ctx, models.Order{
		BuyerAccountID: buyer.ID,
		ItemID:         item.ID,
		Amount:         500,
		PayRail:        models.RailExternal,
		ExternalTxRef:  &ref,
	})
	require.NoError(t, err)

	for _, outcome := range []models.Outcome{models.OutcomeFailed, models.OutcomeUnresolved} {
		got, err := s.Reconcile(ctx, o, outcome, 0.05)
		require.NoError(t, err)
		require.Equal(t, models.OrderPending, got.Status)
	}

	it, _ := s.GetItem(ctx, item.ID)
	require.Equal(t, int64(0), it.RedemptionCount)
}

func TestTokenSingleUse(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	require.NoError(t, s.SaveToken(ctx, models.RedemptionToken{Token: "t1", OrderID: "o1"}))

	got, err := s.RedeemToken(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, got.RedeemedAt)

	_, err = s.RedeemToken(ctx, "t1")
	require.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = s.GetTokenByOrder(ctx, "o1")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

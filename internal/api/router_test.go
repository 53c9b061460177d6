package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bitbazaar/marketplace-backend/internal/auth"
	"github.com/bitbazaar/marketplace-backend/internal/chain"
	"github.com/bitbazaar/marketplace-backend/internal/config"
	"github.com/bitbazaar/marketplace-backend/internal/ledger/memory"
	"github.com/bitbazaar/marketplace-backend/internal/middleware"
	"github.com/bitbazaar/marketplace-backend/internal/models"
	"github.com/bitbazaar/marketplace-backend/internal/oracle"
	"github.com/bitbazaar/marketplace-backend/internal/payments"
	"github.com/bitbazaar/marketplace-backend/internal/services"
	"github.com/bitbazaar/marketplace-backend/internal/worker"
)

type apiFixture struct {
	store  *memory.Store
	tm     *auth.TokenManager
	srv    *httptest.Server
	wp     *worker.Pool
	client *http.Client
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	cfg := config.Config{Env: "test", RateRPS: 0, FeeRate: 0.05, OraclePair: "ETH-USD"}
	store := memory.NewStore()
	chainMem := chain.NewMemory()
	log := slog.Default()

	exec := payments.NewExecutor(store, chainMem, oracle.Fixed{Price: 2500}, cfg, log)
	poller := payments.NewPoller(chainMem, payments.RetryPolicy{MaxAttempts: 2, Interval: time.Millisecond}, log)
	issuer := payments.NewCredentialIssuer(store)
	wp := worker.NewPool(1)
	engine := payments.NewRouter(store, chainMem, exec, poller, issuer, wp, cfg.FeeRate, time.Hour, log)

	tm := auth.NewTokenManager("test-secret", "test", time.Hour)

	h := NewRouter(Deps{
		Cfg:        cfg,
		AccountSvc: services.NewAccountService(store, tm),
		ItemSvc:    services.NewItemService(store),
		OrderSvc:   services.NewOrderService(store, engine),
		AuthMW:     middleware.NewAuthMiddleware(tm),
	})

	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		srv.Close()
		wp.Stop()
	})
	return &apiFixture{store: store, tm: tm, srv: srv, wp: wp, client: srv.Client()}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.srv.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.client.Do(req)
	require.NoError(t, err)
	return resp
}

func (f *apiFixture) seedBuyerAndItem(t *testing.T, balance, price int64) (buyerToken string, item models.Item) {
	t.Helper()
	ctx := context.Background()
	seller, err := f.store.CreateAccount(ctx, models.Account{Email: "s@x.com", Role: models.RoleSeller})
	require.NoError(t, err)
	buyer, err := f.store.CreateAccount(ctx, models.Account{Email: "b@x.com", Role: models.RoleBuyer, InternalBalance: balance})
	require.NoError(t, err)
	item, err = f.store.CreateItem(ctx, models.Item{SellerAccountID: seller.ID, Title: "album", Price: price})
	require.NoError(t, err)

	tok, _, err := f.tm.Generate(buyer.ID, string(models.RoleBuyer))
	require.NoError(t, err)
	return tok, item
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)
	resp := f.do(t, http.MethodGet, "/health", "", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestOrdersRequireAuth(t *testing.T) {
	f := newAPIFixture(t)
	resp := f.do(t, http.MethodPost, "/api/v1/orders", "", map[string]string{"item_id": "x", "pay_rail": "internal"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestInternalPurchaseAndDownload(t *testing.T) {
	f := newAPIFixture(t)
	buyerToken, item := f.seedBuyerAndItem(t, 1000, 500)

	resp := f.do(t, http.MethodPost, "/api/v1/orders", buyerToken, map[string]string{
		"item_id":  item.ID,
		"pay_rail": "internal",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var res payments.PurchaseResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	require.Equal(t, models.OrderSuccess, res.Order.Status)
	require.NotEmpty(t, res.Token)

	dl := f.do(t, http.MethodGet, "/api/v1/downloads/"+res.Token, buyerToken, nil)
	defer dl.Body.Close()
	require.Equal(t, http.StatusOK, dl.StatusCode)

	// Token is spent now.
	dl2 := f.do(t, http.MethodGet, "/api/v1/downloads/"+res.Token, buyerToken, nil)
	defer dl2.Body.Close()
	require.Equal(t, http.StatusNotFound, dl2.StatusCode)
}

func TestInsufficientFundsRendersPaymentRequired(t *testing.T) {
	f := newAPIFixture(t)
	buyerToken, item := f.seedBuyerAndItem(t, 100, 500)

	resp := f.do(t, http.MethodPost, "/api/v1/orders", buyerToken, map[string]string{
		"item_id":  item.ID,
		"pay_rail": "internal",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
}

func TestItemCreateRequiresSellerRole(t *testing.T) {
	f := newAPIFixture(t)
	buyerToken, _ := f.seedBuyerAndItem(t, 0, 100)

	resp := f.do(t, http.MethodPost, "/api/v1/items", buyerToken, map[string]any{
		"title": "forbidden",
		"price": 100,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

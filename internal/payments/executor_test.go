package payments

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/bitbazaar/marketplace-backend/internal/chain"
	"github.com/bitbazaar/marketplace-backend/internal/ledger/memory"
	"github.com/bitbazaar/marketplace-backend/internal/models"
	"github.com/bitbazaar/marketplace-backend/internal/oracle"
)

func TestExecutorSubmitSignsAndPersistsPendingOrder(t *testing.T) {
	cfg := testConfig(t)
	store := memory.NewStore()
	chainMem := chain.NewMemory()
	exec := NewExecutor(store, chainMem, oracle.Fixed{Price: 2500}, cfg, slog.Default())

	order := models.Order{
		BuyerAccountID: "buyer-1",
		ItemID:         "item-1",
		Amount:         500, // $5.00
		PayRail:        models.RailExternal,
		ExpiresAt:      time.Now().Add(time.Hour),
	}

	out, err := exec.Submit(context.Background(), order, "seller-1", "0x00000000000000000000000000000000000000bb")
	require.NoError(t, err)
	require.Equal(t, models.OrderPending, out.Status)
	require.NotNil(t, out.ExternalTxRef)

	subs := chainMem.Submitted()
	require.Len(t, subs, 1)

	var tx types.Transaction
	require.NoError(t, tx.UnmarshalBinary(subs[0]))
	require.Equal(t, strings.ToLower(cfg.PayContractAddr), strings.ToLower(tx.To().Hex()))
	// $5 at $2500/ETH is 0.002 ETH.
	require.Equal(t, big.NewInt(2_000_000_000_000_000), tx.Value())
	require.NotEmpty(t, tx.Data())
}

func TestExecutorOracleFailureAborts(t *testing.T) {
	cfg := testConfig(t)
	store := memory.NewStore()
	chainMem := chain.NewMemory()
	exec := NewExecutor(store, chainMem, oracle.Fixed{Err: errors.New("quote unavailable")}, cfg, slog.Default())

	_, err := exec.Submit(context.Background(), models.Order{Amount: 500}, "s", "0x00000000000000000000000000000000000000bb")
	require.Error(t, err)
	require.Contains(t, err.Error(), "price oracle")
	require.Empty(t, chainMem.Submitted())
}

func TestExecutorBadKeyMaterialAborts(t *testing.T) {
	cfg := testConfig(t)
	cfg.MasterKey = "deadbeef" // wrong length
	exec := NewExecutor(memory.NewStore(), chain.NewMemory(), oracle.Fixed{Price: 2500}, cfg, slog.Default())

	_, err := exec.Submit(context.Background(), models.Order{Amount: 500}, "s", "0x00000000000000000000000000000000000000bb")
	require.Error(t, err)
	require.Contains(t, err.Error(), "platform key")
}

func TestExecutorSubmitFailureWritesNoOrder(t *testing.T) {
	cfg := testConfig(t)
	store := memory.NewStore()
	chainMem := chain.NewMemory()
	chainMem.SubmitErr = errors.New("nonce too low")
	exec := NewExecutor(store, chainMem, oracle.Fixed{Price: 2500}, cfg, slog.Default())

	_, err := exec.Submit(context.Background(), models.Order{BuyerAccountID: "b", Amount: 500}, "s", "0x00000000000000000000000000000000000000bb")
	require.Error(t, err)

	orders, err := store.ListOrdersByBuyer(context.Background(), "b", 10, 0)
	require.NoError(t, err)
	require.Empty(t, orders)
}

func TestWeiAmountConversion(t *testing.T) {
	// 100 cents at $2000/ETH is 0.0005 ETH.
	require.Equal(t, big.NewInt(500_000_000_000_000), weiAmount(100, 2000))
	require.Equal(t, big.NewInt(0).String(), weiAmount(0, 2000).String())
}

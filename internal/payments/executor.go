package payments

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/bitbazaar/marketplace-backend/internal/chain"
	"github.com/bitbazaar/marketplace-backend/internal/config"
	"github.com/bitbazaar/marketplace-backend/internal/custody"
	"github.com/bitbazaar/marketplace-backend/internal/ledger"
	"github.com/bitbazaar/marketplace-backend/internal/models"
	"github.com/bitbazaar/marketplace-backend/internal/oracle"
)

const payABIJSON = `[{"type":"function","name":"pay","stateMutability":"payable","inputs":[{"name":"itemId","type":"string"},{"name":"sellerId","type":"string"},{"name":"seller","type":"address"}],"outputs":[]}]`

var payABI abi.ABI

func init() {
	var err error
	payABI, err = abi.JSON(strings.NewReader(payABIJSON))
	if err != nil {
		panic(err)
	}
}

// Executor builds, signs and submits the on-chain payment call, then
// writes the pending order row carrying the transaction reference.
// A crash between those two steps is the one unrecoverable gap in the
// design: the chain may settle a payment no order row records.
type Executor struct {
	store  ledger.Store
	chain  chain.Client
	oracle oracle.Client
	cfg    config.Config
	log    *slog.Logger
}

func NewExecutor(store ledger.Store, c chain.Client, o oracle.Client, cfg config.Config, log *slog.Logger) *Executor {
	return &Executor{store: store, chain: c, oracle: o, cfg: cfg, log: log}
}

// Submit signs and broadcasts pay(itemId, sellerId, seller) with the
// order amount converted to wei, and returns the stored pending order.
// The decrypted signing key lives only in this frame and is never logged.
func (e *Executor) Submit(ctx context.Context, o models.Order, sellerID, sellerAddr string) (models.Order, error) {
	keyBytes, err := custody.Decrypt(e.cfg.PlatformKeyCipher, e.cfg.MasterKey, e.cfg.PlatformKeyNonce)
	if err != nil {
		return models.Order{}, fmt.Errorf("open platform key: %w", err)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(string(keyBytes)), "0x"))
	zero(keyBytes)
	if err != nil {
		return models.Order{}, fmt.Errorf("parse platform key: %w", err)
	}

	// A missing quote aborts the purchase; there is no default price.
	price, err := e.oracle.SpotPrice(ctx, e.cfg.OraclePair)
	if err != nil {
		return models.Order{}, fmt.Errorf("price oracle: %w", err)
	}
	value := weiAmount(o.Amount, price)

	data, err := payABI.Pack("pay", o.ItemID, sellerID, common.HexToAddress(sellerAddr))
	if err != nil {
		return models.Order{}, fmt.Errorf("pack pay call: %w", err)
	}

	from := crypto.PubkeyToAddress(key.PublicKey)
	nonce, err := e.chain.PendingNonce(ctx, from.Hex())
	if err != nil {
		return models.Order{}, err
	}
	gasPrice, err := e.chain.SuggestGasPrice(ctx)
	if err != nil {
		return models.Order{}, err
	}

	tx := types.NewTransaction(nonce, common.HexToAddress(e.cfg.PayContractAddr), value, e.cfg.GasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.NewEIP155Signer(big.NewInt(e.cfg.ChainID)), key)
	if err != nil {
		return models.Order{}, fmt.Errorf("sign payment: %w", err)
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return models.Order{}, fmt.Errorf("encode payment: %w", err)
	}

	ref, err := e.chain.SubmitSignedTx(ctx, raw)
	if err != nil {
		return models.Order{}, err
	}
	e.log.Info("payment submitted", "order", o.ID, "tx", ref, "wei", value.String())

	o.ExternalTxRef = &ref
	return e.store.InsertPendingOrder(ctx, o)
}

// weiAmount converts a ledger amount (smallest currency unit, i.e.
// cents) into wei at the quoted native-unit price. The quote is carried
// in micro-units so the whole conversion is integer math:
// wei = cents/100 / price * 1e18 = cents * 1e22 / (price * 1e6).
func weiAmount(amount int64, price float64) *big.Int {
	priceMicro := big.NewInt(int64(math.Round(price * 1e6)))
	if priceMicro.Sign() <= 0 || amount <= 0 {
		return big.NewInt(0)
	}
	num := new(big.Int).Exp(big.NewInt(10), big.NewInt(22), nil)
	num.Mul(num, big.NewInt(amount))
	return num.Quo(num, priceMicro)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

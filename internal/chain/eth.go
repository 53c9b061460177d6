package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/bitbazaar/marketplace-backend/internal/apperr"
)

// EthClient implements Client against an Ethereum JSON-RPC endpoint.
type EthClient struct {
	ec *ethclient.Client
}

func Dial(ctx context.Context, rawURL string) (*EthClient, error) {
	ec, err := ethclient.DialContext(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", apperr.ErrChainRPC, rawURL, err)
	}
	return &EthClient{ec: ec}, nil
}

func (c *EthClient) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	bal, err := c.ec.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: balance: %v", apperr.ErrChainRPC, err)
	}
	return bal, nil
}

func (c *EthClient) SubmitSignedTx(ctx context.Context, rawTx []byte) (string, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(rawTx); err != nil {
		return "", fmt.Errorf("%w: decode signed tx: %v", apperr.ErrValidation, err)
	}
	if err := c.ec.SendTransaction(ctx, tx); err != nil {
		return "", fmt.Errorf("%w: send: %v", apperr.ErrChainRPC, err)
	}
	return tx.Hash().Hex(), nil
}

func (c *EthClient) GetReceipt(ctx context.Context, txRef string) (*Receipt, error) {
	r, err := c.ec.TransactionReceipt(ctx, common.HexToHash(txRef))
	if errors.Is(err, ethereum.NotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: receipt: %v", apperr.ErrChainRPC, err)
	}
	return &Receipt{
		TxRef:       txRef,
		Ok:          r.Status == types.ReceiptStatusSuccessful,
		BlockNumber: r.BlockNumber.Uint64(),
	}, nil
}

func (c *EthClient) GetRawTransaction(ctx context.Context, txRef string) ([]byte, error) {
	tx, _, err := c.ec.TransactionByHash(ctx, common.HexToHash(txRef))
	if errors.Is(err, ethereum.NotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: tx by hash: %v", apperr.ErrChainRPC, err)
	}
	return tx.MarshalBinary()
}

func (c *EthClient) PendingNonce(ctx context.Context, address string) (uint64, error) {
	n, err := c.ec.PendingNonceAt(ctx, common.HexToAddress(address))
	if err != nil {
		return 0, fmt.Errorf("%w: nonce: %v", apperr.ErrChainRPC, err)
	}
	return n, nil
}

func (c *EthClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	p, err := c.ec.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: gas price: %v", apperr.ErrChainRPC, err)
	}
	return p, nil
}

// Package chain abstracts the external payment rail. The engine only
// ever talks to the Client interface; the eth implementation wraps a
// JSON-RPC node and the memory implementation backs tests.
package chain

import (
	"context"
	"math/big"
)

// Receipt is the rail's confirmation record for a submitted transaction.
type Receipt struct {
	TxRef       string
	Ok          bool
	BlockNumber uint64
}

// Client is the chain capability set. GetReceipt and GetRawTransaction
// return (nil, nil) when the node simply does not know the transaction;
// an error means the lookup itself failed.
type Client interface {
	GetBalance(ctx context.Context, address string) (*big.Int, error)
	SubmitSignedTx(ctx context.Context, rawTx []byte) (string, error)
	GetReceipt(ctx context.Context, txRef string) (*Receipt, error)
	GetRawTransaction(ctx context.Context, txRef string) ([]byte, error)

	// Needed to build a signed transaction in the first place.
	PendingNonce(ctx context.Context, address string) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

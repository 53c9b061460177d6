package chain

import (
	"context"
	"crypto/sha256"
	"fmt"
	"math/big"
	"sync"
)

// Memory is the test double for Client. Receipts and raw transactions
// are staged by the test; submissions are recorded. All methods are
// safe for concurrent use.
type Memory struct {
	mu       sync.Mutex
	balances map[string]*big.Int
	receipts map[string]*Receipt
	raw      map[string][]byte
	subs     [][]byte

	// Error injection, returned verbatim when set.
	BalanceErr error
	SubmitErr  error
	ReceiptErr error
}

func NewMemory() *Memory {
	return &Memory{
		balances: make(map[string]*big.Int),
		receipts: make(map[string]*Receipt),
		raw:      make(map[string][]byte),
	}
}

func (m *Memory) SetBalance(address string, wei *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[address] = wei
}

func (m *Memory) SetReceipt(txRef string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receipts[txRef] = &Receipt{TxRef: txRef, Ok: ok, BlockNumber: 1}
}

func (m *Memory) SetRawTransaction(txRef string, raw []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raw[txRef] = raw
}

// Submitted returns every raw tx handed to SubmitSignedTx, in order.
func (m *Memory) Submitted() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.subs))
	copy(out, m.subs)
	return out
}

func (m *Memory) GetBalance(_ context.Context, address string) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BalanceErr != nil {
		return nil, m.BalanceErr
	}
	if b, ok := m.balances[address]; ok {
		return new(big.Int).Set(b), nil
	}
	return big.NewInt(0), nil
}

func (m *Memory) SubmitSignedTx(_ context.Context, rawTx []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SubmitErr != nil {
		return "", m.SubmitErr
	}
	m.subs = append(m.subs, rawTx)
	sum := sha256.Sum256(rawTx)
	ref := fmt.Sprintf("0x%x", sum)
	m.raw[ref] = rawTx
	return ref, nil
}

func (m *Memory) GetReceipt(_ context.Context, txRef string) (*Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReceiptErr != nil {
		return nil, m.ReceiptErr
	}
	return m.receipts[txRef], nil
}

func (m *Memory) GetRawTransaction(_ context.Context, txRef string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.raw[txRef], nil
}

func (m *Memory) PendingNonce(context.Context, string) (uint64, error) { return 0, nil }

func (m *Memory) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

// Package apperr holds the error taxonomy shared by the reconciliation
// engine and the HTTP boundary. Callers classify with errors.Is and wrap
// with %w to add context.
package apperr

import "errors"

var (
	// ErrValidation: the request itself is malformed.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound: account, item, order or token does not exist (or the
	// item is inactive).
	ErrNotFound = errors.New("not found")
	// ErrInsufficientFunds: internal balance cannot cover the price.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrChainRPC: transient failure talking to the payment rail.
	ErrChainRPC = errors.New("chain rpc failure")
	// ErrUnresolved: the confirmation retry budget was exhausted without
	// a definitive outcome. Not a failure; the order stays pending.
	ErrUnresolved = errors.New("chain confirmation unresolved")
	// ErrDatabase: ledger transaction failure, always fully rolled back.
	ErrDatabase = errors.New("database failure")
)

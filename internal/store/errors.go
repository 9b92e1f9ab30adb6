package store

import "errors"

var (
	// ErrNotFound marks a lookup for an unknown entity id.
	ErrNotFound = errors.New("entity not found")
	// ErrWalletNotFound marks a settlement against an unknown wallet address.
	ErrWalletNotFound = errors.New("wallet not found")
	// ErrInsufficientFunds marks a BUY whose cost exceeds the wallet balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Package chain abstracts the external settlement call an order is
// dispatched through. Backends are pluggable per chain name; the executor
// adds retry with capped exponential backoff on rate-limited responses.
package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind is the settlement action being submitted.
type Kind string

const (
	KindTrade   Kind = "trade"
	KindAirdrop Kind = "airdrop"
)

// Request describes one settlement submission.
type Request struct {
	Chain   string
	Address string
	Amount  float64
	Kind    Kind
}

// Result is the outcome of a settlement submission.
type Result struct {
	Success bool
	PnL     float64
	TxRef   string
	Err     string // backend error message when Success is false
}

// Submitter performs one settlement attempt. A failed settlement with a
// known outcome returns Success=false and a nil error; a transport-level
// problem returns an error classified via IsRateLimited.
type Submitter interface {
	Submit(ctx context.Context, req Request) (Result, error)
}

// ErrRateLimited marks a retryable rate-limit response from the backend.
var ErrRateLimited = errors.New("rate limited")

// ErrUnknownChain marks a request for a chain with no registered backend.
var ErrUnknownChain = errors.New("unknown chain")

// ExecutionError wraps a terminal settlement failure, preserving the
// backend's message verbatim for operator visibility.
type ExecutionError struct {
	Chain   string
	Message string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution failed on %s: %s", e.Chain, e.Message)
}

// IsRateLimited reports whether err (or its message) indicates throttling.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "too many requests") || strings.Contains(msg, "rate limit")
}

package chain

import (
	"context"
	"fmt"
	"time"

	"tradeflow/internal/logger"
)

// Backoff parameters for rate-limited submissions: 5 attempts, 500ms base,
// doubled each attempt, capped at 8s.
const (
	defaultMaxAttempts = 5
	defaultBaseDelay   = 500 * time.Millisecond
	defaultMaxDelay    = 8 * time.Second
)

// Executor routes settlement requests to per-chain backends and retries
// rate-limited attempts with capped exponential backoff. Any other error is
// terminal for the attempt.
type Executor struct {
	backends    map[string]Submitter
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithRetry overrides the backoff parameters (tests).
func WithRetry(attempts int, base, cap time.Duration) ExecutorOption {
	return func(e *Executor) {
		if attempts > 0 {
			e.maxAttempts = attempts
		}
		if base > 0 {
			e.baseDelay = base
		}
		if cap > 0 {
			e.maxDelay = cap
		}
	}
}

// NewExecutor creates an Executor with no backends registered.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		backends:    make(map[string]Submitter),
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		maxDelay:    defaultMaxDelay,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register binds a backend to a chain name, replacing any previous one.
func (e *Executor) Register(chain string, s Submitter) {
	e.backends[chain] = s
}

// Submit executes the request against the chain's backend. A Result with
// Success=false comes back with a *ExecutionError; rate-limited transport
// errors are retried up to the attempt budget before surfacing.
func (e *Executor) Submit(ctx context.Context, req Request) (Result, error) {
	backend, ok := e.backends[req.Chain]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownChain, req.Chain)
	}

	delay := e.baseDelay
	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		res, err := backend.Submit(ctx, req)
		if err == nil {
			if !res.Success {
				return res, &ExecutionError{Chain: req.Chain, Message: res.Err}
			}
			return res, nil
		}
		if !IsRateLimited(err) {
			return Result{}, err
		}
		lastErr = err
		if attempt == e.maxAttempts {
			break
		}
		logger.Debugf("chain: %s rate limited (attempt %d/%d), backing off %s",
			req.Chain, attempt, e.maxAttempts, delay)
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > e.maxDelay {
			delay = e.maxDelay
		}
	}
	return Result{}, fmt.Errorf("giving up after %d attempts: %w", e.maxAttempts, lastErr)
}

package chain

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"
)

// SimBackend simulates a settlement backend with configurable latency,
// success rate and pnl range. It stands in for a real chain in dev and
// tests; failures are part of its contract, not exceptional.
type SimBackend struct {
	ChainName   string
	Latency     time.Duration
	SuccessRate float64
	PnLLow      float64 // pnl = amount * U(PnLLow, PnLHigh)
	PnLHigh     float64
	Precision   int32 // decimal places pnl is rounded to
	TxPrefix    string
	FailMessage string

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSolanaSim returns the simulated solana backend: ~100ms latency, 80%
// success, pnl in amount*[-0.1, 0.2] rounded to 4 places.
func NewSolanaSim(seed int64) *SimBackend {
	return &SimBackend{
		ChainName:   "solana",
		Latency:     100 * time.Millisecond,
		SuccessRate: 0.80,
		PnLLow:      -0.1,
		PnLHigh:     0.2,
		Precision:   4,
		TxPrefix:    "sol",
		FailMessage: "transaction failed",
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// NewEthereumSim returns the simulated ethereum backend: ~50ms latency, 85%
// success, pnl in amount*[-0.05, 0.15] rounded to 6 places.
func NewEthereumSim(seed int64) *SimBackend {
	return &SimBackend{
		ChainName:   "ethereum",
		Latency:     50 * time.Millisecond,
		SuccessRate: 0.85,
		PnLLow:      -0.05,
		PnLHigh:     0.15,
		Precision:   6,
		TxPrefix:    "eth",
		FailMessage: "transaction reverted",
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// Submit simulates one settlement attempt.
func (b *SimBackend) Submit(ctx context.Context, req Request) (Result, error) {
	if b.Latency > 0 {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(b.Latency):
		}
	}

	b.mu.Lock()
	roll := b.rng.Float64()
	spread := b.PnLLow + b.rng.Float64()*(b.PnLHigh-b.PnLLow)
	txN := 100000 + b.rng.Intn(900000)
	b.mu.Unlock()

	if roll >= b.SuccessRate {
		return Result{Success: false, Err: b.FailMessage}, nil
	}
	pnl := roundTo(req.Amount*spread, b.Precision)
	return Result{
		Success: true,
		PnL:     pnl,
		TxRef:   fmt.Sprintf("%s_%d", b.TxPrefix, txN),
	}, nil
}

func roundTo(v float64, places int32) float64 {
	scale := math.Pow10(int(places))
	return math.Round(v*scale) / scale
}

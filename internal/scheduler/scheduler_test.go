package scheduler

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"tradeflow/internal/bus"
	"tradeflow/internal/chain"
	"tradeflow/internal/store"
	"tradeflow/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSubmitter struct {
	mu     sync.Mutex
	calls  map[float64]int // keyed by request amount, unique per order in tests
	result chain.Result
	panics bool
}

func (c *countingSubmitter) Submit(ctx context.Context, req chain.Request) (chain.Result, error) {
	c.mu.Lock()
	if c.calls == nil {
		c.calls = make(map[float64]int)
	}
	c.calls[req.Amount]++
	c.mu.Unlock()
	if c.panics {
		panic("backend exploded")
	}
	return c.result, nil
}

func (c *countingSubmitter) callCount(amount float64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[amount]
}

func newTestScheduler(t *testing.T, sub chain.Submitter) (*Scheduler, *store.EntityStore, *bus.EventBus) {
	t.Helper()
	s := store.New()
	eb := bus.New()
	exec := chain.NewExecutor()
	exec.Register("solana", sub)
	sched := New(Params{
		Store:       s,
		Executor:    exec,
		Bus:         eb,
		Interval:    time.Hour, // ticks driven manually
		PoolSize:    4,
		TaskTimeout: 5 * time.Second,
	})
	sched.Start()
	t.Cleanup(sched.Stop)
	return sched, s, eb
}

func addScheduledOrder(s *store.EntityStore, amount float64) types.Order {
	order := types.NewOrder("idea-1", "solana", amount)
	order.Status = types.OrderScheduled
	return s.AddOrder(order)
}

func waitTerminal(t *testing.T, s *store.EntityStore, id string) types.Order {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if order, ok := s.GetOrder(id); ok && order.Terminal() {
			return order
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("order %s never reached a terminal state", id)
	return types.Order{}
}

func TestTickClosesSuccessfulOrder(t *testing.T) {
	sub := &countingSubmitter{result: chain.Result{Success: true, PnL: 0.0002, TxRef: "sol_123456"}}
	sched, s, eb := newTestScheduler(t, sub)
	order := addScheduledOrder(s, 0.02)

	sched.Tick()
	got := waitTerminal(t, s, order.ID)

	assert.Equal(t, types.OrderClosed, got.Status)
	assert.Equal(t, "PNL: 0.0002", got.Result)
	require.NotNil(t, got.ExecutedAt)

	events := eb.ReadRecent(context.Background(), bus.TopicStrategies, 5)
	require.Len(t, events, 1)
	assert.Equal(t, order.ID, events[0]["order_id"])
	assert.Equal(t, string(types.OrderClosed), events[0]["status"])
	assert.Equal(t, "sol_123456", events[0]["tx_ref"])
}

func TestTickRecordsFailureVerbatim(t *testing.T) {
	sub := &countingSubmitter{result: chain.Result{Success: false, Err: "transaction failed"}}
	sched, s, _ := newTestScheduler(t, sub)
	order := addScheduledOrder(s, 0.02)

	sched.Tick()
	got := waitTerminal(t, s, order.ID)

	assert.Equal(t, types.OrderFailed, got.Status)
	assert.Equal(t, "transaction failed", got.Result, "backend message must be preserved verbatim")
	require.NotNil(t, got.ExecutedAt)
}

func TestConcurrentTicksDispatchEachOrderOnce(t *testing.T) {
	sub := &countingSubmitter{result: chain.Result{Success: true, PnL: 0.01}}
	sched, s, _ := newTestScheduler(t, sub)

	orders := make([]types.Order, 0, 8)
	for i := 0; i < 8; i++ {
		orders = append(orders, addScheduledOrder(s, 0.001*float64(i+1)))
	}

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sched.Tick()
		}()
	}
	wg.Wait()

	for _, order := range orders {
		got := waitTerminal(t, s, order.ID)
		assert.Equal(t, types.OrderClosed, got.Status)
	}
	for _, order := range orders {
		assert.Equal(t, 1, sub.callCount(order.Amount), "order %s dispatched more than once", order.ID)
	}
}

func TestPanickingBackendFailsOrderOnly(t *testing.T) {
	sub := &countingSubmitter{panics: true}
	sched, s, _ := newTestScheduler(t, sub)
	order := addScheduledOrder(s, 0.02)

	sched.Tick()
	got := waitTerminal(t, s, order.ID)

	assert.Equal(t, types.OrderFailed, got.Status)
	assert.True(t, strings.HasPrefix(got.Result, "panic:"), "got %q", got.Result)

	// the scheduler must survive the panic and keep serving ticks
	next := addScheduledOrder(s, 0.03)
	sched.Tick()
	waitTerminal(t, s, next.ID)
}

func TestStartStopLifecycle(t *testing.T) {
	sub := &countingSubmitter{result: chain.Result{Success: true}}
	s := store.New()
	exec := chain.NewExecutor()
	exec.Register("solana", sub)
	sched := New(Params{Store: s, Executor: exec, Bus: bus.New(), Interval: time.Hour})

	assert.Equal(t, StateStopped, sched.State())
	sched.Start()
	assert.Equal(t, StateRunning, sched.State())
	sched.Start() // idempotent
	assert.Equal(t, StateRunning, sched.State())
	sched.Stop()
	assert.Equal(t, StateStopped, sched.State())
	sched.Stop() // idempotent
}

func TestNonScheduledOrdersAreIgnored(t *testing.T) {
	sub := &countingSubmitter{result: chain.Result{Success: true}}
	sched, s, _ := newTestScheduler(t, sub)

	s.AddOrder(types.NewOrder("idea-1", "solana", 0.02)) // NEW, not SCHEDULED
	sched.Tick()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, sub.callCount(0.02))
}

// Package scheduler drives scheduled orders through execution. A single
// scan loop claims orders and hands them to a fixed worker pool; the claim
// is a compare-and-swap on the order status, so overlapping scans never
// dispatch the same order twice.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tradeflow/internal/bus"
	"tradeflow/internal/chain"
	"tradeflow/internal/logger"
	"tradeflow/internal/store"
	"tradeflow/internal/types"
)

// Lifecycle states.
const (
	StateStopped = "STOPPED"
	StateRunning = "RUNNING"
)

const (
	defaultInterval    = 5 * time.Second
	defaultPoolSize    = 4
	defaultTaskTimeout = 30 * time.Second
	stopJoinTimeout    = 2 * time.Second
)

// Params bundles scheduler dependencies and tuning.
type Params struct {
	Store       *store.EntityStore
	Executor    *chain.Executor
	Bus         *bus.EventBus
	Interval    time.Duration
	PoolSize    int
	TaskTimeout time.Duration
}

// Scheduler is the background order-settlement loop.
type Scheduler struct {
	store       *store.EntityStore
	exec        *chain.Executor
	bus         *bus.EventBus
	interval    time.Duration
	poolSize    int
	taskTimeout time.Duration

	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	loopDone chan struct{}
	queue    chan string
	workerWG sync.WaitGroup
}

// New creates a stopped scheduler.
func New(p Params) *Scheduler {
	s := &Scheduler{
		store:       p.Store,
		exec:        p.Executor,
		bus:         p.Bus,
		interval:    p.Interval,
		poolSize:    p.PoolSize,
		taskTimeout: p.TaskTimeout,
	}
	if s.interval <= 0 {
		s.interval = defaultInterval
	}
	if s.poolSize <= 0 {
		s.poolSize = defaultPoolSize
	}
	if s.taskTimeout <= 0 {
		s.taskTimeout = defaultTaskTimeout
	}
	return s
}

// State returns RUNNING or STOPPED.
func (s *Scheduler) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return StateRunning
	}
	return StateStopped
}

// Start launches the scan loop and worker pool. Idempotent while running.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.loopDone = make(chan struct{})
	s.queue = make(chan string, s.poolSize*4)

	s.workerWG.Add(s.poolSize)
	for i := 0; i < s.poolSize; i++ {
		go s.worker()
	}
	go s.run(s.stopCh, s.loopDone)
	logger.Infof("scheduler: started (interval=%s workers=%d)", s.interval, s.poolSize)
}

// Stop signals the loop and joins it with a bounded timeout. In-flight
// execution tasks are not cancelled; they finish and apply their terminal
// transition so no order is left stuck in EXECUTING.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stopCh, loopDone, queue := s.stopCh, s.loopDone, s.queue
	s.mu.Unlock()

	close(stopCh)
	select {
	case <-loopDone:
	case <-time.After(stopJoinTimeout):
		logger.Warnf("scheduler: scan loop did not stop within %s", stopJoinTimeout)
	}
	close(queue)

	done := make(chan struct{})
	go func() {
		s.workerWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(stopJoinTimeout):
		logger.Infof("scheduler: stopped with executions still in flight")
	}
	logger.Infof("scheduler: stopped")
}

// Tick runs one scan pass synchronously. Exposed for tests and manual
// operation; the background loop calls the same path.
func (s *Scheduler) Tick() {
	s.scanPass()
}

func (s *Scheduler) run(stopCh, loopDone chan struct{}) {
	defer close(loopDone)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.scanPass()
		}
	}
}

// scanPass claims every SCHEDULED order and enqueues it for execution.
// Any panic is contained here; the loop continues on the next tick.
func (s *Scheduler) scanPass() {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("scheduler: scan pass panicked: %v", r)
		}
	}()

	scheduled := types.OrderScheduled
	for _, order := range s.store.ListOrders(&scheduled, 0) {
		if !s.store.ClaimOrder(order.ID, types.OrderScheduled, types.OrderExecuting) {
			continue // lost the claim to a concurrent pass
		}
		select {
		case s.queue <- order.ID:
		default:
			// Pool backlog full: release the claim and let the next
			// scan retry instead of blocking the loop.
			s.store.ClaimOrder(order.ID, types.OrderExecuting, types.OrderScheduled)
		}
	}
}

func (s *Scheduler) worker() {
	defer s.workerWG.Done()
	for id := range s.queue {
		s.executeOrder(id)
	}
}

// executeOrder settles one claimed order and applies the terminal state.
// Failures, including panics, become FAILED; they never escape the task.
func (s *Scheduler) executeOrder(id string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("scheduler: execution of %s panicked: %v", id, r)
			s.store.UpdateOrderStatus(id, types.OrderFailed, fmt.Sprintf("panic: %v", r))
		}
	}()

	order, ok := s.store.GetOrder(id)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.taskTimeout)
	defer cancel()

	res, err := s.exec.Submit(ctx, chain.Request{
		Chain:  order.Chain,
		Amount: order.Amount,
		Kind:   chain.KindTrade,
	})
	if err != nil {
		s.finish(order, types.OrderFailed, failureNote(err), res)
		return
	}
	s.finish(order, types.OrderClosed, fmt.Sprintf("PNL: %v", res.PnL), res)
}

func (s *Scheduler) finish(order types.Order, status types.OrderStatus, note string, res chain.Result) {
	s.store.UpdateOrderStatus(order.ID, status, note)
	logger.Infof("scheduler: order %s -> %s (%s)", order.ID, status, note)
	if s.bus == nil {
		return
	}
	s.bus.Publish(context.Background(), bus.TopicStrategies, map[string]any{
		"order_id": order.ID,
		"idea_id":  order.IdeaID,
		"chain":    order.Chain,
		"amount":   order.Amount,
		"status":   string(status),
		"result":   note,
		"tx_ref":   res.TxRef,
	})
}

// failureNote keeps the backend's message verbatim for operator visibility.
func failureNote(err error) string {
	var execErr *chain.ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Message
	}
	return err.Error()
}

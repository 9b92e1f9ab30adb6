package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tradeflow/internal/audit"
	"tradeflow/internal/bus"
	"tradeflow/internal/chain"
	"tradeflow/internal/fsm"
	"tradeflow/internal/policy"
	"tradeflow/internal/scheduler"
	"tradeflow/internal/store"
	"tradeflow/internal/types"
	"tradeflow/internal/wallet"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSubmitter struct {
	mu     sync.Mutex
	result chain.Result
	calls  int
}

func (s *stubSubmitter) Submit(ctx context.Context, req chain.Request) (chain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.result, nil
}

type fixture struct {
	service *Service
	store   *store.EntityStore
	bus     *bus.EventBus
	sched   *scheduler.Scheduler
	backend *stubSubmitter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := store.New()
	eb := bus.New()
	backend := &stubSubmitter{result: chain.Result{Success: true, PnL: 0.0002, TxRef: "sol_654321"}}
	exec := chain.NewExecutor()
	exec.Register("solana", backend)
	sched := scheduler.New(scheduler.Params{
		Store:    s,
		Executor: exec,
		Bus:      eb,
		Interval: time.Hour,
	})
	svc := NewService(Params{
		Store:     s,
		Bus:       eb,
		Policy:    policy.New(s),
		Wallet:    wallet.New(s),
		Scheduler: sched,
		Audit:     audit.New(s, 0),
	})
	t.Cleanup(svc.SchedulerStop)
	return &fixture{service: svc, store: s, bus: eb, sched: sched, backend: backend}
}

func approveIdea(t *testing.T, svc *Service, id string) {
	t.Helper()
	for _, target := range []types.IdeaStatus{types.IdeaNeedsReview, types.IdeaReadyForQA, types.IdeaApproved} {
		_, err := svc.TransitionIdea(id, target)
		require.NoError(t, err, "transition to %s", target)
	}
}

func TestCreateIdeaPublishesEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	idea := f.service.CreateIdea(ctx, "solana", "SOL", 0.02, "momentum", 3)
	assert.Equal(t, types.IdeaNew, idea.Status)
	assert.NotEmpty(t, idea.ID)

	events := f.bus.ReadRecent(ctx, bus.TopicIdeas, 5)
	require.Len(t, events, 1)
	assert.Equal(t, idea.ID, events[0]["idea_id"])
	assert.Equal(t, "SOL", events[0]["asset"])
}

func TestTransitionIdeaErrors(t *testing.T) {
	f := newFixture(t)
	idea := f.service.CreateIdea(context.Background(), "solana", "SOL", 0.02, "m", 3)

	t.Run("unknown id", func(t *testing.T) {
		_, err := f.service.TransitionIdea("nope", types.IdeaNeedsReview)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
	t.Run("illegal skip", func(t *testing.T) {
		_, err := f.service.TransitionIdea(idea.ID, types.IdeaApproved)
		var illegal *fsm.IllegalTransitionError
		require.True(t, errors.As(err, &illegal))
		assert.Equal(t, string(types.IdeaNew), illegal.From)
	})
	t.Run("legal step", func(t *testing.T) {
		got, err := f.service.TransitionIdea(idea.ID, types.IdeaNeedsReview)
		require.NoError(t, err)
		assert.Equal(t, types.IdeaNeedsReview, got.Status)
	})
}

func TestScheduleOrderFromIdea(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	idea := f.service.CreateIdea(ctx, "solana", "SOL", 0.02, "m", 3)
	approveIdea(t, f.service, idea.ID)

	order, err := f.service.ScheduleOrderFromIdea(ctx, idea.ID)
	require.NoError(t, err)
	assert.Equal(t, types.OrderScheduled, order.Status)
	assert.Equal(t, idea.ID, order.IdeaID)
	assert.Equal(t, 0.02, order.Amount)

	got, _ := f.store.GetIdea(idea.ID)
	assert.Equal(t, types.IdeaScheduled, got.Status)
}

func TestScheduleOrderRequiresApproval(t *testing.T) {
	f := newFixture(t)
	idea := f.service.CreateIdea(context.Background(), "solana", "SOL", 0.02, "m", 3)

	_, err := f.service.ScheduleOrderFromIdea(context.Background(), idea.ID)
	assert.ErrorIs(t, err, ErrIdeaNotApproved)

	_, err = f.service.ScheduleOrderFromIdea(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestScheduleOrderBudgetGate(t *testing.T) {
	f := newFixture(t)
	// cap at total=1.0, p=0.8 is 0.04; 0.05 must be rejected
	idea := f.service.CreateIdea(context.Background(), "solana", "SOL", 0.05, "m", 3)
	approveIdea(t, f.service, idea.ID)

	_, err := f.service.ScheduleOrderFromIdea(context.Background(), idea.ID)
	require.ErrorIs(t, err, ErrInvalidBudget)

	// rejection must not move the idea out of APPROVED
	got, _ := f.store.GetIdea(idea.ID)
	assert.Equal(t, types.IdeaApproved, got.Status)
	assert.Empty(t, f.service.ListOrders(nil, 0))
}

func TestEndToEndSettlement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	idea := f.service.CreateIdea(ctx, "solana", "SOL", 0.02, "momentum", 3)
	approveIdea(t, f.service, idea.ID)
	order, err := f.service.ScheduleOrderFromIdea(ctx, idea.ID)
	require.NoError(t, err)

	f.service.SchedulerStart()
	f.sched.Tick()

	deadline := time.Now().Add(3 * time.Second)
	var got types.Order
	for time.Now().Before(deadline) {
		if o, ok := f.store.GetOrder(order.ID); ok && o.Terminal() {
			got = o
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, types.OrderClosed, got.Status)
	assert.Equal(t, "PNL: 0.0002", got.Result)
	require.NotNil(t, got.ExecutedAt)

	report := f.service.RunAudit()
	assert.Equal(t, 1, report.OrdersByState[string(types.OrderClosed)])
	assert.Equal(t, 1, report.IdeasByState[string(types.IdeaScheduled)])
}

func TestExecuteTradeRouting(t *testing.T) {
	f := newFixture(t)
	f.store.PutWallet(types.Wallet{Address: "w1", BalanceSOL: decimal.Zero})

	trade, err := f.service.ExecuteTrade(types.TradeAirdrop, "w1", decimal.NewFromFloat(3), "", decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, types.TradeAirdrop, trade.Action)

	_, err = f.service.ExecuteTrade(types.TradeBuy, "w1", decimal.NewFromFloat(10), "BONK", decimal.NewFromFloat(1))
	assert.ErrorIs(t, err, store.ErrInsufficientFunds)

	_, err = f.service.ExecuteTrade("SHORT", "w1", decimal.NewFromFloat(1), "BONK", decimal.NewFromFloat(1))
	assert.ErrorIs(t, err, ErrUnknownAction)

	trades := f.service.ListTrades(nil, 0)
	require.Len(t, trades, 1, "only the airdrop may leave a record")
}

func TestListFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.service.CreateIdea(ctx, "solana", "SOL", 0.01, "a", 3)
	f.service.CreateIdea(ctx, "solana", "JUP", 0.01, "b", 3)

	st := types.IdeaNew
	assert.Len(t, f.service.ListIdeas(&st, 0), 2)
	assert.Len(t, f.service.ListIdeas(&st, 1), 1)
	approved := types.IdeaApproved
	assert.Empty(t, f.service.ListIdeas(&approved, 0))
}

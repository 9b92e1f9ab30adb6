package pipeline

import (
	"context"
	"errors"
	"fmt"

	"tradeflow/internal/audit"
	"tradeflow/internal/bus"
	"tradeflow/internal/fsm"
	"tradeflow/internal/policy"
	"tradeflow/internal/scheduler"
	"tradeflow/internal/store"
	"tradeflow/internal/types"
	"tradeflow/internal/wallet"

	"github.com/shopspring/decimal"
)

// ErrInvalidBudget is returned when an order's size fails the budget policy.
var ErrInvalidBudget = errors.New("proposed amount exceeds the budget cap")

// ErrIdeaNotApproved is returned when scheduling is attempted on an idea
// that has not reached APPROVED.
var ErrIdeaNotApproved = errors.New("idea is not in APPROVED state")

// ErrUnknownAction is returned for trade actions outside BUY/SELL/AIRDROP.
var ErrUnknownAction = errors.New("unknown trade action")

// Service is the operation surface consumed by an outer API or CLI layer.
// It owns no state of its own; everything lives in the store.
type Service struct {
	store     *store.EntityStore
	bus       *bus.EventBus
	policy    *policy.BudgetPolicy
	wallet    *wallet.Adapter
	scheduler *scheduler.Scheduler
	audit     *audit.Engine

	ideaFSM *fsm.Machine[types.IdeaStatus]
}

type Params struct {
	Store     *store.EntityStore
	Bus       *bus.EventBus
	Policy    *policy.BudgetPolicy
	Wallet    *wallet.Adapter
	Scheduler *scheduler.Scheduler
	Audit     *audit.Engine
}

func NewService(p Params) *Service {
	return &Service{
		store:     p.Store,
		bus:       p.Bus,
		policy:    p.Policy,
		wallet:    p.Wallet,
		scheduler: p.Scheduler,
		audit:     p.Audit,
		ideaFSM:   fsm.IdeaMachine(),
	}
}

// CreateIdea records a new idea and announces it on the idea stream.
func (s *Service) CreateIdea(ctx context.Context, chain, asset string, budget float64, description string, risk int) types.Idea {
	idea := s.store.AddIdea(types.NewIdea(chain, asset, budget, description, risk))
	s.bus.Publish(ctx, bus.TopicIdeas, map[string]any{
		"idea_id": idea.ID,
		"chain":   idea.Chain,
		"asset":   idea.Asset,
		"budget":  idea.Budget,
		"risk":    idea.Risk,
		"status":  string(idea.Status),
	})
	return idea
}

// TransitionIdea moves an idea to target if the lifecycle allows it.
// Returns store.ErrNotFound or *fsm.IllegalTransitionError.
func (s *Service) TransitionIdea(id string, target types.IdeaStatus) (types.Idea, error) {
	idea, ok := s.store.GetIdea(id)
	if !ok {
		return types.Idea{}, fmt.Errorf("idea %s: %w", id, store.ErrNotFound)
	}
	if err := s.ideaFSM.Transition(idea.Status, target); err != nil {
		return types.Idea{}, err
	}
	s.store.UpdateIdeaStatus(id, target)
	idea, _ = s.store.GetIdea(id)
	return idea, nil
}

// ScheduleOrderFromIdea converts an APPROVED idea into a SCHEDULED order
// sized at the idea's budget, after the budget policy signs off. The idea
// itself moves to SCHEDULED in the same call.
func (s *Service) ScheduleOrderFromIdea(ctx context.Context, ideaID string) (types.Order, error) {
	idea, ok := s.store.GetIdea(ideaID)
	if !ok {
		return types.Order{}, fmt.Errorf("idea %s: %w", ideaID, store.ErrNotFound)
	}
	if idea.Status != types.IdeaApproved {
		return types.Order{}, fmt.Errorf("idea %s in %s: %w", ideaID, idea.Status, ErrIdeaNotApproved)
	}
	if !s.policy.Validate(idea.Budget, idea.Chain, policy.DefaultPSuccess) {
		return types.Order{}, fmt.Errorf("idea %s budget %v: %w", ideaID, idea.Budget, ErrInvalidBudget)
	}
	if err := s.ideaFSM.Transition(idea.Status, types.IdeaScheduled); err != nil {
		return types.Order{}, err
	}
	s.store.UpdateIdeaStatus(ideaID, types.IdeaScheduled)

	order := types.NewOrder(idea.ID, idea.Chain, idea.Budget)
	order.Status = types.OrderScheduled
	order = s.store.AddOrder(order)
	s.bus.Publish(ctx, bus.TopicStrategies, map[string]any{
		"order_id": order.ID,
		"idea_id":  order.IdeaID,
		"chain":    order.Chain,
		"amount":   order.Amount,
		"status":   string(order.Status),
	})
	return order, nil
}

// ExecuteTrade settles an action against a wallet directly, bypassing the
// order queue. Quantity and price are only meaningful for BUY and SELL.
func (s *Service) ExecuteTrade(action types.TradeAction, address string, amount decimal.Decimal, asset string, price decimal.Decimal) (types.Trade, error) {
	switch action {
	case types.TradeAirdrop:
		return s.wallet.Airdrop(address, amount)
	case types.TradeBuy:
		return s.wallet.Buy(address, asset, amount, price)
	case types.TradeSell:
		return s.wallet.Sell(address, asset, amount, price)
	default:
		return types.Trade{}, fmt.Errorf("%q: %w", action, ErrUnknownAction)
	}
}

// ListIdeas returns ideas, newest first, optionally filtered by status.
func (s *Service) ListIdeas(status *types.IdeaStatus, limit int) []types.Idea {
	return s.store.ListIdeas(status, limit)
}

func (s *Service) ListOrders(status *types.OrderStatus, limit int) []types.Order {
	return s.store.ListOrders(status, limit)
}

func (s *Service) ListTrades(status *types.TradeStatus, limit int) []types.Trade {
	return s.store.ListTrades(status, limit)
}

// RunAudit takes an immediate snapshot of entity counts by state.
func (s *Service) RunAudit() audit.Report {
	return s.audit.Run()
}

func (s *Service) SchedulerStart() { s.scheduler.Start() }
func (s *Service) SchedulerStop()  { s.scheduler.Stop() }
func (s *Service) SchedulerState() string {
	return s.scheduler.State()
}

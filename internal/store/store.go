// Package store is the single source of truth for mutable pipeline entities.
//
// Reads hand out copies; every mutation goes through an explicit update
// method that is individually atomic. Callers never share references into
// the store, which rules out lost-update races between the scheduler loop
// and dispatched execution tasks.
package store

import (
	"sort"
	"sync"
	"time"

	"tradeflow/internal/types"
)

const defaultBudgetTotal = 1.0

// EntityStore keeps ideas, strategies, orders, trades and wallets in memory.
type EntityStore struct {
	mu          sync.RWMutex
	ideas       map[string]types.Idea
	strategies  map[string]types.Strategy
	orders      map[string]types.Order
	trades      []types.Trade // newest first
	wallets     map[string]types.Wallet
	budgetTotal float64
}

// New creates an empty store with the default budget total.
func New() *EntityStore {
	s := &EntityStore{}
	s.reset()
	return s
}

func (s *EntityStore) reset() {
	s.ideas = make(map[string]types.Idea)
	s.strategies = make(map[string]types.Strategy)
	s.orders = make(map[string]types.Order)
	s.trades = nil
	s.wallets = make(map[string]types.Wallet)
	s.budgetTotal = defaultBudgetTotal
}

// Reset drops all entities and restores defaults. Test teardown hook.
func (s *EntityStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

// BudgetTotal returns the shared available-budget scalar.
func (s *EntityStore) BudgetTotal() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.budgetTotal
}

// SetBudgetTotal replaces the shared available-budget scalar.
func (s *EntityStore) SetBudgetTotal(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgetTotal = v
}

// ---------------------------------------------------------------- ideas

// AddIdea stores an idea and returns the stored copy.
func (s *EntityStore) AddIdea(idea types.Idea) types.Idea {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ideas[idea.ID] = idea
	return idea
}

// GetIdea returns a copy of the idea, if present.
func (s *EntityStore) GetIdea(id string) (types.Idea, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idea, ok := s.ideas[id]
	return idea, ok
}

// ListIdeas returns ideas newest first, optionally filtered by status.
// limit <= 0 means no limit.
func (s *EntityStore) ListIdeas(status *types.IdeaStatus, limit int) []types.Idea {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Idea, 0, len(s.ideas))
	for _, idea := range s.ideas {
		if status != nil && idea.Status != *status {
			continue
		}
		out = append(out, idea)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return clampLimit(out, limit)
}

// UpdateIdeaStatus force-sets an idea's status. Returns false when the id is
// unknown. Transition legality is the state machine's job, not the store's.
func (s *EntityStore) UpdateIdeaStatus(id string, status types.IdeaStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	idea, ok := s.ideas[id]
	if !ok {
		return false
	}
	idea.Status = status
	idea.UpdatedAt = time.Now().UTC()
	s.ideas[id] = idea
	return true
}

// ------------------------------------------------------------ strategies

// AddStrategy stores a strategy draft. Duplicates per idea are allowed.
func (s *EntityStore) AddStrategy(st types.Strategy) types.Strategy {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strategies[st.ID] = st
	return st
}

// ListStrategies returns strategies newest first, optionally filtered by
// the idea they derive from.
func (s *EntityStore) ListStrategies(ideaID string, limit int) []types.Strategy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Strategy, 0, len(s.strategies))
	for _, st := range s.strategies {
		if ideaID != "" && st.IdeaID != ideaID {
			continue
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return clampLimit(out, limit)
}

// ---------------------------------------------------------------- orders

// AddOrder stores an order and returns the stored copy.
func (s *EntityStore) AddOrder(order types.Order) types.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.ID] = order
	return order
}

// GetOrder returns a copy of the order, if present.
func (s *EntityStore) GetOrder(id string) (types.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.orders[id]
	return order, ok
}

// ListOrders returns orders newest first, optionally filtered by status.
func (s *EntityStore) ListOrders(status *types.OrderStatus, limit int) []types.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Order, 0, len(s.orders))
	for _, order := range s.orders {
		if status != nil && order.Status != *status {
			continue
		}
		out = append(out, order)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return clampLimit(out, limit)
}

// UpdateOrderStatus force-sets an order's status, stamping executed_at on
// terminal states and recording result when non-empty.
func (s *EntityStore) UpdateOrderStatus(id string, status types.OrderStatus, result string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return false
	}
	now := time.Now().UTC()
	order.Status = status
	order.UpdatedAt = now
	if status == types.OrderClosed || status == types.OrderFailed {
		order.ExecutedAt = &now
	}
	if result != "" {
		order.Result = result
	}
	s.orders[id] = order
	return true
}

// ClaimOrder atomically moves an order from one status to another. It is the
// scheduler's mutual-exclusion point: only one caller can win the
// from -> to move, so an order is never dispatched twice.
func (s *EntityStore) ClaimOrder(id string, from, to types.OrderStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok || order.Status != from {
		return false
	}
	order.Status = to
	order.UpdatedAt = time.Now().UTC()
	s.orders[id] = order
	return true
}

// ---------------------------------------------------------------- trades

// AddTrade prepends a trade to the append-only log.
func (s *EntityStore) AddTrade(t types.Trade) types.Trade {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = append([]types.Trade{t}, s.trades...)
	return t
}

// ListTrades returns trades newest first, optionally filtered by status.
func (s *EntityStore) ListTrades(status *types.TradeStatus, limit int) []types.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Trade, 0, len(s.trades))
	for _, t := range s.trades {
		if status != nil && t.Status != *status {
			continue
		}
		out = append(out, t)
	}
	return clampLimit(out, limit)
}

// --------------------------------------------------------------- wallets

// PutWallet inserts or replaces a wallet.
func (s *EntityStore) PutWallet(w types.Wallet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets[w.Address] = w
}

// GetWallet returns a copy of the wallet, if present.
func (s *EntityStore) GetWallet(address string) (types.Wallet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[address]
	return w, ok
}

// ApplyTrade runs mutate against a copy of the wallet and, only on success,
// commits the mutated wallet together with the trade record. The wallet and
// the trade log move atomically: a failed mutate leaves both untouched.
func (s *EntityStore) ApplyTrade(address string, mutate func(*types.Wallet) error, trade types.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[address]
	if !ok {
		return ErrWalletNotFound
	}
	if err := mutate(&w); err != nil {
		return err
	}
	w.Timestamp = time.Now().UTC()
	s.wallets[address] = w
	s.trades = append([]types.Trade{trade}, s.trades...)
	return nil
}

func clampLimit[T any](in []T, limit int) []T {
	if limit > 0 && len(in) > limit {
		return in[:limit]
	}
	return in
}

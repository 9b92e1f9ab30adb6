// Package types holds the domain entities moved through the pipeline:
// ideas, strategies, orders, trades and wallets.
package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IdeaStatus is the review-pipeline status of an Idea.
type IdeaStatus string

const (
	IdeaNew         IdeaStatus = "NEW"
	IdeaNeedsReview IdeaStatus = "NEEDS_REVIEW"
	IdeaReadyForQA  IdeaStatus = "READY_FOR_QA"
	IdeaApproved    IdeaStatus = "APPROVED"
	IdeaScheduled   IdeaStatus = "SCHEDULED"
	IdeaCancelled   IdeaStatus = "CANCELLED"
)

// AllIdeaStatuses lists every idea status in pipeline order.
func AllIdeaStatuses() []IdeaStatus {
	return []IdeaStatus{IdeaNew, IdeaNeedsReview, IdeaReadyForQA, IdeaApproved, IdeaScheduled, IdeaCancelled}
}

// OrderStatus is the settlement status of an Order.
type OrderStatus string

const (
	OrderNew       OrderStatus = "NEW"
	OrderScheduled OrderStatus = "SCHEDULED"
	OrderExecuting OrderStatus = "EXECUTING"
	OrderClosed    OrderStatus = "CLOSED"
	OrderFailed    OrderStatus = "FAILED"
)

// AllOrderStatuses lists every order status in lifecycle order.
func AllOrderStatuses() []OrderStatus {
	return []OrderStatus{OrderNew, OrderScheduled, OrderExecuting, OrderClosed, OrderFailed}
}

// StrategyStatus tracks whether a synthesized strategy has been signed off.
type StrategyStatus string

const (
	StrategyDraft    StrategyStatus = "DRAFT"
	StrategyApproved StrategyStatus = "APPROVED"
)

// TradeAction is the settlement action recorded on a Trade.
type TradeAction string

const (
	TradeBuy     TradeAction = "BUY"
	TradeSell    TradeAction = "SELL"
	TradeAirdrop TradeAction = "AIRDROP"
)

// TradeStatus is the terminal status of a Trade record.
type TradeStatus string

const (
	TradeClosedStatus TradeStatus = "CLOSED"
	TradeFailedStatus TradeStatus = "FAILED"
)

// Idea is a proposed trading opportunity awaiting review.
type Idea struct {
	ID          string     `json:"id"`
	Chain       string     `json:"chain"`
	Asset       string     `json:"asset"`
	Budget      float64    `json:"budget"`
	Description string     `json:"description"`
	Risk        int        `json:"risk"` // 1..5
	Status      IdeaStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	TTLSeconds  int        `json:"ttl"`
}

// NewIdea builds an Idea in the NEW state.
func NewIdea(chain, asset string, budget float64, description string, risk int) Idea {
	now := time.Now().UTC()
	if risk < 1 {
		risk = 1
	}
	if risk > 5 {
		risk = 5
	}
	return Idea{
		ID:          uuid.NewString(),
		Chain:       chain,
		Asset:       asset,
		Budget:      budget,
		Description: description,
		Risk:        risk,
		Status:      IdeaNew,
		CreatedAt:   now,
		UpdatedAt:   now,
		TTLSeconds:  5400,
	}
}

// Strategy is a concrete entry/exit rule set derived from an Idea.
// Several strategies may reference the same idea; regeneration is allowed.
type Strategy struct {
	ID              string         `json:"id"`
	IdeaID          string         `json:"idea_id"`
	EntryConditions string         `json:"entry_conditions"`
	ExitConditions  string         `json:"exit_conditions"`
	StopLoss        float64        `json:"stop_loss"`
	TakeProfit      float64        `json:"take_profit"`
	MaxDrawdown     float64        `json:"max_drawdown"`
	Status          StrategyStatus `json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
}

// Order is a scheduled settlement action derived from a fully approved Idea.
type Order struct {
	ID         string      `json:"id"`
	IdeaID     string      `json:"idea_id"`
	Chain      string      `json:"chain"`
	Amount     float64     `json:"amount"`
	Status     OrderStatus `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
	ExecutedAt *time.Time  `json:"executed_at,omitempty"`
	Result     string      `json:"result,omitempty"`
}

// NewOrder builds an Order in the NEW state.
func NewOrder(ideaID, chain string, amount float64) Order {
	now := time.Now().UTC()
	return Order{
		ID:        uuid.NewString(),
		IdeaID:    ideaID,
		Chain:     chain,
		Amount:    amount,
		Status:    OrderNew,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Terminal reports whether the order can no longer change state.
func (o Order) Terminal() bool {
	return o.Status == OrderClosed || o.Status == OrderFailed
}

// Trade is an immutable record of a completed settlement action.
type Trade struct {
	ID         string          `json:"id"`
	StrategyID string          `json:"strategy_id"` // strategy id, or "airdrop"/"buy"/"sell"
	Action     TradeAction     `json:"action"`
	Asset      string          `json:"asset"`
	Quantity   decimal.Decimal `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	PnL        decimal.Decimal `json:"pnl"`
	Status     TradeStatus     `json:"status"`
	ExecutedAt time.Time       `json:"executed_at"`
	Duration   string          `json:"duration"`
}

// Wallet is a per-address balance snapshot. Mutated only through the
// wallet adapter under a single-writer-per-address discipline.
type Wallet struct {
	Address    string          `json:"address"`
	BalanceSOL decimal.Decimal `json:"balance_sol"`
	Timestamp  time.Time       `json:"timestamp"`
}

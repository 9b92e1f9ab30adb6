// Package audit produces point-in-time consistency snapshots of the store.
package audit

import (
	"context"
	"time"

	"tradeflow/internal/logger"
	"tradeflow/internal/store"
	"tradeflow/internal/types"
)

const defaultInterval = 300 * time.Second

// Report is a read-only aggregation over the entity store. Every known
// lifecycle state is present, zero-filled when unused.
type Report struct {
	Timestamp     time.Time      `json:"timestamp"`
	IdeasCount    int            `json:"ideas_count"`
	OrdersCount   int            `json:"orders_count"`
	BudgetTotal   float64        `json:"budget_total"`
	IdeasByState  map[string]int `json:"ideas_by_state"`
	OrdersByState map[string]int `json:"orders_by_state"`
}

// Engine generates audit reports on demand or on an interval.
type Engine struct {
	store    *store.EntityStore
	interval time.Duration
}

// New creates an Engine. interval <= 0 uses the default.
func New(s *store.EntityStore, interval time.Duration) *Engine {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Engine{store: s, interval: interval}
}

// Run produces one report. No mutation.
func (e *Engine) Run() Report {
	ideas := e.store.ListIdeas(nil, 0)
	orders := e.store.ListOrders(nil, 0)

	ideasByState := make(map[string]int, len(types.AllIdeaStatuses()))
	for _, st := range types.AllIdeaStatuses() {
		ideasByState[string(st)] = 0
	}
	for _, idea := range ideas {
		ideasByState[string(idea.Status)]++
	}

	ordersByState := make(map[string]int, len(types.AllOrderStatuses()))
	for _, st := range types.AllOrderStatuses() {
		ordersByState[string(st)] = 0
	}
	for _, order := range orders {
		ordersByState[string(order.Status)]++
	}

	return Report{
		Timestamp:     time.Now().UTC(),
		IdeasCount:    len(ideas),
		OrdersCount:   len(orders),
		BudgetTotal:   e.store.BudgetTotal(),
		IdeasByState:  ideasByState,
		OrdersByState: ordersByState,
	}
}

// Start runs periodic audits until ctx is done.
func (e *Engine) Start(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report := e.Run()
			logger.Infof("audit: ideas=%d orders=%d budget=%.4f",
				report.IdeasCount, report.OrdersCount, report.BudgetTotal)
		}
	}
}

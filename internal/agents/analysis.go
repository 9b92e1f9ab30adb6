package agents

import (
	"context"
	"fmt"
	"time"

	"tradeflow/internal/bus"
	"tradeflow/internal/logger"
	"tradeflow/internal/store"
	"tradeflow/internal/types"

	"github.com/google/uuid"
)

// Analyst turns pending ideas into draft strategies using the risk table.
type Analyst struct {
	store    *store.EntityStore
	bus      *bus.EventBus
	profiles *RiskProfiles
}

func NewAnalyst(st *store.EntityStore, eb *bus.EventBus, profiles *RiskProfiles) *Analyst {
	if profiles == nil {
		profiles = NewRiskProfiles()
	}
	return &Analyst{store: st, bus: eb, profiles: profiles}
}

// SynthesizeStrategies drafts one strategy per pending idea (NEW or
// NEEDS_REVIEW), up to limit. Re-running may draft duplicates for the same
// idea; that is intentional, drafts are cheap and supersede each other.
func (a *Analyst) SynthesizeStrategies(ctx context.Context, limit int) []types.Strategy {
	candidates := make([]types.Idea, 0, limit)
	for _, status := range []types.IdeaStatus{types.IdeaNew, types.IdeaNeedsReview} {
		st := status
		candidates = append(candidates, a.store.ListIdeas(&st, 0)...)
	}
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	drafts := make([]types.Strategy, 0, len(candidates))
	for _, idea := range candidates {
		params := a.profiles.Params(idea.Risk)
		strat := a.store.AddStrategy(types.Strategy{
			ID:              uuid.NewString(),
			IdeaID:          idea.ID,
			EntryConditions: fmt.Sprintf("enter %s on %s confirmation", idea.Asset, idea.Chain),
			ExitConditions:  fmt.Sprintf("exit at +%.2f%% or -%.2f%%", params.TakeProfit*100, params.StopLoss*100),
			StopLoss:        params.StopLoss,
			TakeProfit:      params.TakeProfit,
			MaxDrawdown:     params.MaxDrawdown,
			Status:          types.StrategyDraft,
			CreatedAt:       time.Now(),
		})
		a.bus.Publish(ctx, bus.TopicStrategies, map[string]any{
			"strategy_id": strat.ID,
			"idea_id":     strat.IdeaID,
			"stop_loss":   strat.StopLoss,
			"take_profit": strat.TakeProfit,
			"status":      string(strat.Status),
		})
		drafts = append(drafts, strat)
	}
	logger.Infof("analysis: drafted %d strategies from %d pending ideas", len(drafts), len(candidates))
	return drafts
}

package agents

import (
	"context"
	"fmt"

	"tradeflow/internal/bus"
	"tradeflow/internal/logger"
	"tradeflow/internal/store"
	"tradeflow/internal/types"
)

// seedAssets are the tokens the research pass rotates through.
var seedAssets = []string{"SOL", "BONK", "JUP", "ORCA", "RAY", "PUMP"}

// Research proposes trade ideas and publishes them to the idea stream.
type Research struct {
	store *store.EntityStore
	bus   *bus.EventBus
	chain string
}

func NewResearch(st *store.EntityStore, eb *bus.EventBus, chain string) *Research {
	if chain == "" {
		chain = "solana"
	}
	return &Research{store: st, bus: eb, chain: chain}
}

// GenerateIdeas creates up to count ideas from the seed list. Budgets step
// up from 0.1 and horizon alternates between short-term and swing.
func (r *Research) GenerateIdeas(ctx context.Context, count, risk int) []types.Idea {
	if count <= 0 {
		count = len(seedAssets)
	}
	if count > len(seedAssets) {
		count = len(seedAssets)
	}
	ideas := make([]types.Idea, 0, count)
	for i := 0; i < count; i++ {
		horizon := "short-term"
		if i%2 == 1 {
			horizon = "swing"
		}
		idea := r.store.AddIdea(types.NewIdea(r.chain, seedAssets[i], 0.1+0.05*float64(i),
			fmt.Sprintf("%s momentum play on %s", horizon, seedAssets[i]), risk))
		r.bus.Publish(ctx, bus.TopicIdeas, map[string]any{
			"idea_id": idea.ID,
			"chain":   idea.Chain,
			"asset":   idea.Asset,
			"budget":  idea.Budget,
			"risk":    idea.Risk,
			"status":  string(idea.Status),
		})
		ideas = append(ideas, idea)
	}
	logger.Infof("research: generated %d ideas on %s", len(ideas), r.chain)
	return ideas
}

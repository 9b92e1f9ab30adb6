package app

import (
	"context"
	"testing"
	"time"

	"tradeflow/internal/config"
	"tradeflow/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFromDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.Bus.Durable = false
	cfg.Analysis.RiskProfilesPath = "" // built-in table

	application, err := NewAppBuilder(cfg).Build(context.Background())
	require.NoError(t, err)
	require.NotNil(t, application.Service())
	require.NotNil(t, application.Intake())

	application.Seed(context.Background(), 3, 2)
	ideas := application.Service().ListIdeas(nil, 0)
	assert.Len(t, ideas, 3)
	for _, idea := range ideas {
		assert.Equal(t, types.IdeaNew, idea.Status)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	cfg := config.Default()
	cfg.Bus.Durable = false
	cfg.Analysis.RiskProfilesPath = ""
	cfg.Audit.IntervalSeconds = 1

	application, err := NewApp(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

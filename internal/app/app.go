package app

import (
	"context"
	"fmt"

	"tradeflow/internal/agents"
	"tradeflow/internal/audit"
	"tradeflow/internal/bus"
	"tradeflow/internal/config"
	"tradeflow/internal/logger"
	"tradeflow/internal/pipeline"
	"tradeflow/internal/scheduler"
	"tradeflow/internal/store"

	"golang.org/x/sync/errgroup"
)

// App wires the pipeline together and drives its lifecycle:
// load config → build dependencies → run scheduler and audit loops.
type App struct {
	cfg       *config.Config
	store     *store.EntityStore
	bus       *bus.EventBus
	scheduler *scheduler.Scheduler
	audit     *audit.Engine
	service   *pipeline.Service
	research  *agents.Research
	analyst   *agents.Analyst
	intake    *agents.Intake

	snapshots    *store.SnapshotStore
	closeBackend func() error
}

// NewApp builds the application from config without starting anything.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return NewAppBuilder(cfg).Build(context.Background())
}

// Run starts the scheduler and the audit loop and blocks until ctx is
// cancelled, then shuts down in order and persists a final snapshot.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	a.scheduler.Start()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		a.audit.Start(ctx)
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		a.scheduler.Stop()
		return nil
	})
	err := group.Wait()

	if a.snapshots != nil {
		if saveErr := a.snapshots.Save(context.Background(), a.store); saveErr != nil {
			logger.Warnf("final snapshot failed: %v", saveErr)
		}
		if closeErr := a.snapshots.Close(); closeErr != nil {
			logger.Warnf("closing snapshot store failed: %v", closeErr)
		}
	}
	if a.closeBackend != nil {
		if closeErr := a.closeBackend(); closeErr != nil {
			logger.Warnf("closing event log failed: %v", closeErr)
		}
	}
	return err
}

// Service exposes the operation surface (for an outer API layer or tests).
func (a *App) Service() *pipeline.Service {
	if a == nil {
		return nil
	}
	return a.service
}

// Seed runs one research pass followed by one analysis pass, useful for
// bootstrapping a fresh environment.
func (a *App) Seed(ctx context.Context, count, risk int) {
	ideas := a.research.GenerateIdeas(ctx, count, risk)
	a.analyst.SynthesizeStrategies(ctx, len(ideas))
}

// Intake returns the external idea intake.
func (a *App) Intake() *agents.Intake {
	if a == nil {
		return nil
	}
	return a.intake
}

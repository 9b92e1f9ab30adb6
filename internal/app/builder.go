package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"tradeflow/internal/agents"
	"tradeflow/internal/audit"
	"tradeflow/internal/bus"
	"tradeflow/internal/chain"
	"tradeflow/internal/config"
	"tradeflow/internal/logger"
	"tradeflow/internal/pipeline"
	"tradeflow/internal/policy"
	"tradeflow/internal/scheduler"
	"tradeflow/internal/store"
	"tradeflow/internal/wallet"
)

// AppBuilder assembles the pipeline dependency graph in order:
// store → bus → chain → wallet → scheduler → audit → service.
type AppBuilder struct {
	cfg *config.Config

	busBackendFn func(*config.Config) (bus.Backend, func() error, error)
	snapshotFn   func(*config.Config) (*store.SnapshotStore, error)
	profilesFn   func(*config.Config) (*agents.RiskProfiles, error)
}

type AppBuilderOption func(*AppBuilder)

// WithBusBackend overrides how the durable bus backend is opened.
func WithBusBackend(fn func(*config.Config) (bus.Backend, func() error, error)) AppBuilderOption {
	return func(b *AppBuilder) { b.busBackendFn = fn }
}

// WithSnapshotStore overrides how the snapshot store is opened.
func WithSnapshotStore(fn func(*config.Config) (*store.SnapshotStore, error)) AppBuilderOption {
	return func(b *AppBuilder) { b.snapshotFn = fn }
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:          cfg,
		busBackendFn: openBusBackend,
		snapshotFn:   openSnapshotStore,
		profilesFn:   loadRiskProfiles,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func openBusBackend(cfg *config.Config) (bus.Backend, func() error, error) {
	if !cfg.Bus.Durable {
		return nil, nil, nil
	}
	backend, err := bus.NewGormBackend(cfg.Bus.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening event log failed (%s): %w", cfg.Bus.DBPath, err)
	}
	return backend, backend.Close, nil
}

func openSnapshotStore(cfg *config.Config) (*store.SnapshotStore, error) {
	if !cfg.Bus.Durable {
		return nil, nil
	}
	path := filepath.Join(filepath.Dir(cfg.Bus.DBPath), "snapshots.db")
	return store.OpenSnapshotStore(path)
}

func loadRiskProfiles(cfg *config.Config) (*agents.RiskProfiles, error) {
	path := cfg.Analysis.RiskProfilesPath
	if path == "" {
		return agents.NewRiskProfiles(), nil
	}
	profiles, err := agents.LoadRiskProfiles(path)
	if err != nil {
		logger.Warnf("risk profiles: %v, falling back to built-in table", err)
		return agents.NewRiskProfiles(), nil
	}
	return profiles, nil
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := b.cfg

	entityStore := store.New()
	entityStore.SetBudgetTotal(cfg.Policy.BudgetTotal)

	backend, closeBackend, err := b.busBackendFn(cfg)
	if err != nil {
		return nil, err
	}
	var busOpts []bus.Option
	if backend != nil {
		busOpts = append(busOpts, bus.WithBackend(backend))
	}
	eventBus := bus.New(busOpts...)

	exec := chain.NewExecutor()
	exec.Register("solana", chain.NewSolanaSim(cfg.Chain.Seed))
	exec.Register("ethereum", chain.NewEthereumSim(cfg.Chain.Seed))
	if cfg.Chain.Endpoint != "" {
		remote := chain.NewRemoteSubmitter(cfg.Chain.Endpoint,
			chain.WithRateLimit(cfg.Chain.RatePerSecond, int(cfg.Chain.RatePerSecond)))
		exec.Register(cfg.Chain.Default, remote)
		logger.Infof("chain: %s routed to remote endpoint %s", cfg.Chain.Default, cfg.Chain.Endpoint)
	}

	walletAdapter := wallet.New(entityStore)
	budgetPolicy := policy.New(entityStore)

	sched := scheduler.New(scheduler.Params{
		Store:       entityStore,
		Executor:    exec,
		Bus:         eventBus,
		Interval:    time.Duration(cfg.Scheduler.IntervalSeconds) * time.Second,
		PoolSize:    cfg.Scheduler.PoolSize,
		TaskTimeout: time.Duration(cfg.Scheduler.TaskTimeoutSeconds) * time.Second,
	})
	auditor := audit.New(entityStore, time.Duration(cfg.Audit.IntervalSeconds)*time.Second)

	profiles, err := b.profilesFn(cfg)
	if err != nil {
		return nil, err
	}
	intake, err := agents.NewIntake(entityStore, eventBus)
	if err != nil {
		return nil, err
	}

	snapshots, err := b.snapshotFn(cfg)
	if err != nil {
		return nil, err
	}
	if snapshots != nil {
		if err := snapshots.Load(ctx, entityStore); err != nil {
			logger.Warnf("snapshot restore failed: %v", err)
		}
	}

	service := pipeline.NewService(pipeline.Params{
		Store:     entityStore,
		Bus:       eventBus,
		Policy:    budgetPolicy,
		Wallet:    walletAdapter,
		Scheduler: sched,
		Audit:     auditor,
	})

	return &App{
		cfg:          cfg,
		store:        entityStore,
		bus:          eventBus,
		scheduler:    sched,
		audit:        auditor,
		service:      service,
		research:     agents.NewResearch(entityStore, eventBus, cfg.Chain.Default),
		analyst:      agents.NewAnalyst(entityStore, eventBus, profiles),
		intake:       intake,
		snapshots:    snapshots,
		closeBackend: closeBackend,
	}, nil
}

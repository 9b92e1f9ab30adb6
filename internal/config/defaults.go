package config

import "strings"

const (
	defaultAppEnv            = "dev"
	defaultAppLogLevel       = "info"
	defaultAppLogPath        = "logs/tradeflow.log"
	defaultBusDBPath         = "data/events.db"
	defaultSchedulerInterval = 5
	defaultSchedulerPool     = 4
	defaultSchedulerTimeout  = 30
	defaultChainName         = "solana"
	defaultChainRate         = 5
	defaultPolicyBudgetTotal = 1.0
	defaultPolicyPSuccess    = 0.8
	defaultAuditInterval     = 300
	defaultRiskProfilesPath  = "configs/risk_profiles.yaml"
)

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Bus.applyDefaults(keys)
	c.Scheduler.applyDefaults(keys)
	c.Chain.applyDefaults(keys)
	c.Policy.applyDefaults(keys)
	c.Audit.applyDefaults(keys)
	c.Analysis.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
	)
}

func (b *BusConfig) applyDefaults(keys keySet) {
	if b == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("bus.db_path", &b.DBPath, defaultBusDBPath),
	)
}

func (s *SchedulerConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "scheduler.interval_seconds",
			need:  func() bool { return s.IntervalSeconds <= 0 },
			apply: func() { s.IntervalSeconds = defaultSchedulerInterval },
		},
		fieldDefault{
			key:   "scheduler.pool_size",
			need:  func() bool { return s.PoolSize <= 0 },
			apply: func() { s.PoolSize = defaultSchedulerPool },
		},
		fieldDefault{
			key:   "scheduler.task_timeout_seconds",
			need:  func() bool { return s.TaskTimeoutSeconds <= 0 },
			apply: func() { s.TaskTimeoutSeconds = defaultSchedulerTimeout },
		},
	)
}

func (c *ChainConfig) applyDefaults(keys keySet) {
	if c == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("chain.default", &c.Default, defaultChainName),
		fieldDefault{
			key:   "chain.rate_per_second",
			need:  func() bool { return c.RatePerSecond <= 0 },
			apply: func() { c.RatePerSecond = defaultChainRate },
		},
	)
}

func (p *PolicyConfig) applyDefaults(keys keySet) {
	if p == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "policy.budget_total",
			need:  func() bool { return p.BudgetTotal <= 0 },
			apply: func() { p.BudgetTotal = defaultPolicyBudgetTotal },
		},
		fieldDefault{
			key:   "policy.p_success",
			need:  func() bool { return p.PSuccess <= 0 },
			apply: func() { p.PSuccess = defaultPolicyPSuccess },
		},
	)
}

func (a *AuditConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "audit.interval_seconds",
			need:  func() bool { return a.IntervalSeconds <= 0 },
			apply: func() { a.IntervalSeconds = defaultAuditInterval },
		},
	)
}

func (a *AnalysisConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("analysis.risk_profiles_path", &a.RiskProfilesPath, defaultRiskProfilesPath),
	)
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

package config

import "strings"

// Config is the main configuration carrier for tradeflow.
type Config struct {
	App       AppConfig       `yaml:"app"`
	Bus       BusConfig       `yaml:"bus"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Chain     ChainConfig     `yaml:"chain"`
	Policy    PolicyConfig    `yaml:"policy"`
	Audit     AuditConfig     `yaml:"audit"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
}

type AppConfig struct {
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`
	LogPath  string `yaml:"log_path"`
}

// BusConfig controls the durable event log. When Durable is false the bus
// runs purely in memory.
type BusConfig struct {
	Durable bool   `yaml:"durable"`
	DBPath  string `yaml:"db_path"`
}

type SchedulerConfig struct {
	IntervalSeconds    int `yaml:"interval_seconds"`
	PoolSize           int `yaml:"pool_size"`
	TaskTimeoutSeconds int `yaml:"task_timeout_seconds"`
}

// ChainConfig selects settlement backends. Endpoint empty means the
// built-in simulators handle everything.
type ChainConfig struct {
	Default       string  `yaml:"default"`
	Endpoint      string  `yaml:"endpoint"`
	RatePerSecond float64 `yaml:"rate_per_second"`
	Seed          int64   `yaml:"seed"`
}

type PolicyConfig struct {
	BudgetTotal float64 `yaml:"budget_total"`
	PSuccess    float64 `yaml:"p_success"`
}

type AuditConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
}

type AnalysisConfig struct {
	RiskProfilesPath string `yaml:"risk_profiles_path"`
}

// keySet tracks which field paths were explicitly set in the config file,
// so defaults only fill genuinely missing keys.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault describes the default rule for a single field.
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}

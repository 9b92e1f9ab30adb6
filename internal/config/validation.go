package config

import (
	"fmt"
	"strings"
)

func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Scheduler.validate(); err != nil {
		return err
	}
	if err := c.Chain.validate(); err != nil {
		return err
	}
	if err := c.Policy.validate(); err != nil {
		return err
	}
	return nil
}

func (a *AppConfig) validate() error {
	switch strings.ToLower(a.LogLevel) {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("app.log_level must be one of debug/info/warn/error, got %q", a.LogLevel)
	}
}

func (s *SchedulerConfig) validate() error {
	if s.PoolSize > 64 {
		return fmt.Errorf("scheduler.pool_size too large (%d), max 64", s.PoolSize)
	}
	return nil
}

func (c *ChainConfig) validate() error {
	switch c.Default {
	case "solana", "ethereum":
		return nil
	default:
		return fmt.Errorf("chain.default must be solana or ethereum, got %q", c.Default)
	}
}

func (p *PolicyConfig) validate() error {
	if p.PSuccess > 1 {
		return fmt.Errorf("policy.p_success must be <= 1, got %v", p.PSuccess)
	}
	return nil
}

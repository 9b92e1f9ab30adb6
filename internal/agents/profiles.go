package agents

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"sync"

	"tradeflow/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// RiskParams are the strategy knobs derived from an idea's risk score.
type RiskParams struct {
	StopLoss    float64 `yaml:"stop_loss"`
	TakeProfit  float64 `yaml:"take_profit"`
	MaxDrawdown float64 `yaml:"max_drawdown"`
}

// defaultRiskTable maps risk 1..5 to parameters. Used when no profile file
// is configured or a level is missing from it.
var defaultRiskTable = map[int]RiskParams{
	1: {StopLoss: 0.01, TakeProfit: 0.02, MaxDrawdown: 0.04},
	2: {StopLoss: 0.02, TakeProfit: 0.04, MaxDrawdown: 0.06},
	3: {StopLoss: 0.03, TakeProfit: 0.06, MaxDrawdown: 0.08},
	4: {StopLoss: 0.04, TakeProfit: 0.08, MaxDrawdown: 0.10},
	5: {StopLoss: 0.05, TakeProfit: 0.12, MaxDrawdown: 0.12},
}

// ProfileChangeListener fires after a successful profile reload.
type ProfileChangeListener func(map[int]RiskParams)

// RiskProfiles serves the risk table, optionally loaded from a YAML file
// and hot-reloaded on change.
type RiskProfiles struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	table     map[int]RiskParams
	listeners []ProfileChangeListener
}

// NewRiskProfiles returns profiles backed by the built-in table.
func NewRiskProfiles() *RiskProfiles {
	return &RiskProfiles{table: cloneTable(defaultRiskTable)}
}

// LoadRiskProfiles reads the table from path and watches it for changes.
func LoadRiskProfiles(path string) (*RiskProfiles, error) {
	p := &RiskProfiles{path: path, table: cloneTable(defaultRiskTable)}
	if err := p.reload(); err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("watching risk profiles failed (%s): %w", path, err)
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := p.reload(); err != nil {
			logger.Warnf("risk profiles: reload rejected: %v", err)
			return
		}
		logger.Infof("risk profiles: reloaded from %s (%s)", path, evt.Op)
		p.notifyListeners()
	})
	v.WatchConfig()
	p.v = v
	return p, nil
}

// OnChange registers a listener fired after every successful reload.
func (p *RiskProfiles) OnChange(fn ProfileChangeListener) {
	if fn == nil {
		return
	}
	p.mu.Lock()
	p.listeners = append(p.listeners, fn)
	p.mu.Unlock()
}

func (p *RiskProfiles) notifyListeners() {
	p.mu.RLock()
	listeners := append([]ProfileChangeListener(nil), p.listeners...)
	table := cloneTable(p.table)
	p.mu.RUnlock()
	for _, fn := range listeners {
		fn(cloneTable(table))
	}
}

func (p *RiskProfiles) reload() error {
	raw, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("reading risk profiles failed (%s): %w", p.path, err)
	}
	var file struct {
		RiskProfiles map[int]RiskParams `yaml:"risk_profiles"`
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return fmt.Errorf("parsing risk profiles failed: %w", err)
	}
	if len(file.RiskProfiles) == 0 {
		return fmt.Errorf("risk profiles file defines no levels")
	}
	table := cloneTable(defaultRiskTable)
	levels := make([]int, 0, len(file.RiskProfiles))
	for level, params := range file.RiskProfiles {
		if level < 1 || level > 5 {
			return fmt.Errorf("risk level %d out of range 1..5", level)
		}
		table[level] = params
		levels = append(levels, level)
	}
	sort.Ints(levels)
	p.mu.Lock()
	p.table = table
	p.mu.Unlock()
	logger.Debugf("risk profiles: levels %v active", levels)
	return nil
}

// Params returns the parameters for a risk score, clamped to 1..5.
func (p *RiskProfiles) Params(risk int) RiskParams {
	if risk < 1 {
		risk = 1
	}
	if risk > 5 {
		risk = 5
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if params, ok := p.table[risk]; ok {
		return params
	}
	return defaultRiskTable[3]
}

func cloneTable(in map[int]RiskParams) map[int]RiskParams {
	out := make(map[int]RiskParams, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

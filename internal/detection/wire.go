package detection

import (
	"fmt"

	"github.com/sentrywatch/siemcore/internal/config"
)

// NewFromConfig loads rules and anomaly models from cfg.RulesDir and
// assembles an Engine.
func NewFromConfig(cfg config.RulesConfig) (*Engine, error) {
	rules, err := LoadRules(cfg.RulesDir)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	anomalyModels, err := LoadAnomalyModels(cfg.RulesDir)
	if err != nil {
		return nil, fmt.Errorf("load anomaly models: %w", err)
	}
	return NewEngine(rules, anomalyModels), nil
}

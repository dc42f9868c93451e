package playbook

import (
	"fmt"

	"github.com/sentrywatch/siemcore/internal/config"
	"github.com/sentrywatch/siemcore/internal/model"
)

// NewFromConfig loads playbook definitions from cfg.PlaybooksDir and
// assembles an Engine wired to the given integrations. Any of store, svc,
// runner, or custom may be nil (or omitted from custom); the
// corresponding handler then fails its actions with a descriptive error
// instead of panicking.
func NewFromConfig(cfg config.RulesConfig, store CaseStore, svc AnalyzerService, runner AutomationRunner, custom map[string]CustomFunc) (*Engine, error) {
	playbooks, err := LoadPlaybooks(cfg.PlaybooksDir)
	if err != nil {
		return nil, fmt.Errorf("load playbooks: %w", err)
	}

	handlers := map[model.ActionType]Handler{
		model.ActionCaseManagement: &caseManagementHandler{store: store},
		model.ActionAnalyzer:       &analyzerHandler{svc: svc},
		model.ActionAutomation:     &automationHandler{runner: runner},
		model.ActionCustom:         &customHandler{funcs: custom},
	}

	return NewEngine(playbooks, handlers), nil
}

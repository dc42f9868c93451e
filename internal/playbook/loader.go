package playbook

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sentrywatch/siemcore/internal/condition"
	"github.com/sentrywatch/siemcore/internal/model"
)

type yamlCondition struct {
	Field string `yaml:"field"`
	Op    string `yaml:"op"`
	Value any    `yaml:"value"`
}

type yamlAction struct {
	Type           string          `yaml:"type"`
	Name           string          `yaml:"name"`
	Description    string          `yaml:"description"`
	Parameters     map[string]any  `yaml:"parameters"`
	Conditions     []yamlCondition `yaml:"conditions"`
	TimeoutSeconds int             `yaml:"timeout_seconds"`
}

type yamlPlaybook struct {
	ID          string          `yaml:"id"`
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Triggers    []yamlCondition `yaml:"triggers"`
	Actions     []yamlAction    `yaml:"actions"`
	Enabled     *bool           `yaml:"enabled"`
}

// LoadPlaybooks walks dir for *.yml/*.yaml playbook definitions. A missing
// directory is not an error: it yields an empty set, the same tolerance
// LoadRules gives a missing rules directory.
func LoadPlaybooks(dir string) ([]model.Playbook, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	var playbooks []model.Playbook
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yml" && ext != ".yaml" {
			return nil
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		var yp yamlPlaybook
		if err := yaml.Unmarshal(raw, &yp); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		pb, err := yp.toPlaybook()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		playbooks = append(playbooks, pb)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(playbooks, func(i, j int) bool { return playbooks[i].ID < playbooks[j].ID })
	return playbooks, nil
}

func (yp yamlPlaybook) toPlaybook() (model.Playbook, error) {
	if yp.ID == "" {
		return model.Playbook{}, fmt.Errorf("playbook missing id")
	}

	triggers, err := parseConditions(yp.Triggers)
	if err != nil {
		return model.Playbook{}, fmt.Errorf("triggers: %w", err)
	}

	actions := make([]model.PlaybookAction, 0, len(yp.Actions))
	for _, ya := range yp.Actions {
		action, err := ya.toAction()
		if err != nil {
			return model.Playbook{}, fmt.Errorf("action %q: %w", ya.Name, err)
		}
		actions = append(actions, action)
	}

	return model.Playbook{
		ID:          yp.ID,
		Name:        yp.Name,
		Description: yp.Description,
		Triggers:    triggers,
		Actions:     actions,
		Enabled:     yp.Enabled == nil || *yp.Enabled,
	}, nil
}

func (ya yamlAction) toAction() (model.PlaybookAction, error) {
	actionType := model.ActionType(ya.Type)
	switch actionType {
	case model.ActionCaseManagement, model.ActionAnalyzer, model.ActionAutomation, model.ActionCustom:
	default:
		return model.PlaybookAction{}, fmt.Errorf("unknown action type %q", ya.Type)
	}

	conds, err := parseConditions(ya.Conditions)
	if err != nil {
		return model.PlaybookAction{}, fmt.Errorf("conditions: %w", err)
	}

	return model.PlaybookAction{
		Type:           actionType,
		Name:           ya.Name,
		Description:    ya.Description,
		Parameters:     ya.Parameters,
		Conditions:     conds,
		TimeoutSeconds: ya.TimeoutSeconds,
	}, nil
}

func parseConditions(raw []yamlCondition) ([]model.Condition, error) {
	conds := make([]model.Condition, 0, len(raw))
	for _, c := range raw {
		op, ok := condition.ParseOp(c.Op)
		if !ok {
			return nil, fmt.Errorf("condition on %q: unknown op %q", c.Field, c.Op)
		}
		conds = append(conds, model.Condition{Path: c.Field, Op: op, Value: c.Value})
	}
	return conds, nil
}

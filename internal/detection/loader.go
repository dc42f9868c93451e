package detection

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sentrywatch/siemcore/internal/condition"
	"github.com/sentrywatch/siemcore/internal/model"
)

// defaultAnomalyFeatures mirrors the feature lists the upstream anomaly
// models were trained against for each of the four event types with a
// scorer. A RulesDir/anomaly.yml may override any of these.
var defaultAnomalyFeatures = map[string][]string{
	"authentication": {"timestamp_hour", "user_id", "source_ip", "success"},
	"network":        {"bytes_in", "bytes_out", "dest_port", "protocol"},
	"process":        {"cpu_percent", "memory_percent", "open_files"},
	"file":           {"file_size", "entropy", "magic_number"},
}

const defaultAnomalyThreshold = -0.5

type yamlCondition struct {
	Field string `yaml:"field"`
	Op    string `yaml:"op"`
	Value any    `yaml:"value"`
}

type yamlPattern struct {
	ID         string `yaml:"id"`
	PatternHex string `yaml:"pattern_hex"`
}

type yamlRule struct {
	ID          string          `yaml:"id"`
	Kind        string          `yaml:"kind"`
	Title       string          `yaml:"title"`
	Description string          `yaml:"description"`
	Severity    string          `yaml:"severity"`
	Tags        []string        `yaml:"tags"`
	Enabled     *bool           `yaml:"enabled"`
	Detection   map[string]any  `yaml:"detection"`
	Conditions  []yamlCondition `yaml:"conditions"`
	Combine     string          `yaml:"combine"`
	Patterns    []yamlPattern   `yaml:"patterns"`
}

// LoadRules walks dir for *.yml/*.yaml rule definitions and parses each
// into a model.Rule. A missing directory is not an error: it yields an
// empty rule set, matching the "rules directory not found" tolerance of
// the pipeline it replaces.
func LoadRules(dir string) ([]model.Rule, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	var rules []model.Rule
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() == "anomaly.yml" || d.Name() == "anomaly.yaml" {
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
		var yr yamlRule
		if err := yaml.Unmarshal(raw, &yr); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		rule, err := yr.toRule()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		rules = append(rules, rule)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortByID(rules)
	return rules, nil
}

func (yr yamlRule) toRule() (model.Rule, error) {
	rule := model.Rule{
		ID:       yr.ID,
		Kind:     model.RuleKind(yr.Kind),
		Title:    yr.Title,
		Severity: severityOrDefault(yr.Severity),
		Tags:     yr.Tags,
		Enabled:  yr.Enabled == nil || *yr.Enabled,
	}
	if rule.ID == "" {
		return model.Rule{}, fmt.Errorf("rule missing id")
	}

	switch rule.Kind {
	case model.KindSelection:
		selections, expr, err := parseDetection(yr.Detection)
		if err != nil {
			return model.Rule{}, err
		}
		rule.Selections = selections
		rule.ConditionExpr = expr
	case model.KindCondition:
		conds, err := parseConditions(yr.Conditions)
		if err != nil {
			return model.Rule{}, err
		}
		rule.Conditions = conds
		rule.Combine = model.BoolAnd
		if strings.EqualFold(yr.Combine, "or") {
			rule.Combine = model.BoolOr
		}
	case model.KindSignature:
		patterns, err := parsePatterns(yr.Patterns)
		if err != nil {
			return model.Rule{}, err
		}
		rule.Patterns = patterns
	default:
		return model.Rule{}, fmt.Errorf("unknown rule kind %q", yr.Kind)
	}

	return rule, nil
}

func severityOrDefault(s string) model.Severity {
	if s == "" {
		return model.SeverityMedium
	}
	return model.Severity(strings.ToLower(s))
}

// parseDetection splits a Sigma-shaped detection block into its named
// selections and condition expression (the "condition" key, defaulting to
// "all of them").
func parseDetection(detection map[string]any) (map[string]model.Selection, string, error) {
	selections := make(map[string]model.Selection)
	expr := "all of them"

	// Sort keys so a malformed-selection error always names the same
	// culprit first, independent of map iteration order.
	keys := make([]string, 0, len(detection))
	for k := range detection {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, name := range keys {
		raw := detection[name]
		if name == "condition" {
			if s, ok := raw.(string); ok {
				expr = s
			}
			continue
		}
		sel, err := parseSelection(name, raw)
		if err != nil {
			return nil, "", err
		}
		selections[name] = sel
	}
	return selections, expr, nil
}

func parseSelection(name string, raw any) (model.Selection, error) {
	fields, ok := raw.(map[string]any)
	if !ok {
		return model.Selection{}, fmt.Errorf("selection %q: expected a field map", name)
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sel := model.Selection{Name: name}
	for _, field := range keys {
		clause, err := parseClause(field, fields[field])
		if err != nil {
			return model.Selection{}, fmt.Errorf("selection %q: %w", name, err)
		}
		sel.Clauses = append(sel.Clauses, clause)
	}
	return sel, nil
}

func parseClause(field string, expected any) (model.SelectionClause, error) {
	switch v := expected.(type) {
	case string:
		matcher, value := classifyWildcard(v)
		return model.SelectionClause{Path: field, Matcher: matcher, Value: value}, nil
	case []any:
		list := make([]string, 0, len(v))
		for _, e := range v {
			s, ok := e.(string)
			if !ok {
				return model.SelectionClause{}, fmt.Errorf("field %q: list elements must be strings", field)
			}
			list = append(list, s)
		}
		return model.SelectionClause{Path: field, Matcher: model.MatchAnyOf, AnyOf: list}, nil
	default:
		return model.SelectionClause{}, fmt.Errorf("field %q: expected a string or list, got %T", field, expected)
	}
}

// classifyWildcard parses an expected string's "*" markers once at load
// time, so matching never re-parses the pattern per event.
func classifyWildcard(s string) (model.Matcher, string) {
	switch {
	case len(s) >= 2 && strings.HasPrefix(s, "*") && strings.HasSuffix(s, "*"):
		return model.MatchContains, s[1 : len(s)-1]
	case strings.HasPrefix(s, "*"):
		return model.MatchSuffix, s[1:]
	case strings.HasSuffix(s, "*"):
		return model.MatchPrefix, s[:len(s)-1]
	default:
		return model.MatchEqual, s
	}
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

func parsePatterns(raw []yamlPattern) ([]model.SignaturePattern, error) {
	patterns := make([]model.SignaturePattern, 0, len(raw))
	for _, p := range raw {
		decoded, err := hex.DecodeString(p.PatternHex)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: invalid hex: %w", p.ID, err)
		}
		patterns = append(patterns, model.SignaturePattern{ID: p.ID, Pattern: decoded})
	}
	return patterns, nil
}

type yamlAnomalyModel struct {
	EventType string   `yaml:"event_type"`
	Features  []string `yaml:"features"`
	Threshold *float64 `yaml:"threshold"`
}

type yamlAnomalyFile struct {
	Models []yamlAnomalyModel `yaml:"models"`
}

// LoadAnomalyModels returns one AnomalyModel per default event type
// (authentication, network, process, file), overridden by any entries
// declared in dir/anomaly.yml.
func LoadAnomalyModels(dir string) ([]model.AnomalyModel, error) {
	result := make(map[string]model.AnomalyModel, len(defaultAnomalyFeatures))
	for eventType, features := range defaultAnomalyFeatures {
		result[eventType] = model.AnomalyModel{EventType: eventType, Features: features, Threshold: defaultAnomalyThreshold}
	}

	for _, name := range []string{"anomaly.yml", "anomaly.yaml"} {
		path := filepath.Join(dir, name)
		raw, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		var file yamlAnomalyFile
		if err := yaml.Unmarshal(raw, &file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		for _, m := range file.Models {
			am := model.AnomalyModel{EventType: m.EventType, Features: m.Features, Threshold: defaultAnomalyThreshold}
			if m.Threshold != nil {
				am.Threshold = *m.Threshold
			}
			result[m.EventType] = am
		}
	}

	models := make([]model.AnomalyModel, 0, len(result))
	for _, m := range result {
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].EventType < models[j].EventType })
	return models, nil
}

// Package detection evaluates enriched events against three declarative
// rule families (selection, condition, content-signature) and a set of
// per-event-type anomaly scorers, producing Alerts in a deterministic order.
package detection

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sentrywatch/siemcore/internal/condition"
	"github.com/sentrywatch/siemcore/internal/detection/anomaly"
	"github.com/sentrywatch/siemcore/internal/model"
)

// Engine holds the immutable rule set and anomaly models loaded at
// startup. Reload requires constructing a new Engine.
type Engine struct {
	selectionRules []model.Rule
	conditionRules []model.Rule
	signatureRules []model.Rule
	anomalyModels  map[string]*anomaly.Model

	seq atomic.Int64
}

// NewEngine partitions rules by Kind, drops disabled rules, and sorts each
// family by ID ascending so iteration order alone satisfies the "selection
// matches in ascending rule id" ordering guarantee.
func NewEngine(rules []model.Rule, anomalyModels []model.AnomalyModel) *Engine {
	e := &Engine{anomalyModels: make(map[string]*anomaly.Model, len(anomalyModels))}

	for _, r := range rules {
		if !r.Enabled {
			continue
		}
		switch r.Kind {
		case model.KindSelection:
			e.selectionRules = append(e.selectionRules, r)
		case model.KindCondition:
			e.conditionRules = append(e.conditionRules, r)
		case model.KindSignature:
			e.signatureRules = append(e.signatureRules, r)
		}
	}
	sortByID(e.selectionRules)
	sortByID(e.conditionRules)
	sortByID(e.signatureRules)

	for _, m := range anomalyModels {
		e.anomalyModels[m.EventType] = anomaly.New(m.EventType, m.Features, m.Threshold)
	}

	return e
}

func sortByID(rules []model.Rule) {
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })
}

// Evaluate runs ev through every rule family and returns the resulting
// alerts in the deterministic order: selection matches (ascending rule
// id), then condition matches, then signature matches, then an anomaly
// alert if the event type has a trained model and its score trips the
// threshold. ctx carries no deadline of its own — rule evaluation is
// entirely in-memory — but is accepted for symmetry with the rest of the
// processing pipeline.
func (e *Engine) Evaluate(_ context.Context, ev *model.Event) []model.Alert {
	tree := ev.Tree()

	var alerts []model.Alert
	alerts = append(alerts, e.evalSelections(ev, tree)...)
	alerts = append(alerts, e.evalConditions(ev, tree)...)

	if blob, ok := fileBlob(ev); ok {
		alerts = append(alerts, e.matchSignatures(ev, blob)...)
	}

	if a := e.evalAnomaly(ev); a != nil {
		alerts = append(alerts, *a)
	}

	return alerts
}

func (e *Engine) evalSelections(ev *model.Event, tree map[string]any) []model.Alert {
	var alerts []model.Alert
	for _, rule := range e.selectionRules {
		expr := rule.ConditionExpr
		if expr == "" {
			expr = "all of them"
		}
		if !evalConditionExpr(expr, rule.Selections, tree) {
			continue
		}
		alerts = append(alerts, e.newAlert(ev, rule, selectionMatchedFields(tree, rule.Selections)))
	}
	return alerts
}

func (e *Engine) evalConditions(ev *model.Event, tree map[string]any) []model.Alert {
	var alerts []model.Alert
	for _, rule := range e.conditionRules {
		if !condition.EvalAll(tree, rule.Conditions, rule.Combine) {
			continue
		}
		alerts = append(alerts, e.newAlert(ev, rule, conditionMatchedFields(tree, rule.Conditions)))
	}
	return alerts
}

// evalAnomaly extracts the declared feature vector for ev's event type
// (the first dot-separated label, matching how event types like
// "authentication.login_failed" are namespaced) and scores it against that
// type's running model. A missing model, or a score at or above the
// threshold, yields no alert.
func (e *Engine) evalAnomaly(ev *model.Event) *model.Alert {
	base := strings.SplitN(ev.EventType, ".", 2)[0]
	m, ok := e.anomalyModels[base]
	if !ok {
		return nil
	}

	values := make(map[string]float64, len(m.Features))
	for _, feature := range m.Features {
		v, _ := condition.ToFloat(ev.Data[feature])
		values[feature] = v
	}

	score := m.Score(values)
	if score >= m.Threshold {
		return nil
	}

	alert := model.Alert{
		ID:            e.newAlertID("ml", base),
		Title:         fmt.Sprintf("ML Anomaly: %s", base),
		Description:   fmt.Sprintf("Anomalous %s event detected", base),
		Severity:      model.SeverityMedium,
		Timestamp:     e.now(),
		RuleID:        "ml_" + base,
		RuleName:      "ML Anomaly Detection - " + base,
		SourceEvent:   ev,
		MatchedFields: map[string]any{"anomaly_score": score},
		Tags:          []string{"ml", "anomaly", base},
	}
	return &alert
}

func (e *Engine) newAlert(ev *model.Event, rule model.Rule, matched map[string]any) model.Alert {
	return model.Alert{
		ID:            e.newAlertID(string(rule.Kind), rule.ID),
		Title:         rule.Title,
		Description:   rule.Title,
		Severity:      rule.Severity,
		Timestamp:     e.now(),
		RuleID:        rule.ID,
		RuleName:      rule.Title,
		SourceEvent:   ev,
		MatchedFields: matched,
		Tags:          rule.Tags,
	}
}

func (e *Engine) newAlertID(prefix, ruleID string) string {
	n := e.seq.Add(1)
	return fmt.Sprintf("%s_%s_%d_%d", prefix, ruleID, e.now().UnixNano(), n)
}

func (e *Engine) now() time.Time {
	return time.Now().UTC()
}

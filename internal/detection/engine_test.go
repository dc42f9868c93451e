package detection

import (
	"context"
	"testing"

	"github.com/sentrywatch/siemcore/internal/model"
)

func eventWith(data map[string]any) *model.Event {
	return &model.Event{ID: "e1", Source: "host-1", EventType: "authentication.login", Data: data}
}

func TestEvaluateSelectionMatchWildcardAndExact(t *testing.T) {
	rule := model.Rule{
		ID:       "sel-1",
		Kind:     model.KindSelection,
		Title:    "suspicious login",
		Severity: model.SeverityHigh,
		Enabled:  true,
		Selections: map[string]model.Selection{
			"sel": {Name: "sel", Clauses: []model.SelectionClause{
				{Path: "data.user", Matcher: model.MatchEqual, Value: "root"},
				{Path: "data.host", Matcher: model.MatchSuffix, Value: "internal"},
			}},
		},
		ConditionExpr: "all of them",
	}
	e := NewEngine([]model.Rule{rule}, nil)

	ev := eventWith(map[string]any{"user": "root", "host": "db-01.internal"})
	alerts := e.Evaluate(context.Background(), ev)
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(alerts))
	}
	if alerts[0].RuleID != "sel-1" {
		t.Errorf("RuleID = %q, want sel-1", alerts[0].RuleID)
	}
	if alerts[0].MatchedFields["data.user"] != "root" {
		t.Errorf("MatchedFields missing data.user")
	}

	nonMatch := eventWith(map[string]any{"user": "guest", "host": "db-01.internal"})
	if alerts := e.Evaluate(context.Background(), nonMatch); len(alerts) != 0 {
		t.Errorf("got %d alerts for non-matching event, want 0", len(alerts))
	}
}

func TestEvaluateSelectionDeterministicOrderByRuleID(t *testing.T) {
	clause := model.SelectionClause{Path: "data.user", Matcher: model.MatchEqual, Value: "root"}
	makeRule := func(id string) model.Rule {
		return model.Rule{
			ID: id, Kind: model.KindSelection, Title: id, Severity: model.SeverityLow, Enabled: true,
			Selections:    map[string]model.Selection{"sel": {Name: "sel", Clauses: []model.SelectionClause{clause}}},
			ConditionExpr: "all of them",
		}
	}
	e := NewEngine([]model.Rule{makeRule("sel-z"), makeRule("sel-a"), makeRule("sel-m")}, nil)

	alerts := e.Evaluate(context.Background(), eventWith(map[string]any{"user": "root"}))
	if len(alerts) != 3 {
		t.Fatalf("got %d alerts, want 3", len(alerts))
	}
	if alerts[0].RuleID != "sel-a" || alerts[1].RuleID != "sel-m" || alerts[2].RuleID != "sel-z" {
		t.Errorf("alerts not in ascending rule-id order: %v", []string{alerts[0].RuleID, alerts[1].RuleID, alerts[2].RuleID})
	}
}

func TestEvaluateConditionRuleCombinesWithOr(t *testing.T) {
	rule := model.Rule{
		ID: "cond-1", Kind: model.KindCondition, Title: "big transfer", Severity: model.SeverityMedium, Enabled: true,
		Conditions: []model.Condition{
			{Path: "data.bytes_out", Op: model.OpGreaterThan, Value: 1_000_000.0},
			{Path: "data.user", Op: model.OpEquals, Value: "admin"},
		},
		Combine: model.BoolOr,
	}
	e := NewEngine([]model.Rule{rule}, nil)

	alerts := e.Evaluate(context.Background(), eventWith(map[string]any{"bytes_out": 2_000_000.0, "user": "svc"}))
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(alerts))
	}
}

func TestEvaluateSignatureMatchPerPattern(t *testing.T) {
	rule := model.Rule{
		ID: "sig-1", Kind: model.KindSignature, Title: "known malware blob", Enabled: true,
		Patterns: []model.SignaturePattern{
			{ID: "p1", Pattern: []byte("MALWARE")},
			{ID: "p2", Pattern: []byte("nope")},
		},
	}
	e := NewEngine([]model.Rule{rule}, nil)

	ev := eventWith(map[string]any{"file": map[string]any{"content": "...MALWARE...", "path": "a.bin"}})
	alerts := e.Evaluate(context.Background(), ev)
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(alerts))
	}
	if alerts[0].Severity != model.SeverityHigh {
		t.Errorf("Severity = %q, want high", alerts[0].Severity)
	}
	if alerts[0].MatchedFields["pattern_id"] != "p1" {
		t.Errorf("MatchedFields pattern_id = %v, want p1", alerts[0].MatchedFields["pattern_id"])
	}
}

func TestEvaluateAnomalyAlertsOnDeviation(t *testing.T) {
	e := NewEngine(nil, []model.AnomalyModel{
		{EventType: "authentication", Features: []string{"bytes"}, Threshold: -0.5},
	})

	for i := 0; i < 10; i++ {
		e.Evaluate(context.Background(), eventWith(map[string]any{"bytes": 10.0}))
	}
	alerts := e.Evaluate(context.Background(), eventWith(map[string]any{"bytes": 10_000.0}))
	if len(alerts) == 0 {
		t.Fatal("expected an anomaly alert for a large deviation")
	}
	if alerts[0].Severity != model.SeverityMedium {
		t.Errorf("Severity = %q, want medium", alerts[0].Severity)
	}
}

func TestEvaluateOrdersSelectionBeforeConditionBeforeSignatureBeforeAnomaly(t *testing.T) {
	sel := model.Rule{
		ID: "sel-1", Kind: model.KindSelection, Title: "s", Enabled: true,
		Selections:    map[string]model.Selection{"sel": {Name: "sel", Clauses: []model.SelectionClause{{Path: "data.user", Matcher: model.MatchEqual, Value: "root"}}}},
		ConditionExpr: "all of them",
	}
	cond := model.Rule{
		ID: "cond-1", Kind: model.KindCondition, Title: "c", Enabled: true,
		Conditions: []model.Condition{{Path: "data.user", Op: model.OpEquals, Value: "root"}},
		Combine:    model.BoolAnd,
	}
	sig := model.Rule{
		ID: "sig-1", Kind: model.KindSignature, Title: "g", Enabled: true,
		Patterns: []model.SignaturePattern{{ID: "p1", Pattern: []byte("BAD")}},
	}
	e := NewEngine([]model.Rule{sel, cond, sig}, []model.AnomalyModel{
		{EventType: "authentication", Features: []string{"x"}, Threshold: 1e9}, // always alerts
	})

	ev := eventWith(map[string]any{"user": "root", "file": map[string]any{"content": "BAD"}})
	alerts := e.Evaluate(context.Background(), ev)
	if len(alerts) != 4 {
		t.Fatalf("got %d alerts, want 4", len(alerts))
	}
	wantPrefixes := []string{"selection_", "condition_", "sig_", "ml_"}
	for i, prefix := range wantPrefixes {
		if len(alerts[i].ID) < len(prefix) || alerts[i].ID[:len(prefix)] != prefix {
			t.Errorf("alert %d ID = %q, want prefix %q", i, alerts[i].ID, prefix)
		}
	}
}

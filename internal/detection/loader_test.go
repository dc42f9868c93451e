package detection

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sentrywatch/siemcore/internal/model"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestLoadRulesMissingDirYieldsEmpty(t *testing.T) {
	rules, err := LoadRules(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("LoadRules() error = %v", err)
	}
	if len(rules) != 0 {
		t.Errorf("got %d rules, want 0", len(rules))
	}
}

func TestLoadRulesParsesAllThreeKinds(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "selection.yml", `
id: sel-1
kind: selection
title: suspicious login
severity: high
detection:
  sel:
    data.user: "admin*"
  condition: all of them
`)
	writeFile(t, dir, "condition.yml", `
id: cond-1
kind: condition
title: big transfer
conditions:
  - field: data.bytes_out
    op: greater_than
    value: 1000000
combine: and
`)
	writeFile(t, dir, "signature.yml", `
id: sig-1
kind: signature
title: known bad blob
patterns:
  - id: p1
    pattern_hex: "4d5a"
`)

	rules, err := LoadRules(dir)
	if err != nil {
		t.Fatalf("LoadRules() error = %v", err)
	}
	if len(rules) != 3 {
		t.Fatalf("got %d rules, want 3", len(rules))
	}

	byID := make(map[string]model.Rule, len(rules))
	for _, r := range rules {
		byID[r.ID] = r
	}

	sel, ok := byID["sel-1"]
	if !ok || sel.Kind != model.KindSelection || sel.Severity != model.SeverityHigh {
		t.Fatalf("selection rule not parsed correctly: %+v", sel)
	}
	clause := sel.Selections["sel"].Clauses[0]
	if clause.Matcher != model.MatchPrefix || clause.Value != "admin" {
		t.Errorf("wildcard clause = %+v, want prefix match on \"admin\"", clause)
	}

	cond, ok := byID["cond-1"]
	if !ok || cond.Kind != model.KindCondition || cond.Combine != model.BoolAnd {
		t.Fatalf("condition rule not parsed correctly: %+v", cond)
	}
	if cond.Conditions[0].Op != model.OpGreaterThan {
		t.Errorf("condition op = %v, want greater_than", cond.Conditions[0].Op)
	}

	sig, ok := byID["sig-1"]
	if !ok || sig.Kind != model.KindSignature {
		t.Fatalf("signature rule not parsed correctly: %+v", sig)
	}
	if string(sig.Patterns[0].Pattern) != "MZ" {
		t.Errorf("decoded pattern = %q, want \"MZ\"", sig.Patterns[0].Pattern)
	}
}

func TestLoadAnomalyModelsDefaultsAndOverride(t *testing.T) {
	dir := t.TempDir()
	models, err := LoadAnomalyModels(dir)
	if err != nil {
		t.Fatalf("LoadAnomalyModels() error = %v", err)
	}
	if len(models) != 4 {
		t.Fatalf("got %d default models, want 4", len(models))
	}

	writeFile(t, dir, "anomaly.yml", `
models:
  - event_type: authentication
    features: [user_id]
    threshold: -0.9
`)
	models, err = LoadAnomalyModels(dir)
	if err != nil {
		t.Fatalf("LoadAnomalyModels() error = %v", err)
	}
	for _, m := range models {
		if m.EventType == "authentication" {
			if len(m.Features) != 1 || m.Features[0] != "user_id" || m.Threshold != -0.9 {
				t.Errorf("override not applied: %+v", m)
			}
		}
	}
}

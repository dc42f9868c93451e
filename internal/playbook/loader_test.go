package playbook

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

func TestLoadPlaybooksMissingDirYieldsEmpty(t *testing.T) {
	playbooks, err := LoadPlaybooks(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("LoadPlaybooks() error = %v", err)
	}
	if len(playbooks) != 0 {
		t.Errorf("got %d playbooks, want 0", len(playbooks))
	}
}

func TestLoadPlaybooksParsesTriggersAndActions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "respond.yml", `
id: pb-1
name: respond to suspicious login
triggers:
  - field: severity
    op: equals
    value: high
  - field: severity
    op: equals
    value: critical
actions:
  - type: case-management
    name: open-case
    parameters:
      title: "Suspicious login"
  - type: custom
    name: notify-oncall
    conditions:
      - field: rule_id
        op: equals
        value: sel-1
    timeout_seconds: 30
    parameters:
      module: oncall
      function: page
`)

	playbooks, err := LoadPlaybooks(dir)
	if err != nil {
		t.Fatalf("LoadPlaybooks() error = %v", err)
	}
	if len(playbooks) != 1 {
		t.Fatalf("got %d playbooks, want 1", len(playbooks))
	}

	pb := playbooks[0]
	if pb.ID != "pb-1" || !pb.Enabled {
		t.Fatalf("playbook not parsed correctly: %+v", pb)
	}
	if len(pb.Triggers) != 2 || pb.Triggers[0].Op != model.OpEquals {
		t.Fatalf("triggers not parsed correctly: %+v", pb.Triggers)
	}
	if len(pb.Actions) != 2 {
		t.Fatalf("got %d actions, want 2", len(pb.Actions))
	}

	caseAction := pb.Actions[0]
	if caseAction.Type != model.ActionCaseManagement || caseAction.Parameters["title"] != "Suspicious login" {
		t.Errorf("case-management action not parsed correctly: %+v", caseAction)
	}

	customAction := pb.Actions[1]
	if customAction.Type != model.ActionCustom || customAction.TimeoutSeconds != 30 {
		t.Errorf("custom action not parsed correctly: %+v", customAction)
	}
	if len(customAction.Conditions) != 1 || customAction.Conditions[0].Path != "rule_id" {
		t.Errorf("custom action conditions not parsed correctly: %+v", customAction.Conditions)
	}
}

func TestLoadPlaybooksRejectsUnknownActionType(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.yml", `
id: pb-1
name: bad
actions:
  - type: not-a-real-type
    name: whatever
`)

	if _, err := LoadPlaybooks(dir); err == nil {
		t.Fatal("expected an error for an unknown action type")
	}
}

func TestLoadPlaybooksDisabledIsExcludedByEngine(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "disabled.yml", `
id: pb-1
name: disabled playbook
enabled: false
triggers:
  - field: severity
    op: equals
    value: high
actions:
  - type: case-management
    name: open-case
`)

	playbooks, err := LoadPlaybooks(dir)
	if err != nil {
		t.Fatalf("LoadPlaybooks() error = %v", err)
	}
	if len(playbooks) != 1 || playbooks[0].Enabled {
		t.Fatalf("expected one disabled playbook, got %+v", playbooks)
	}
	if e := NewEngine(playbooks, nil); len(e.playbooks) != 0 {
		t.Errorf("engine kept %d disabled playbooks, want 0", len(e.playbooks))
	}
}

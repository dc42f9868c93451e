// Package playbook matches Alerts against declared playbooks and runs
// their actions through a small set of response-integration handlers
// (case management, analyzer, automation, custom), mirroring the
// §4.N response-orchestration contract.
package playbook

import (
	"context"

	"github.com/sentrywatch/siemcore/internal/model"
)

// Handler runs one PlaybookAction against the triggering Alert. Handlers
// are looked up by ActionType, never by Action.Name, so the registry has
// exactly four entries regardless of how many playbooks reference them.
type Handler interface {
	Handle(ctx context.Context, action *model.PlaybookAction, alert *model.Alert) error
}

// CaseStore creates cases and links alerts to them in a case-management
// system (e.g. TheHive).
type CaseStore interface {
	CreateCase(ctx context.Context, title, description, severity string, tags []string) (caseID string, err error)
	LinkAlert(ctx context.Context, caseID string, alert *model.Alert) error
}

// AnalyzerService submits enrichment/analysis jobs (e.g. Cortex analyzers)
// and reports their terminal status.
type AnalyzerService interface {
	Submit(ctx context.Context, analyzerID string, data map[string]any) (jobID string, err error)
	// Status returns one of "Waiting", "InProgress", "Success", "Failure".
	Status(ctx context.Context, jobID string) (status, report string, err error)
}

// AutomationRunner executes an orchestration job (e.g. an Ansible
// playbook) and reports its exit status.
type AutomationRunner interface {
	Run(ctx context.Context, job string, inventory, variables map[string]any) (exitCode int, stderr string, err error)
}

// CustomFunc is a registered response function, addressed by the
// "module.function" key an action's parameters name. Go has no dynamic
// import equivalent to the reference engine's importlib-based dispatch, so
// custom actions resolve against a fixed, registered table instead.
type CustomFunc func(ctx context.Context, alert *model.Alert, kwargs map[string]any) error

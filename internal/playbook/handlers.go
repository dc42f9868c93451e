package playbook

import (
	"context"
	"fmt"
	"time"

	"github.com/sentrywatch/siemcore/internal/model"
)

func stringParam(params map[string]any, key, fallback string) string {
	if v, ok := params[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func mapParam(params map[string]any, key string) map[string]any {
	v, _ := params[key].(map[string]any)
	return v
}

// caseManagementHandler creates a case from the alert and links the alert
// to it, the same two-step flow as the reference TheHive integration.
type caseManagementHandler struct {
	store CaseStore
}

func (h *caseManagementHandler) Handle(ctx context.Context, action *model.PlaybookAction, alert *model.Alert) error {
	if h.store == nil {
		return fmt.Errorf("case-management action %q: no case store configured", action.Name)
	}
	title := stringParam(action.Parameters, "title", alert.Title)
	description := stringParam(action.Parameters, "description", alert.Description)
	severity := stringParam(action.Parameters, "severity", string(alert.Severity))

	caseID, err := h.store.CreateCase(ctx, title, description, severity, alert.Tags)
	if err != nil {
		return fmt.Errorf("create case: %w", err)
	}
	if err := h.store.LinkAlert(ctx, caseID, alert); err != nil {
		return fmt.Errorf("link alert to case %s: %w", caseID, err)
	}
	return nil
}

// analyzerHandler submits a job and, when the action asks for it, polls
// for a terminal status every pollInterval, the same cadence the
// reference Cortex integration uses.
type analyzerHandler struct {
	svc          AnalyzerService
	pollInterval time.Duration
}

func (h *analyzerHandler) Handle(ctx context.Context, action *model.PlaybookAction, alert *model.Alert) error {
	if h.svc == nil {
		return fmt.Errorf("analyzer action %q: no analyzer service configured", action.Name)
	}
	analyzerID := stringParam(action.Parameters, "analyzer_id", "")
	data := mapParam(action.Parameters, "data")
	if data == nil {
		data = alert.Tree()
	}

	jobID, err := h.svc.Submit(ctx, analyzerID, data)
	if err != nil {
		return fmt.Errorf("submit analyzer job: %w", err)
	}

	wait, _ := action.Parameters["wait_for_completion"].(bool)
	if !wait {
		return nil
	}

	interval := h.pollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, report, err := h.svc.Status(ctx, jobID)
		if err != nil {
			return fmt.Errorf("poll analyzer job %s: %w", jobID, err)
		}
		switch status {
		case "Success":
			return nil
		case "Failure":
			return fmt.Errorf("analyzer job %s failed: %s", jobID, report)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// automationHandler runs an orchestration job and treats a non-zero exit
// code as a failed action, same as the reference Ansible integration
// logging the return code.
type automationHandler struct {
	runner AutomationRunner
}

func (h *automationHandler) Handle(ctx context.Context, action *model.PlaybookAction, alert *model.Alert) error {
	if h.runner == nil {
		return fmt.Errorf("automation action %q: no runner configured", action.Name)
	}
	job := stringParam(action.Parameters, "playbook", "")
	inventory := mapParam(action.Parameters, "inventory")
	variables := mapParam(action.Parameters, "variables")

	exitCode, stderr, err := h.runner.Run(ctx, job, inventory, variables)
	if err != nil {
		return fmt.Errorf("run %s: %w", job, err)
	}
	if exitCode != 0 {
		return fmt.Errorf("%s exited %d: %s", job, exitCode, stderr)
	}
	return nil
}

// customHandler dispatches to a statically registered function keyed by
// "module.function", the Go stand-in for the reference engine's dynamic
// import-and-invoke.
type customHandler struct {
	funcs map[string]CustomFunc
}

func (h *customHandler) Handle(ctx context.Context, action *model.PlaybookAction, alert *model.Alert) error {
	module := stringParam(action.Parameters, "module", "")
	function := stringParam(action.Parameters, "function", "")
	key := module + "." + function

	fn, ok := h.funcs[key]
	if !ok {
		return fmt.Errorf("custom action %q: no function registered for %s", action.Name, key)
	}
	kwargs := mapParam(action.Parameters, "kwargs")
	return fn(ctx, alert, kwargs)
}

package playbook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sentrywatch/siemcore/internal/condition"
	"github.com/sentrywatch/siemcore/internal/logging"
	"github.com/sentrywatch/siemcore/internal/model"
)

const defaultActionTimeout = 300 * time.Second

// Engine holds the enabled playbooks and the handler registered for each
// ActionType.
type Engine struct {
	playbooks []model.Playbook
	handlers  map[model.ActionType]Handler
}

// NewEngine keeps only enabled playbooks, in the order given. Reload
// requires constructing a new Engine.
func NewEngine(playbooks []model.Playbook, handlers map[model.ActionType]Handler) *Engine {
	e := &Engine{handlers: handlers}
	for _, p := range playbooks {
		if p.Enabled {
			e.playbooks = append(e.playbooks, p)
		}
	}
	return e
}

// Execute runs every playbook with at least one matching trigger against
// alert, in declared order, and returns the outcome of every action that
// was attempted or skipped across all of them. A playbook's own action
// failures never stop evaluation of the remaining playbooks.
func (e *Engine) Execute(ctx context.Context, alert *model.Alert) []model.ActionOutcome {
	tree := alert.Tree()

	var outcomes []model.ActionOutcome
	for _, pb := range e.playbooks {
		if !anyTriggerMatches(tree, pb.Triggers) {
			continue
		}
		outcomes = append(outcomes, e.runActions(ctx, pb, alert, tree)...)
	}
	return outcomes
}

// anyTriggerMatches is an OR across a playbook's triggers: the first
// matching trigger is enough to run the playbook, mirroring the
// first-match-wins trigger scan of the reference engine.
func anyTriggerMatches(tree map[string]any, triggers []model.Condition) bool {
	for _, t := range triggers {
		if condition.Eval(tree, t) {
			return true
		}
	}
	return false
}

func (e *Engine) runActions(ctx context.Context, pb model.Playbook, alert *model.Alert, tree map[string]any) []model.ActionOutcome {
	outcomes := make([]model.ActionOutcome, 0, len(pb.Actions))
	for i := range pb.Actions {
		action := pb.Actions[i]
		outcome := e.runAction(ctx, &action, alert, tree)
		outcomes = append(outcomes, outcome)

		log := logging.Ctx(ctx).Info()
		if outcome.Err != nil {
			log = logging.Ctx(ctx).Warn().Err(outcome.Err)
		}
		log.Str("playbook_id", pb.ID).
			Str("action", outcome.ActionName).
			Bool("skipped", outcome.Skipped).
			Bool("timed_out", outcome.TimedOut).
			Msg("playbook action completed")
	}
	return outcomes
}

// runAction gates the action on its own conditions (AND-combined, against
// the same alert tree as triggers), runs it under a per-action timeout,
// and never lets a failure or timeout propagate: both are recorded in the
// outcome so the remaining actions in the playbook still run.
func (e *Engine) runAction(ctx context.Context, action *model.PlaybookAction, alert *model.Alert, tree map[string]any) model.ActionOutcome {
	outcome := model.ActionOutcome{ActionName: action.Name}

	if !condition.EvalAll(tree, action.Conditions, model.BoolAnd) {
		outcome.Skipped = true
		return outcome
	}

	handler, ok := e.handlers[action.Type]
	if !ok {
		outcome.Err = fmt.Errorf("no handler registered for action type %q", action.Type)
		return outcome
	}

	timeout := time.Duration(action.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultActionTimeout
	}
	actionCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := handler.Handle(actionCtx, action, alert); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			outcome.TimedOut = true
		} else {
			outcome.Err = err
		}
	}
	return outcome
}

package playbook

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sentrywatch/siemcore/internal/model"
)

type fakeCaseStore struct {
	caseID  string
	created bool
	linked  bool
}

func (f *fakeCaseStore) CreateCase(_ context.Context, title, _, _ string, _ []string) (string, error) {
	f.created = true
	return f.caseID, nil
}

func (f *fakeCaseStore) LinkAlert(_ context.Context, caseID string, _ *model.Alert) error {
	if caseID != f.caseID {
		return errors.New("unexpected case id")
	}
	f.linked = true
	return nil
}

func TestCaseManagementHandlerCreatesAndLinks(t *testing.T) {
	store := &fakeCaseStore{caseID: "case-1"}
	h := &caseManagementHandler{store: store}

	err := h.Handle(context.Background(), &model.PlaybookAction{Name: "open-case"}, testAlert())
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if !store.created || !store.linked {
		t.Errorf("expected case created and linked, got created=%v linked=%v", store.created, store.linked)
	}
}

func TestCaseManagementHandlerNoStoreConfigured(t *testing.T) {
	h := &caseManagementHandler{}
	if err := h.Handle(context.Background(), &model.PlaybookAction{Name: "open-case"}, testAlert()); err == nil {
		t.Fatal("expected an error when no case store is configured")
	}
}

type fakeAnalyzerService struct {
	statuses []string
	i        int
}

func (f *fakeAnalyzerService) Submit(_ context.Context, _ string, _ map[string]any) (string, error) {
	return "job-1", nil
}

func (f *fakeAnalyzerService) Status(_ context.Context, _ string) (string, string, error) {
	s := f.statuses[f.i]
	if f.i < len(f.statuses)-1 {
		f.i++
	}
	return s, "report", nil
}

func TestAnalyzerHandlerNoWaitReturnsImmediately(t *testing.T) {
	svc := &fakeAnalyzerService{statuses: []string{"Waiting"}}
	h := &analyzerHandler{svc: svc}

	err := h.Handle(context.Background(), &model.PlaybookAction{Name: "analyze"}, testAlert())
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
}

func TestAnalyzerHandlerWaitsForTerminalStatus(t *testing.T) {
	svc := &fakeAnalyzerService{statuses: []string{"Waiting", "InProgress", "Success"}}
	h := &analyzerHandler{svc: svc, pollInterval: time.Millisecond}

	action := &model.PlaybookAction{
		Name:       "analyze",
		Parameters: map[string]any{"wait_for_completion": true},
	}
	if err := h.Handle(context.Background(), action, testAlert()); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
}

func TestAnalyzerHandlerFailureStatusIsError(t *testing.T) {
	svc := &fakeAnalyzerService{statuses: []string{"Failure"}}
	h := &analyzerHandler{svc: svc, pollInterval: time.Millisecond}

	action := &model.PlaybookAction{
		Name:       "analyze",
		Parameters: map[string]any{"wait_for_completion": true},
	}
	if err := h.Handle(context.Background(), action, testAlert()); err == nil {
		t.Fatal("expected an error for a failed analyzer job")
	}
}

type fakeRunner struct {
	exitCode int
	stderr   string
}

func (f *fakeRunner) Run(_ context.Context, _ string, _, _ map[string]any) (int, string, error) {
	return f.exitCode, f.stderr, nil
}

func TestAutomationHandlerNonZeroExitIsError(t *testing.T) {
	h := &automationHandler{runner: &fakeRunner{exitCode: 1, stderr: "task failed"}}
	if err := h.Handle(context.Background(), &model.PlaybookAction{Name: "run"}, testAlert()); err == nil {
		t.Fatal("expected an error for a non-zero exit code")
	}
}

func TestAutomationHandlerZeroExitSucceeds(t *testing.T) {
	h := &automationHandler{runner: &fakeRunner{exitCode: 0}}
	if err := h.Handle(context.Background(), &model.PlaybookAction{Name: "run"}, testAlert()); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
}

func TestCustomHandlerDispatchesByModuleAndFunction(t *testing.T) {
	var gotKwargs map[string]any
	h := &customHandler{funcs: map[string]CustomFunc{
		"oncall.page": func(_ context.Context, _ *model.Alert, kwargs map[string]any) error {
			gotKwargs = kwargs
			return nil
		},
	}}

	action := &model.PlaybookAction{
		Name: "notify-oncall",
		Parameters: map[string]any{
			"module":   "oncall",
			"function": "page",
			"kwargs":   map[string]any{"urgency": "high"},
		},
	}
	if err := h.Handle(context.Background(), action, testAlert()); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if gotKwargs["urgency"] != "high" {
		t.Errorf("kwargs not passed through, got %+v", gotKwargs)
	}
}

func TestCustomHandlerUnregisteredFunctionIsError(t *testing.T) {
	h := &customHandler{funcs: map[string]CustomFunc{}}
	action := &model.PlaybookAction{
		Name:       "notify-oncall",
		Parameters: map[string]any{"module": "oncall", "function": "page"},
	}
	if err := h.Handle(context.Background(), action, testAlert()); err == nil {
		t.Fatal("expected an error for an unregistered custom function")
	}
}

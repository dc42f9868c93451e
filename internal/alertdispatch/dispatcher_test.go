package alertdispatch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sentrywatch/siemcore/internal/model"
)

type fakeChannel struct {
	name    string
	err     error
	mu      sync.Mutex
	sent    []*model.Alert
}

func (f *fakeChannel) Name() string { return f.name }

func (f *fakeChannel) Send(_ context.Context, alert *model.Alert, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, alert)
	return f.err
}

func (f *fakeChannel) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func TestDispatchRoutesCriticalToAllThreeChannels(t *testing.T) {
	email := &fakeChannel{name: "email"}
	chat := &fakeChannel{name: "chat"}
	im := &fakeChannel{name: "im"}
	d := New(map[string]Channel{"email": email, "chat": chat, "im": im})

	d.Dispatch(context.Background(), &model.Alert{ID: "a1", Severity: model.SeverityCritical})

	if email.count() != 1 || chat.count() != 1 || im.count() != 1 {
		t.Errorf("expected all three channels dispatched, got email=%d chat=%d im=%d", email.count(), chat.count(), im.count())
	}
}

func TestDispatchLowOnlyReachesChat(t *testing.T) {
	email := &fakeChannel{name: "email"}
	chat := &fakeChannel{name: "chat"}
	d := New(map[string]Channel{"email": email, "chat": chat})

	d.Dispatch(context.Background(), &model.Alert{ID: "a2", Severity: model.SeverityLow})

	if email.count() != 0 {
		t.Errorf("low severity should not reach email")
	}
	if chat.count() != 1 {
		t.Errorf("low severity should reach chat")
	}
}

func TestDispatchOneChannelFailureDoesNotBlockOthers(t *testing.T) {
	email := &fakeChannel{name: "email", err: errors.New("smtp down")}
	chat := &fakeChannel{name: "chat"}
	d := New(map[string]Channel{"email": email, "chat": chat})

	d.Dispatch(context.Background(), &model.Alert{ID: "a3", Severity: model.SeverityHigh})

	if chat.count() != 1 {
		t.Errorf("chat channel should still have been dispatched despite email failure")
	}
}

func TestDispatchSkipsUnregisteredChannel(t *testing.T) {
	chat := &fakeChannel{name: "chat"}
	d := New(map[string]Channel{"chat": chat})

	// Routes to email+chat+im+stream, but only chat is registered.
	d.Dispatch(context.Background(), &model.Alert{ID: "a4", Severity: model.SeverityCritical})

	if chat.count() != 1 {
		t.Errorf("chat channel should have been dispatched")
	}
}

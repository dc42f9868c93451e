package geoip

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeProvider struct {
	name      string
	available bool
	result    *Result
	err       error
	calls     int
}

func (f *fakeProvider) Name() string       { return f.name }
func (f *fakeProvider) IsAvailable() bool  { return f.available }
func (f *fakeProvider) Lookup(_ context.Context, _ string) (*Result, error) {
	f.calls++
	return f.result, f.err
}

func TestResolverPrivateIPShortCircuits(t *testing.T) {
	p := &fakeProvider{name: "p", available: true, result: &Result{Country: "US"}}
	r := New(time.Hour, p)

	res, err := r.Resolve(context.Background(), "10.0.0.5")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if res.Country != "Local" {
		t.Errorf("Country = %q, want Local", res.Country)
	}
	if p.calls != 0 {
		t.Errorf("provider called %d times for private IP, want 0", p.calls)
	}
}

func TestResolverInvalidAddressErrors(t *testing.T) {
	r := New(time.Hour)
	if _, err := r.Resolve(context.Background(), "not-an-ip"); err == nil {
		t.Fatal("Resolve() expected error for invalid IP")
	}
}

func TestResolverFallsThroughUnavailableProvider(t *testing.T) {
	unavailable := &fakeProvider{name: "a", available: false}
	ok := &fakeProvider{name: "b", available: true, result: &Result{Country: "DE"}}
	r := New(time.Hour, unavailable, ok)

	res, err := r.Resolve(context.Background(), "8.8.8.8")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if res.Country != "DE" {
		t.Errorf("Country = %q, want DE", res.Country)
	}
	if unavailable.calls != 0 {
		t.Errorf("unavailable provider called %d times, want 0", unavailable.calls)
	}
}

func TestResolverCachesSuccessfulLookup(t *testing.T) {
	p := &fakeProvider{name: "p", available: true, result: &Result{Country: "FR"}}
	r := New(time.Hour, p)

	if _, err := r.Resolve(context.Background(), "8.8.4.4"); err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if _, err := r.Resolve(context.Background(), "8.8.4.4"); err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if p.calls != 1 {
		t.Errorf("provider called %d times, want 1 (second lookup should hit cache)", p.calls)
	}
}

func TestResolverAllProvidersFail(t *testing.T) {
	p := &fakeProvider{name: "p", available: true, err: errors.New("boom")}
	r := New(time.Hour, p)

	if _, err := r.Resolve(context.Background(), "8.8.8.8"); err == nil {
		t.Fatal("Resolve() expected error when all providers fail")
	}
}

package dnsinfo

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeResolver struct {
	addrs []string
	err   error
}

func (f *fakeResolver) LookupHost(_ context.Context, _ string) ([]string, error) {
	return f.addrs, f.err
}

func TestResolveReturnsAddresses(t *testing.T) {
	r := &Resolver{resolver: &fakeResolver{addrs: []string{"93.184.216.34"}}, timeout: time.Second}

	res, err := r.Resolve(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if len(res.IPAddresses) != 1 || res.IPAddresses[0] != "93.184.216.34" {
		t.Errorf("IPAddresses = %v, want [93.184.216.34]", res.IPAddresses)
	}
}

func TestResolveFailurePropagatesError(t *testing.T) {
	r := &Resolver{resolver: &fakeResolver{err: errors.New("nxdomain")}, timeout: time.Second}

	if _, err := r.Resolve(context.Background(), "no-such-host.invalid"); err == nil {
		t.Fatal("Resolve() expected error on lookup failure")
	}
}

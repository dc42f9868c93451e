package enrich

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sentrywatch/siemcore/internal/enrich/dnsinfo"
	"github.com/sentrywatch/siemcore/internal/enrich/geoip"
	"github.com/sentrywatch/siemcore/internal/enrich/threatintel"
	"github.com/sentrywatch/siemcore/internal/model"
)

type fakeGeoIP struct{ res *geoip.Result }

func (f *fakeGeoIP) Resolve(_ context.Context, _ string) (*geoip.Result, error) {
	if f.res == nil {
		return nil, errors.New("no geoip data")
	}
	return f.res, nil
}

type fakeDNS struct{ res *dnsinfo.Result }

func (f *fakeDNS) Resolve(_ context.Context, _ string) (*dnsinfo.Result, error) {
	if f.res == nil {
		return nil, errors.New("no dns data")
	}
	return f.res, nil
}

type fakeThreat struct{ res *threatintel.Result }

func (f *fakeThreat) Query(_ context.Context, _ string) (*threatintel.Result, error) {
	if f.res == nil {
		return nil, errors.New("no threat data")
	}
	return f.res, nil
}

func TestEnrichAttachesAllThreeOverlays(t *testing.T) {
	geo := &fakeGeoIP{res: &geoip.Result{Country: "US", City: "Ashburn"}}
	dns := &fakeDNS{res: &dnsinfo.Result{IPAddresses: []string{"93.184.216.34"}}}
	threat := &fakeThreat{res: &threatintel.Result{Score: 10}}
	e := New(geo, dns, threat, time.Second)

	ev := &model.Event{
		Source: "fw1", EventType: "traffic",
		Data: map[string]any{"src_ip": "8.8.8.8", "dest_host": "example.com"},
	}

	e.Enrich(context.Background(), ev)

	if ev.Enriched == nil {
		t.Fatal("Enriched was not set")
	}
	if _, ok := ev.Enriched.IPInfo["8.8.8.8"]; !ok {
		t.Errorf("IPInfo missing 8.8.8.8: %+v", ev.Enriched.IPInfo)
	}
	if _, ok := ev.Enriched.DNSInfo["example.com"]; !ok {
		t.Errorf("DNSInfo missing example.com: %+v", ev.Enriched.DNSInfo)
	}
	if len(ev.Enriched.ThreatIntel) == 0 {
		t.Error("ThreatIntel overlay empty")
	}
}

func TestEnrichOmitsFailedLookupsWithoutError(t *testing.T) {
	e := New(&fakeGeoIP{}, &fakeDNS{}, &fakeThreat{}, time.Second)

	ev := &model.Event{
		Source: "fw1", EventType: "traffic",
		Data: map[string]any{"src_ip": "8.8.8.8"},
	}

	e.Enrich(context.Background(), ev)

	if ev.Enriched == nil {
		t.Fatal("Enriched was not set")
	}
	if ev.Enriched.IPInfo != nil {
		t.Errorf("IPInfo = %+v, want nil on lookup failure", ev.Enriched.IPInfo)
	}
}

func TestEnrichHonorsDeadline(t *testing.T) {
	e := New(nil, nil, nil, time.Millisecond)
	ev := &model.Event{Source: "fw1", EventType: "traffic", Data: map[string]any{}}

	start := time.Now()
	e.Enrich(context.Background(), ev)
	if time.Since(start) > time.Second {
		t.Error("Enrich took far longer than its deadline")
	}
	if ev.Enriched == nil {
		t.Fatal("Enriched was not set even with nil resolvers")
	}
}

// Package enrich computes the GeoIP/DNS/threat-intel overlay attached to
// non-duplicate events before archival and indexing.
package enrich

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sentrywatch/siemcore/internal/enrich/dnsinfo"
	"github.com/sentrywatch/siemcore/internal/enrich/geoip"
	"github.com/sentrywatch/siemcore/internal/enrich/threatintel"
	"github.com/sentrywatch/siemcore/internal/logging"
	"github.com/sentrywatch/siemcore/internal/model"
)

// GeoIPResolver resolves an IP address to geolocation data.
type GeoIPResolver interface {
	Resolve(ctx context.Context, ipAddress string) (*geoip.Result, error)
}

// DNSResolver resolves a hostname to its current address records.
type DNSResolver interface {
	Resolve(ctx context.Context, hostname string) (*dnsinfo.Result, error)
}

// ThreatIntelProvider queries a threat-intel source for an indicator.
type ThreatIntelProvider interface {
	Query(ctx context.Context, indicator string) (*threatintel.Result, error)
}

// Enricher computes the three enrichment overlays concurrently, within a
// combined per-event deadline. Partial results are accepted: a slow or
// failing lookup omits its own indicator rather than failing the event.
type Enricher struct {
	geoip    GeoIPResolver
	dns      DNSResolver
	threat   ThreatIntelProvider
	deadline time.Duration
}

// New returns an Enricher bounding the combined GeoIP/DNS/threat-intel
// fan-out to deadline.
func New(geoip GeoIPResolver, dns DNSResolver, threat ThreatIntelProvider, deadline time.Duration) *Enricher {
	if deadline <= 0 {
		deadline = 5 * time.Second
	}
	return &Enricher{geoip: geoip, dns: dns, threat: threat, deadline: deadline}
}

// Enrich populates ev.Enriched in place. It never returns an error: every
// lookup failure is logged and the corresponding indicator is simply
// absent from the overlay, matching the "missing data is silently
// skipped" contract of the pipeline stage this implements.
func (e *Enricher) Enrich(ctx context.Context, ev *model.Event) {
	ctx, cancel := context.WithTimeout(ctx, e.deadline)
	defer cancel()

	ind := extractIndicators(ev)
	overlay := &model.EnrichedOverlay{ProcessingTimestamp: time.Now().UTC()}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		overlay.IPInfo = e.enrichGeoIP(gctx, ind.ips)
		return nil
	})
	group.Go(func() error {
		overlay.DNSInfo = e.enrichDNS(gctx, ind.hostnames)
		return nil
	})
	group.Go(func() error {
		overlay.ThreatIntel = e.enrichThreatIntel(gctx, ind)
		return nil
	})

	// The group's goroutines never return an error themselves (failures
	// are swallowed per-indicator), so Wait always returns nil. A lookup
	// still running when the shared deadline fires fails through its
	// context and is left out; results gathered before then are kept.
	_ = group.Wait()

	ev.Enriched = overlay
}

func (e *Enricher) enrichGeoIP(ctx context.Context, ips map[string]struct{}) map[string]model.IPInfo {
	if e.geoip == nil || len(ips) == 0 {
		return nil
	}
	var mu sync.Mutex
	out := make(map[string]model.IPInfo, len(ips))
	var wg sync.WaitGroup
	for ip := range ips {
		ip := ip
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := e.geoip.Resolve(ctx, ip)
			if err != nil {
				logging.Ctx(ctx).Debug().Err(err).Str("ip", ip).Msg("geoip lookup failed")
				return
			}
			mu.Lock()
			out[ip] = model.IPInfo{Country: res.Country, City: res.City, Lat: res.Lat, Lon: res.Lon, ASN: res.ASN}
			mu.Unlock()
		}()
	}
	wg.Wait()
	if len(out) == 0 {
		return nil
	}
	return out
}

func (e *Enricher) enrichDNS(ctx context.Context, hostnames map[string]struct{}) map[string]model.DNSInfo {
	if e.dns == nil || len(hostnames) == 0 {
		return nil
	}
	var mu sync.Mutex
	out := make(map[string]model.DNSInfo, len(hostnames))
	var wg sync.WaitGroup
	for host := range hostnames {
		host := host
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := e.dns.Resolve(ctx, host)
			if err != nil {
				logging.Ctx(ctx).Debug().Err(err).Str("hostname", host).Msg("dns resolution failed")
				return
			}
			mu.Lock()
			out[host] = model.DNSInfo{IPAddresses: res.IPAddresses, ResolutionTime: res.ResolutionTime}
			mu.Unlock()
		}()
	}
	wg.Wait()
	if len(out) == 0 {
		return nil
	}
	return out
}

func (e *Enricher) enrichThreatIntel(ctx context.Context, ind indicators) map[string]model.ThreatIntel {
	if e.threat == nil {
		return nil
	}
	all := make(map[string]struct{}, len(ind.ips)+len(ind.hostnames)+len(ind.hashes))
	for ip := range ind.ips {
		all[ip] = struct{}{}
	}
	for host := range ind.hostnames {
		all[host] = struct{}{}
	}
	for hash := range ind.hashes {
		all[hash] = struct{}{}
	}
	if len(all) == 0 {
		return nil
	}

	var mu sync.Mutex
	out := make(map[string]model.ThreatIntel, len(all))
	var wg sync.WaitGroup
	for indicator := range all {
		indicator := indicator
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := e.threat.Query(ctx, indicator)
			if err != nil {
				logging.Ctx(ctx).Debug().Err(err).Str("indicator", indicator).Msg("threat intel lookup failed")
				return
			}
			mu.Lock()
			out[indicator] = model.ThreatIntel{Score: res.Score, Categories: res.Categories, LastSeen: res.LastSeen}
			mu.Unlock()
		}()
	}
	wg.Wait()
	if len(out) == 0 {
		return nil
	}
	return out
}

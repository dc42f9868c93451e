package enrich

import (
	"github.com/sentrywatch/siemcore/internal/config"
	"github.com/sentrywatch/siemcore/internal/enrich/dnsinfo"
	"github.com/sentrywatch/siemcore/internal/enrich/geoip"
	"github.com/sentrywatch/siemcore/internal/enrich/threatintel"
)

// NewFromConfig assembles an Enricher from configuration: a MaxMind
// GeoLite2 web-service provider (when credentials are set) falling back
// to the keyless ip-api.com provider, the system DNS resolver, and the
// configured threat-intel HTTP API.
func NewFromConfig(cfg config.EnrichConfig) *Enricher {
	geoResolver := geoip.New(cfg.GeoIPCacheTTL,
		geoip.NewMaxMindProvider(cfg.MaxMindAccountID, cfg.MaxMindLicenseKey),
		geoip.NewIPAPIProvider(),
	)
	dnsResolver := dnsinfo.New(cfg.DNSTimeout)
	threatProvider := threatintel.New(cfg.ThreatIntelURL, cfg.ThreatIntelAPIKey)

	return New(geoResolver, dnsResolver, threatProvider, cfg.OverallDeadline)
}

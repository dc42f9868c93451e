package enrich

import (
	"net"
	"regexp"

	"github.com/sentrywatch/siemcore/internal/model"
)

var (
	ipv4Pattern = regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4]\d|1?\d?\d)\.){3}(?:25[0-5]|2[0-4]\d|1?\d?\d)\b`)
	ipv6Pattern = regexp.MustCompile(`\b(?:[0-9A-Fa-f]{1,4}:){2,7}[0-9A-Fa-f]{1,4}\b`)
	fqdnPattern = regexp.MustCompile(`\b(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,63}\b`)
	hashPattern = regexp.MustCompile(`\b[a-fA-F0-9]{32}\b|\b[a-fA-F0-9]{40}\b|\b[a-fA-F0-9]{64}\b`)
)

// indicators holds the deduplicated set of addresses, hostnames, and
// hashes found in one event, ready for the enrichment fan-out.
type indicators struct {
	ips       map[string]struct{}
	hostnames map[string]struct{}
	hashes    map[string]struct{}
}

// extractIndicators walks every string value in an event's data
// collecting IP literals, hostnames, and file hashes; the top-level
// identity fields are not scanned. Hostnames that are actually dotted-decimal IPs are excluded
// from the hostname set since they would never resolve as DNS names.
func extractIndicators(ev *model.Event) indicators {
	ind := indicators{
		ips:       make(map[string]struct{}),
		hostnames: make(map[string]struct{}),
		hashes:    make(map[string]struct{}),
	}

	walkStrings(ev.Data, func(s string) {
		for _, m := range ipv4Pattern.FindAllString(s, -1) {
			if net.ParseIP(m) != nil {
				ind.ips[m] = struct{}{}
			}
		}
		for _, m := range ipv6Pattern.FindAllString(s, -1) {
			if net.ParseIP(m) != nil {
				ind.ips[m] = struct{}{}
			}
		}
		for _, m := range fqdnPattern.FindAllString(s, -1) {
			if net.ParseIP(m) == nil {
				ind.hostnames[m] = struct{}{}
			}
		}
		for _, m := range hashPattern.FindAllString(s, -1) {
			ind.hashes[m] = struct{}{}
		}
	})

	return ind
}

// walkStrings visits every string found anywhere in v, recursing through
// maps and slices produced by JSON decoding (map[string]any / []any).
func walkStrings(v any, visit func(string)) {
	switch val := v.(type) {
	case string:
		visit(val)
	case map[string]any:
		for _, item := range val {
			walkStrings(item, visit)
		}
	case []any:
		for _, item := range val {
			walkStrings(item, visit)
		}
	}
}

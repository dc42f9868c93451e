package enrich

import (
	"testing"

	"github.com/sentrywatch/siemcore/internal/model"
)

func TestExtractIndicatorsFindsAllThreeKinds(t *testing.T) {
	ev := &model.Event{
		Source: "fw1", EventType: "traffic",
		Data: map[string]any{
			"src_ip":  "10.1.2.3",
			"message": "connection to 8.8.8.8 resolved from example.com, sha256 5d41402abc4b2a76b9719d911017c592",
			"nested":  map[string]any{"dest": "203.0.113.5"},
		},
	}

	ind := extractIndicators(ev)

	if _, ok := ind.ips["10.1.2.3"]; !ok {
		t.Error("missing top-level IP 10.1.2.3")
	}
	if _, ok := ind.ips["8.8.8.8"]; !ok {
		t.Error("missing IP 8.8.8.8 from message text")
	}
	if _, ok := ind.ips["203.0.113.5"]; !ok {
		t.Error("missing nested IP 203.0.113.5")
	}
	if _, ok := ind.hostnames["example.com"]; !ok {
		t.Error("missing hostname example.com")
	}
	if len(ind.hashes) != 1 {
		t.Errorf("hashes = %v, want exactly 1 match", ind.hashes)
	}
}

func TestExtractIndicatorsExcludesIPsFromHostnames(t *testing.T) {
	ev := &model.Event{Data: map[string]any{"a": "10.0.0.1"}}
	ind := extractIndicators(ev)
	if len(ind.hostnames) != 0 {
		t.Errorf("hostnames = %v, want empty (dotted IP must not match as FQDN)", ind.hostnames)
	}
}

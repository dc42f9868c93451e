// Package threatintel queries a configured threat-intelligence API for
// indicators (IPs, domains, file hashes) extracted from events.
package threatintel

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
)

// Result is the aggregated threat-intel overlay for a single indicator.
type Result struct {
	Score      float64
	Categories []string
	LastSeen   *time.Time
}

type providerResponse struct {
	Data struct {
		AbuseConfidenceScore float64    `json:"abuseConfidenceScore"`
		Categories           []string   `json:"categories"`
		LastReportedAt       *time.Time `json:"lastReportedAt"`
	} `json:"data"`
}

// Provider queries a single threat-intel HTTP API.
type Provider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	breaker *gobreaker.CircuitBreaker[*Result]
}

// New returns a Provider querying baseURL with apiKey in the API-Key
// header, guarded by a circuit breaker so a failing upstream stops
// being hammered once it trips.
func New(baseURL, apiKey string) *Provider {
	p := &Provider{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
	p.breaker = gobreaker.NewCircuitBreaker[*Result](gobreaker.Settings{
		Name:        "threatintel",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return p
}

// IsAvailable reports whether a base URL is configured.
func (p *Provider) IsAvailable() bool { return p.baseURL != "" }

// Query looks up a single indicator (IP, domain, or hash). The indicator
// type itself is opaque to the query: the configured API is expected to
// accept any of the three forms on the same endpoint shape.
func (p *Provider) Query(ctx context.Context, indicator string) (*Result, error) {
	if !p.IsAvailable() {
		return nil, fmt.Errorf("threatintel: no provider configured")
	}

	return p.breaker.Execute(func() (*Result, error) {
		return p.query(ctx, indicator)
	})
}

func (p *Provider) query(ctx context.Context, indicator string) (*Result, error) {
	url := fmt.Sprintf("%s?indicator=%s", p.baseURL, indicator)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("threatintel: build request: %w", err)
	}
	req.Header.Set("API-Key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("threatintel: query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("threatintel: status %d", resp.StatusCode)
	}

	var body providerResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("threatintel: decode response: %w", err)
	}

	return &Result{
		Score:      body.Data.AbuseConfidenceScore,
		Categories: body.Data.Categories,
		LastSeen:   body.Data.LastReportedAt,
	}, nil
}

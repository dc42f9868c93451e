package geoip

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// IPAPIProvider looks up geolocation via the free ip-api.com JSON API.
// No API key required; rate-limited to 45 requests/minute on the free tier.
type IPAPIProvider struct {
	client      *http.Client
	rateLimiter *rateLimiter
	baseURL     string
}

func NewIPAPIProvider() *IPAPIProvider {
	return &IPAPIProvider{
		client:      &http.Client{Timeout: 10 * time.Second},
		rateLimiter: newRateLimiter(45, time.Minute/45),
		baseURL:     "http://ip-api.com/json",
	}
}

func (p *IPAPIProvider) Name() string { return "ip-api.com" }

// IsAvailable is always true: ip-api.com requires no credentials.
func (p *IPAPIProvider) IsAvailable() bool { return true }

type ipAPIResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Country string  `json:"countryCode"`
	City    string  `json:"city"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

func (p *IPAPIProvider) Lookup(ctx context.Context, ipAddress string) (*Result, error) {
	if !p.rateLimiter.allow() {
		return nil, fmt.Errorf("ip-api.com: rate limit exceeded (45 req/min)")
	}

	url := fmt.Sprintf("%s/%s?fields=status,message,countryCode,city,lat,lon", p.baseURL, ipAddress)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("ip-api.com: build request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ip-api.com: query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ip-api.com: status %d", resp.StatusCode)
	}

	var body ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("ip-api.com: decode response: %w", err)
	}
	if body.Status != "success" {
		return nil, fmt.Errorf("ip-api.com: lookup failed: %s", body.Message)
	}

	return &Result{Country: body.Country, City: body.City, Lat: body.Lat, Lon: body.Lon}, nil
}

// rateLimiter is a simple token bucket, refilled on the configured rate.
type rateLimiter struct {
	mu         sync.Mutex
	tokens     int
	maxTokens  int
	refillRate time.Duration
	lastRefill time.Time
}

func newRateLimiter(maxTokens int, refillRate time.Duration) *rateLimiter {
	return &rateLimiter{tokens: maxTokens, maxTokens: maxTokens, refillRate: refillRate, lastRefill: time.Now()}
}

func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if add := int(now.Sub(r.lastRefill) / r.refillRate); add > 0 {
		r.tokens = min(r.maxTokens, r.tokens+add)
		r.lastRefill = now
	}
	if r.tokens > 0 {
		r.tokens--
		return true
	}
	return false
}

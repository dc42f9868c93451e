// Package geoip resolves IP addresses to coarse geolocation data via a
// chain of providers, fronted by a short-lived in-memory cache.
package geoip

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"
)

// Result is the geolocation overlay for a single IP address.
type Result struct {
	Country string
	City    string
	Lat     float64
	Lon     float64
	ASN     uint
}

// Provider looks up a single IP address against one geolocation backend.
type Provider interface {
	// Lookup returns geolocation data for ipAddress, or an error if the
	// lookup fails.
	Lookup(ctx context.Context, ipAddress string) (*Result, error)

	// Name identifies the provider in logs.
	Name() string

	// IsAvailable reports whether the provider is configured and usable.
	IsAvailable() bool
}

// localResult is returned for private/loopback addresses without
// consulting any provider.
var localResult = &Result{Country: "Local"}

// Resolver resolves IPs through an in-memory cache, falling back to
// providers in order until one succeeds.
type Resolver struct {
	providers []Provider
	cache     *ttlCache
}

// New returns a Resolver trying providers in order, caching successful
// provider lookups for ttl. Private addresses are not cached.
func New(ttl time.Duration, providers ...Provider) *Resolver {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Resolver{providers: providers, cache: newTTLCache(ttl)}
}

// Resolve returns geolocation for ipAddress. Private addresses resolve to
// a fixed "Local" result without consulting any provider; an unparseable
// address is an error.
func (r *Resolver) Resolve(ctx context.Context, ipAddress string) (*Result, error) {
	ip := net.ParseIP(ipAddress)
	if ip == nil {
		return nil, fmt.Errorf("geoip: invalid IP address %q", ipAddress)
	}
	if isPrivate(ip) {
		return localResult, nil
	}

	if cached, ok := r.cache.get(ipAddress); ok {
		return cached, nil
	}

	var lastErr error
	for _, p := range r.providers {
		if !p.IsAvailable() {
			continue
		}
		res, err := p.Lookup(ctx, ipAddress)
		if err != nil {
			lastErr = err
			continue
		}
		r.cache.put(ipAddress, res)
		return res, nil
	}
	if lastErr != nil {
		return nil, fmt.Errorf("geoip: all providers failed for %s: %w", ipAddress, lastErr)
	}
	return nil, fmt.Errorf("geoip: no providers available for %s", ipAddress)
}

var privateRanges = []string{
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"::1/128",
	"fc00::/7",
	"fe80::/10",
}

func isPrivate(ip net.IP) bool {
	for _, cidr := range privateRanges {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

type cacheEntry struct {
	result    *Result
	expiresAt time.Time
}

// ttlCache is a minimal expiring lookup cache, avoiding repeated provider
// round-trips for IPs seen across many events within ttl.
type ttlCache struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[string]cacheEntry
}

func newTTLCache(ttl time.Duration) *ttlCache {
	return &ttlCache{ttl: ttl, items: make(map[string]cacheEntry)}
}

func (c *ttlCache) get(key string) (*Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.items, key)
		return nil, false
	}
	return e.result, true
}

func (c *ttlCache) put(key string, res *Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = cacheEntry{result: res, expiresAt: time.Now().Add(c.ttl)}
}

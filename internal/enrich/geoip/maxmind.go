package geoip

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

// MaxMindProvider looks up geolocation via MaxMind's GeoLite2 web service
// (account ID + license key, Basic Auth). Free tier: 1,000 lookups/day.
type MaxMindProvider struct {
	client     *http.Client
	accountID  string
	licenseKey string
	baseURL    string
}

func NewMaxMindProvider(accountID, licenseKey string) *MaxMindProvider {
	return &MaxMindProvider{
		client:     &http.Client{Timeout: 10 * time.Second},
		accountID:  accountID,
		licenseKey: licenseKey,
		baseURL:    "https://geolite.info/geoip/v2.1/city",
	}
}

func (p *MaxMindProvider) Name() string { return "maxmind-geolite2" }

func (p *MaxMindProvider) IsAvailable() bool {
	return p.accountID != "" && p.licenseKey != ""
}

type maxMindResponse struct {
	City struct {
		Names map[string]string `json:"names"`
	} `json:"city"`
	Country struct {
		ISOCode string `json:"iso_code"`
	} `json:"country"`
	Location struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
	Traits struct {
		AutonomousSystemNumber uint `json:"autonomous_system_number"`
	} `json:"traits"`
}

type maxMindErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func (p *MaxMindProvider) Lookup(ctx context.Context, ipAddress string) (*Result, error) {
	url := fmt.Sprintf("%s/%s", p.baseURL, ipAddress)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("maxmind: build request: %w", err)
	}
	req.SetBasicAuth(p.accountID, p.licenseKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("maxmind: query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp maxMindErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
			return nil, fmt.Errorf("maxmind error (%s): %s", errResp.Code, errResp.Error)
		}
		return nil, fmt.Errorf("maxmind: status %d", resp.StatusCode)
	}

	var body maxMindResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("maxmind: decode response: %w", err)
	}

	return &Result{
		Country: body.Country.ISOCode,
		City:    body.City.Names["en"],
		Lat:     body.Location.Latitude,
		Lon:     body.Location.Longitude,
		ASN:     body.Traits.AutonomousSystemNumber,
	}, nil
}

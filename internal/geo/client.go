// Package geo resolves client IP addresses to country names through an
// external ipapi-style lookup service. Lookups are strictly best-effort:
// every failure mode collapses to the Unknown country and the redirect
// proceeds without geolocation.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/linkgate/linkgate/internal/metrics"
	"github.com/linkgate/linkgate/internal/model"
)

const (
	// DialTimeout is the connection timeout.
	DialTimeout = 2 * time.Second
	// TLSHandshakeTimeout is the TLS negotiation timeout.
	TLSHandshakeTimeout = 2 * time.Second
)

// Client queries the geolocation service.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewClient creates a geolocation client. timeout bounds the whole lookup;
// it sits on the redirect hot path, so keep it short.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger, recorder metrics.Recorder) *Client {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   DialTimeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: TLSHandshakeTimeout,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger:  logger,
		metrics: recorder,
	}
}

// lookupResponse is the subset of the ipapi response body we read.
type lookupResponse struct {
	CountryName string `json:"country_name"`
	Country     string `json:"country"`
}

// Country resolves an IP to a country name. It never returns an error:
// unknown input, network failures, non-200 responses, and bodies without a
// country all degrade to model.CountryUnknown. One attempt, no retries.
func (c *Client) Country(ctx context.Context, ip string) string {
	if !lookupable(ip) {
		c.metrics.IncGeoLookup("skipped")
		return model.CountryUnknown
	}

	url := fmt.Sprintf("%s/%s/json/", c.baseURL, ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.metrics.IncGeoLookup("failed")
		return model.CountryUnknown
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Linkgate/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		c.fail("geo lookup request failed", err, ip)
		return model.CountryUnknown
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.fail("geo lookup returned non-200", fmt.Errorf("status %d", resp.StatusCode), ip)
		return model.CountryUnknown
	}

	var body lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.fail("geo lookup body unreadable", err, ip)
		return model.CountryUnknown
	}

	country := body.CountryName
	if country == "" {
		country = body.Country
	}
	if country == "" {
		c.metrics.IncGeoLookup("failed")
		return model.CountryUnknown
	}

	c.metrics.IncGeoLookup("success")
	return country
}

func (c *Client) fail(msg string, err error, ip string) {
	c.metrics.IncGeoLookup("failed")
	if c.logger != nil {
		c.logger.Debug(msg, "error", err, "ip", ip)
	}
}

// lookupable reports whether an IP is worth sending to the lookup service.
// The unknown sentinel, unparsable addresses, and private or loopback
// ranges only waste a round trip.
func lookupable(ip string) bool {
	if ip == "" || ip == model.IPUnknown {
		return false
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}

	if parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() || parsed.IsLinkLocalUnicast() {
		return false
	}

	return true
}

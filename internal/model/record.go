// Package model defines domain entities for the application.
package model

import (
	"encoding/json"
	"strconv"
	"time"
)

// LinkRecord is a routed result entry in the link registry. The lid is the
// public, stable identifier used in /lid/{lid} redirect URLs; it is assigned
// monotonically by the admin API and never reused.
type LinkRecord struct {
	Lid              int64     `json:"lid"`
	SiteName         string    `json:"site_name"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	LogoURL          string    `json:"logo_url,omitempty"`
	DestinationURL   string    `json:"destination_url"`
	FallbackURL      string    `json:"fallback_url,omitempty"` // empty = no fallback configured
	IsWorldwide      bool      `json:"is_worldwide"`
	AllowedCountries []string  `json:"allowed_countries,omitempty"`
	IsSponsored      bool      `json:"is_sponsored"`
	GroupPage        string    `json:"group_page"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Allows reports whether a visitor from the given country may be sent to the
// destination URL. Worldwide records allow everyone; otherwise the allow-list
// is consulted with exact, case-sensitive matching (no normalization).
func (r *LinkRecord) Allows(country string) bool {
	if r.IsWorldwide {
		return true
	}
	for _, c := range r.AllowedCountries {
		if c == country {
			return true
		}
	}
	return false
}

// HasFallback reports whether a fallback URL is configured for denied visitors.
func (r *LinkRecord) HasFallback() bool {
	return r.FallbackURL != ""
}

// Reachable reports whether some visitor can ever leave this record on a
// configured URL. A non-worldwide record with an empty allow-list and no
// fallback strands every visitor on the site root; the admin API rejects it.
func (r *LinkRecord) Reachable() bool {
	if r.IsWorldwide || len(r.AllowedCountries) > 0 {
		return true
	}
	return r.HasFallback()
}

// CachedRecord represents link record data stored in Redis.
// Uses string types for Redis hash compatibility.
type CachedRecord struct {
	SiteName    string `redis:"site_name"`
	Title       string `redis:"title"`
	Destination string `redis:"destination"`
	Fallback    string `redis:"fallback"`  // empty when none configured
	Worldwide   string `redis:"worldwide"` // "1" or "0"
	Countries   string `redis:"countries"` // JSON array of country names
	Sponsored   string `redis:"sponsored"` // "1" or "0"
	GroupPage   string `redis:"group_page"`
	UpdatedAt   string `redis:"updated_at"` // Unix timestamp
}

// ToRecord converts CachedRecord to the LinkRecord domain model.
func (c *CachedRecord) ToRecord(lid int64) *LinkRecord {
	record := &LinkRecord{
		Lid:            lid,
		SiteName:       c.SiteName,
		Title:          c.Title,
		DestinationURL: c.Destination,
		FallbackURL:    c.Fallback,
		IsWorldwide:    c.Worldwide == "1",
		IsSponsored:    c.Sponsored == "1",
		GroupPage:      c.GroupPage,
	}

	if c.Countries != "" {
		// Corrupt entries degrade to an empty allow-list; the decision
		// engine then routes through the fallback path.
		_ = json.Unmarshal([]byte(c.Countries), &record.AllowedCountries)
	}

	if c.UpdatedAt != "" {
		if ts, err := strconv.ParseInt(c.UpdatedAt, 10, 64); err == nil {
			record.UpdatedAt = time.Unix(ts, 0)
		}
	}

	return record
}

// ToCachedRecord converts a LinkRecord to its Redis representation.
func (r *LinkRecord) ToCachedRecord() *CachedRecord {
	cached := &CachedRecord{
		SiteName:    r.SiteName,
		Title:       r.Title,
		Destination: r.DestinationURL,
		Fallback:    r.FallbackURL,
		Worldwide:   boolToString(r.IsWorldwide),
		Sponsored:   boolToString(r.IsSponsored),
		GroupPage:   r.GroupPage,
		UpdatedAt:   strconv.FormatInt(r.UpdatedAt.Unix(), 10),
	}

	if len(r.AllowedCountries) > 0 {
		if data, err := json.Marshal(r.AllowedCountries); err == nil {
			cached.Countries = string(data)
		}
	}

	return cached
}

// boolToString converts boolean to "1" or "0".
func boolToString(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

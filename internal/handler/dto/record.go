// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"fmt"
	"strings"
	"time"

	"github.com/linkgate/linkgate/internal/model"
)

// RedirectURL builds the public /lid/{lid} URL for a record.
func RedirectURL(baseURL string, lid int64) string {
	return fmt.Sprintf("%s/lid/%d", strings.TrimSuffix(baseURL, "/"), lid)
}

// CreateRecordRequest represents the request body for creating a link record.
// A zero or absent lid asks the registry to assign the next free one.
type CreateRecordRequest struct {
	Lid              int64    `json:"lid,omitempty"`
	SiteName         string   `json:"site_name"`
	Title            string   `json:"title"`
	Description      string   `json:"description,omitempty"`
	LogoURL          string   `json:"logo_url,omitempty"`
	DestinationURL   string   `json:"destination_url"`
	FallbackURL      string   `json:"fallback_url,omitempty"`
	IsWorldwide      bool     `json:"is_worldwide"`
	AllowedCountries []string `json:"allowed_countries,omitempty"`
	IsSponsored      bool     `json:"is_sponsored"`
	GroupPage        string   `json:"group_page,omitempty"`
}

// UpdateRecordRequest represents the request body for updating a record.
// Absent fields keep their current value; an explicit empty fallback_url
// clears the fallback.
type UpdateRecordRequest struct {
	SiteName         *string   `json:"site_name,omitempty"`
	Title            *string   `json:"title,omitempty"`
	Description      *string   `json:"description,omitempty"`
	LogoURL          *string   `json:"logo_url,omitempty"`
	DestinationURL   *string   `json:"destination_url,omitempty"`
	FallbackURL      *string   `json:"fallback_url,omitempty"`
	IsWorldwide      *bool     `json:"is_worldwide,omitempty"`
	AllowedCountries *[]string `json:"allowed_countries,omitempty"`
	IsSponsored      *bool     `json:"is_sponsored,omitempty"`
	GroupPage        *string   `json:"group_page,omitempty"`
}

// RecordResponse represents a link record in API responses.
type RecordResponse struct {
	Lid              int64     `json:"lid"`
	SiteName         string    `json:"site_name"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	LogoURL          string    `json:"logo_url,omitempty"`
	DestinationURL   string    `json:"destination_url"`
	FallbackURL      string    `json:"fallback_url,omitempty"`
	IsWorldwide      bool      `json:"is_worldwide"`
	AllowedCountries []string  `json:"allowed_countries,omitempty"`
	IsSponsored      bool      `json:"is_sponsored"`
	GroupPage        string    `json:"group_page"`
	RedirectURL      string    `json:"redirect_url"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// RecordListResponse represents a list of records.
type RecordListResponse struct {
	Data  []RecordResponse `json:"data"`
	Total int              `json:"total"`
}

// ResultEntry is the public projection of a record on a results page.
// Routing policy fields are not exposed.
type ResultEntry struct {
	Lid         int64  `json:"lid"`
	SiteName    string `json:"site_name"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	LogoURL     string `json:"logo_url,omitempty"`
	IsSponsored bool   `json:"is_sponsored"`
	RedirectURL string `json:"redirect_url"`
}

// ResultsResponse represents the public listing for one group page.
type ResultsResponse struct {
	Page    string        `json:"page"`
	Results []ResultEntry `json:"results"`
	Total   int           `json:"total"`
}

// SessionListResponse represents the admin session listing.
type SessionListResponse struct {
	Data  []*model.Session `json:"data"`
	Total int              `json:"total"`
}

// ClickListResponse represents the admin click log listing.
type ClickListResponse struct {
	Data  []*model.ClickLog `json:"data"`
	Total int               `json:"total"`
}

// PurgeResponse reports how many rows a purge removed.
type PurgeResponse struct {
	Purged int64 `json:"purged"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ToRecordResponse converts a LinkRecord to RecordResponse. baseURL is the
// public origin the /lid/{lid} redirect URLs hang off.
func ToRecordResponse(record *model.LinkRecord, baseURL string) *RecordResponse {
	return &RecordResponse{
		Lid:              record.Lid,
		SiteName:         record.SiteName,
		Title:            record.Title,
		Description:      record.Description,
		LogoURL:          record.LogoURL,
		DestinationURL:   record.DestinationURL,
		FallbackURL:      record.FallbackURL,
		IsWorldwide:      record.IsWorldwide,
		AllowedCountries: record.AllowedCountries,
		IsSponsored:      record.IsSponsored,
		GroupPage:        record.GroupPage,
		RedirectURL:      RedirectURL(baseURL, record.Lid),
		CreatedAt:        record.CreatedAt,
		UpdatedAt:        record.UpdatedAt,
	}
}

// ToRecordListResponse converts a slice of records to a list response.
func ToRecordListResponse(records []*model.LinkRecord, baseURL string) *RecordListResponse {
	responses := make([]RecordResponse, len(records))
	for i, record := range records {
		responses[i] = *ToRecordResponse(record, baseURL)
	}
	return &RecordListResponse{
		Data:  responses,
		Total: len(responses),
	}
}

// ToResultsResponse converts page records to the public results projection.
func ToResultsResponse(page string, records []*model.LinkRecord, baseURL string) *ResultsResponse {
	entries := make([]ResultEntry, len(records))
	for i, record := range records {
		entries[i] = ResultEntry{
			Lid:         record.Lid,
			SiteName:    record.SiteName,
			Title:       record.Title,
			Description: record.Description,
			LogoURL:     record.LogoURL,
			IsSponsored: record.IsSponsored,
			RedirectURL: RedirectURL(baseURL, record.Lid),
		}
	}
	return &ResultsResponse{
		Page:    page,
		Results: entries,
		Total:   len(entries),
	}
}

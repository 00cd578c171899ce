package engine

import (
	"testing"

	"github.com/linkgate/linkgate/internal/model"
)

const siteRoot = "https://links.example.com/"

func geoRecord(countries []string, fallback string) *model.LinkRecord {
	return &model.LinkRecord{
		Lid:              7,
		DestinationURL:   "https://dest.example.com/offer",
		FallbackURL:      fallback,
		AllowedCountries: countries,
	}
}

func TestDecide(t *testing.T) {
	t.Parallel()

	worldwide := &model.LinkRecord{
		Lid:            1,
		DestinationURL: "https://dest.example.com/everyone",
		IsWorldwide:    true,
	}

	tests := []struct {
		name        string
		record      *model.LinkRecord
		country     string
		wantTarget  string
		wantOutcome Outcome
	}{
		{
			name:        "unknown lid routes to site root",
			record:      nil,
			country:     "Germany",
			wantTarget:  siteRoot,
			wantOutcome: OutcomeRoot,
		},
		{
			name:        "worldwide allows any country",
			record:      worldwide,
			country:     "Japan",
			wantTarget:  "https://dest.example.com/everyone",
			wantOutcome: OutcomeDirect,
		},
		{
			name:        "worldwide allows unknown country",
			record:      worldwide,
			country:     model.CountryUnknown,
			wantTarget:  "https://dest.example.com/everyone",
			wantOutcome: OutcomeDirect,
		},
		{
			name:        "allowed country goes direct",
			record:      geoRecord([]string{"Germany", "France"}, "https://fallback.example.com"),
			country:     "Germany",
			wantTarget:  "https://dest.example.com/offer",
			wantOutcome: OutcomeDirect,
		},
		{
			name:        "denied country uses fallback",
			record:      geoRecord([]string{"Germany"}, "https://fallback.example.com"),
			country:     "Italy",
			wantTarget:  "https://fallback.example.com",
			wantOutcome: OutcomeFallback,
		},
		{
			name:        "denied country without fallback goes to root",
			record:      geoRecord([]string{"Germany"}, ""),
			country:     "Italy",
			wantTarget:  siteRoot,
			wantOutcome: OutcomeRoot,
		},
		{
			name:        "country match is case sensitive",
			record:      geoRecord([]string{"Germany"}, "https://fallback.example.com"),
			country:     "germany",
			wantTarget:  "https://fallback.example.com",
			wantOutcome: OutcomeFallback,
		},
		{
			name:        "unknown country is denied on restricted records",
			record:      geoRecord([]string{"Germany"}, "https://fallback.example.com"),
			country:     model.CountryUnknown,
			wantTarget:  "https://fallback.example.com",
			wantOutcome: OutcomeFallback,
		},
		{
			name:        "empty allow list denies everyone",
			record:      geoRecord(nil, "https://fallback.example.com"),
			country:     "Germany",
			wantTarget:  "https://fallback.example.com",
			wantOutcome: OutcomeFallback,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			decision := Decide(tt.record, tt.country, siteRoot)
			if decision.Target != tt.wantTarget {
				t.Errorf("Target = %q, want %q", decision.Target, tt.wantTarget)
			}
			if decision.Outcome != tt.wantOutcome {
				t.Errorf("Outcome = %q, want %q", decision.Outcome, tt.wantOutcome)
			}
		})
	}
}

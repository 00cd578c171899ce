package visitor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/linkgate/linkgate/internal/model"
)

func TestClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{
			name:    "single forwarded",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.7"},
			want:    "203.0.113.7",
		},
		{
			name:    "forwarded chain takes first",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1, 172.16.0.1"},
			want:    "203.0.113.7",
		},
		{
			name:    "forwarded chain with spaces",
			headers: map[string]string{"X-Forwarded-For": " 203.0.113.7 , 10.0.0.1"},
			want:    "203.0.113.7",
		},
		{
			name:    "real ip fallback",
			headers: map[string]string{"X-Real-IP": "198.51.100.3"},
			want:    "198.51.100.3",
		},
		{
			name: "forwarded wins over real ip",
			headers: map[string]string{
				"X-Forwarded-For": "203.0.113.7",
				"X-Real-IP":       "198.51.100.3",
			},
			want: "203.0.113.7",
		},
		{
			name:    "no headers",
			headers: nil,
			want:    model.IPUnknown,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/lid/7", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			if got := ClientIP(req); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassifyDevice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		userAgent string
		want      model.Device
	}{
		{"desktop chrome", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 Chrome/120.0", model.DeviceDesktop},
		{"desktop firefox", "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:120.0) Gecko/20100101 Firefox/120.0", model.DeviceDesktop},
		{"android phone", "Mozilla/5.0 (Linux; Android 13; Pixel 7) Mobile Safari/537.36", model.DeviceMobile},
		{"iphone", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)", model.DeviceMobile},
		{"ipad", "Mozilla/5.0 (iPad; CPU OS 16_0 like Mac OS X)", model.DeviceMobile},
		{"ipod", "Mozilla/5.0 (iPod touch; CPU iPhone OS 15_0)", model.DeviceMobile},
		{"uppercase marker", "SOMETHING MOBILE BROWSER", model.DeviceMobile},
		{"empty", "", model.DeviceDesktop},
		{"bot", "curl/8.0.1", model.DeviceDesktop},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := ClassifyDevice(tt.userAgent); got != tt.want {
				t.Errorf("ClassifyDevice(%q) = %q, want %q", tt.userAgent, got, tt.want)
			}
		})
	}
}

func TestClassifySource(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		referer string
		want    model.Source
	}{
		{"google search", "https://www.google.com/search?q=things", model.SourceGoogle},
		{"google country domain", "https://www.google.de/", model.SourceGoogle},
		{"facebook", "https://www.facebook.com/groups/12345", model.SourceFacebook},
		{"facebook mobile", "https://m.facebook.com/", model.SourceFacebook},
		{"twitter", "https://twitter.com/someone/status/1", model.SourceTwitter},
		{"t.co shortener", "https://t.co/abc123", model.SourceTwitter},
		{"linkedin", "https://www.linkedin.com/feed/", model.SourceLinkedIn},
		{"other site", "https://news.ycombinator.com/item?id=1", model.SourceReferral},
		{"empty is direct", "", model.SourceDirect},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := ClassifySource(tt.referer); got != tt.want {
				t.Errorf("ClassifySource(%q) = %q, want %q", tt.referer, got, tt.want)
			}
		})
	}
}

// staticGeo returns a fixed country for any IP.
type staticGeo string

func (s staticGeo) Country(ctx context.Context, ip string) string { return string(s) }

func TestResolve(t *testing.T) {
	t.Parallel()

	resolver := NewResolver(staticGeo("Germany"))

	req := httptest.NewRequest(http.MethodGet, "/lid/7", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	req.Header.Set("Referer", "https://www.google.com/")
	req.Header.Set("User-Agent", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0)")

	got := resolver.Resolve(context.Background(), req)

	want := model.VisitorContext{
		IPAddress: "203.0.113.7",
		Country:   "Germany",
		Source:    model.SourceGoogle,
		Device:    model.DeviceMobile,
		UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0)",
	}

	if got != want {
		t.Errorf("Resolve() = %+v, want %+v", got, want)
	}
}

func TestResolve_NilGeo(t *testing.T) {
	t.Parallel()

	resolver := NewResolver(nil)
	req := httptest.NewRequest(http.MethodGet, "/lid/7", nil)

	got := resolver.Resolve(context.Background(), req)

	if got.Country != model.CountryUnknown {
		t.Errorf("Country = %q, want %q", got.Country, model.CountryUnknown)
	}
	if got.IPAddress != model.IPUnknown {
		t.Errorf("IPAddress = %q, want %q", got.IPAddress, model.IPUnknown)
	}
	if got.Source != model.SourceDirect {
		t.Errorf("Source = %q, want %q", got.Source, model.SourceDirect)
	}
}

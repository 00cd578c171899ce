// Package visitor derives a VisitorContext from an inbound HTTP request:
// client IP, country, traffic source, and device class.
package visitor

import (
	"context"
	"net/http"
	"strings"

	"github.com/linkgate/linkgate/internal/model"
)

// CountryResolver maps an IP to a country name. Implementations never
// fail; they return the Unknown sentinel instead.
type CountryResolver interface {
	Country(ctx context.Context, ip string) string
}

// Resolver builds visitor contexts for inbound requests.
type Resolver struct {
	geo CountryResolver
}

// NewResolver creates a Resolver. geo may be nil, in which case every
// visitor gets the Unknown country.
func NewResolver(geo CountryResolver) *Resolver {
	return &Resolver{geo: geo}
}

// Resolve derives the full visitor context for a request, including the
// geolocation round trip.
func (r *Resolver) Resolve(ctx context.Context, req *http.Request) model.VisitorContext {
	ip := ClientIP(req)

	country := model.CountryUnknown
	if r.geo != nil {
		country = r.geo.Country(ctx, ip)
	}

	userAgent := req.UserAgent()

	return model.VisitorContext{
		IPAddress: ip,
		Country:   country,
		Source:    ClassifySource(req.Referer()),
		Device:    ClassifyDevice(userAgent),
		UserAgent: userAgent,
	}
}

// ClientIP extracts the client address: the first X-Forwarded-For entry,
// then X-Real-IP, then the unknown sentinel. RemoteAddr is deliberately
// not consulted; behind the expected proxy setup it only names the proxy.
func ClientIP(req *http.Request) string {
	if forwarded := req.Header.Get("X-Forwarded-For"); forwarded != "" {
		first := forwarded
		if idx := strings.Index(forwarded, ","); idx >= 0 {
			first = forwarded[:idx]
		}
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if realIP := strings.TrimSpace(req.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	return model.IPUnknown
}

// mobileMarkers are the User-Agent substrings that classify a visitor as
// mobile. Matching is case-insensitive; anything else is Desktop.
var mobileMarkers = []string{"mobile", "android", "iphone", "ipad", "ipod"}

// ClassifyDevice buckets a User-Agent into Mobile or Desktop.
func ClassifyDevice(userAgent string) model.Device {
	ua := strings.ToLower(userAgent)
	for _, marker := range mobileMarkers {
		if strings.Contains(ua, marker) {
			return model.DeviceMobile
		}
	}
	return model.DeviceDesktop
}

// ClassifySource buckets a Referer into a traffic source. Known platforms
// are matched by substring; any other non-empty referrer is Referral and
// an absent one is direct.
func ClassifySource(referer string) model.Source {
	if referer == "" {
		return model.SourceDirect
	}

	ref := strings.ToLower(referer)
	switch {
	case strings.Contains(ref, "google"):
		return model.SourceGoogle
	case strings.Contains(ref, "facebook"):
		return model.SourceFacebook
	case strings.Contains(ref, "twitter"), strings.Contains(ref, "t.co"):
		return model.SourceTwitter
	case strings.Contains(ref, "linkedin"):
		return model.SourceLinkedIn
	default:
		return model.SourceReferral
	}
}

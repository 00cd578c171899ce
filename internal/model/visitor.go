// Package model defines domain entities for the application.
package model

// Device is the coarse device class derived from the User-Agent.
type Device string

const (
	DeviceMobile  Device = "Mobile"
	DeviceDesktop Device = "Desktop"
)

// Source is the traffic source derived from the Referer header.
type Source string

const (
	SourceGoogle   Source = "Google"
	SourceFacebook Source = "Facebook"
	SourceTwitter  Source = "Twitter"
	SourceLinkedIn Source = "LinkedIn"
	SourceReferral Source = "Referral"
	SourceDirect   Source = "direct"
)

// CountryUnknown is the sentinel country when geolocation is unavailable.
const CountryUnknown = "Unknown"

// IPUnknown is the sentinel when no client IP could be extracted.
const IPUnknown = "unknown"

// VisitorContext describes one inbound visitor. It is derived fresh per
// request and never stored directly; sessions and click logs carry copies.
type VisitorContext struct {
	IPAddress string `json:"ip_address"`
	Country   string `json:"country"`
	Source    Source `json:"source"`
	Device    Device `json:"device"`
	UserAgent string `json:"user_agent"`
}

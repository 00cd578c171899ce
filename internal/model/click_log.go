// Package model defines domain entities for the application.
package model

import "time"

// ClickLog is one dispatched redirect, append-only once written.
// Link holds the URL the visitor was actually sent to after geo policy,
// which may be the fallback rather than the destination.
type ClickLog struct {
	ID      string `json:"id"`       // ULID (time-sortable)
	EventID string `json:"event_id"` // Idempotency key (Redis stream ID)

	SessionID string `json:"session_id"` // Not enforced against sessions; may precede the row
	Lid       int64  `json:"lid"`
	Link      string `json:"link"` // Resolved target, post-policy

	// Elapsed time since session start at click time, clamped to >= 0.
	TimeSpentMs int64 `json:"time_spent_ms"`

	// Visitor context captured at click time.
	IPAddress string `json:"ip_address"`
	Country   string `json:"country"`
	Source    Source `json:"source"`
	Device    Device `json:"device"`
	UserAgent string `json:"user_agent"`

	ClickTime time.Time `json:"click_time"`
	CreatedAt time.Time `json:"created_at"` // DB insertion time
}

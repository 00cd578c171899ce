// Package model defines domain entities for the application.
package model

import "time"

// Session is the durable aggregate of one browsing session, keyed by the
// opaque client-generated token. The context fields capture the first
// request seen for the session and are never overwritten afterwards.
type Session struct {
	SessionID   string    `json:"session_id"`
	IPAddress   string    `json:"ip_address"`
	Country     string    `json:"country"`
	Source      Source    `json:"source"`
	Device      Device    `json:"device"`
	UserAgent   string    `json:"user_agent"`
	PageViews   int64     `json:"page_views"`
	TotalClicks int64     `json:"total_clicks"`
	FirstVisit  time.Time `json:"first_visit"`
	LastActive  time.Time `json:"last_active"`
}

// PageView is a single page-view observation flowing through the tracking
// stream. The ledger folds it into the owning Session row.
type PageView struct {
	SessionID string         `json:"session_id"`
	Context   VisitorContext `json:"context"`
	ViewedAt  time.Time      `json:"viewed_at"`
}

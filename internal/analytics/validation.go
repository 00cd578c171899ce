// Package analytics captures tracking events (clicks and page views) and
// applies them to the Postgres ledger through a Redis stream outbox.
package analytics

import (
	"fmt"
	"strings"
)

const (
	maxSessionIDLength = 100
	maxMetaLength      = 500
	sessionIDPrefix    = "session_"
)

// ValidateTrackingEventPayload validates tracking event payload fields.
func ValidateTrackingEventPayload(payload TrackingEventPayload) error {
	switch payload.Kind {
	case KindClick, KindPageView:
	default:
		return fmt.Errorf("unknown event kind %q", payload.Kind)
	}

	if payload.SessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	if !strings.HasPrefix(payload.SessionID, sessionIDPrefix) {
		return fmt.Errorf("session_id must start with %q", sessionIDPrefix)
	}
	if len(payload.SessionID) > maxSessionIDLength {
		return fmt.Errorf("session_id too long")
	}

	if payload.OccurredAt <= 0 {
		return fmt.Errorf("occurred_at must be set")
	}

	if len(payload.UserAgent) > maxMetaLength {
		return fmt.Errorf("user_agent too long")
	}

	if payload.Kind == KindClick {
		if payload.Lid <= 0 {
			return fmt.Errorf("lid must be positive for clicks")
		}
		if payload.Link == "" {
			return fmt.Errorf("link is required for clicks")
		}
		if payload.TimeSpent < 0 {
			return fmt.Errorf("time_spent must not be negative")
		}
	}

	return nil
}

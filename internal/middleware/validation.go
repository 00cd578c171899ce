// Package middleware provides HTTP middleware for the Linkgate API.
package middleware

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// Validation limits.
const (
	// MaxLidDigits bounds the decimal representation of a link ID.
	MaxLidDigits = 18

	// MaxGroupPageLength is the maximum length for a group page key.
	MaxGroupPageLength = 64

	// MaxDestinationURLLength is the maximum length for destination URLs.
	MaxDestinationURLLength = 2048
)

// Validation errors.
var (
	ErrInvalidLid         = errors.New("link ID must be a positive integer")
	ErrGroupPageTooLong   = errors.New("group page exceeds maximum length")
	ErrGroupPageInvalid   = errors.New("group page contains invalid characters")
	ErrGroupPageReserved  = errors.New("group page is reserved")
	ErrDestinationTooLong = errors.New("destination URL exceeds maximum length")
	ErrDestinationInvalid = errors.New("destination URL is invalid")
	ErrDestinationUnsafe  = errors.New("destination URL uses unsafe scheme")
)

// ReservedPages contains group page keys that cannot be used.
// These are reserved for system routes and common paths.
var ReservedPages = map[string]bool{
	// System routes
	"api":     true,
	"admin":   true,
	"lid":     true,
	"healthz": true,
	"readyz":  true,
	"metrics": true,
	"static":  true,
	"assets":  true,

	// Brand protection
	"linkgate": true,

	// Common file extensions
	"robots":     true,
	"sitemap":    true,
	"favicon":    true,
	"well-known": true,
}

// validGroupPagePattern matches valid group page characters.
// Allowed: a-z, A-Z, 0-9, hyphen, underscore
var validGroupPagePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ParseLid parses a path segment as a link ID.
// Rejects non-numeric, zero, negative, and absurdly long values.
func ParseLid(s string) (int64, error) {
	if s == "" || len(s) > MaxLidDigits {
		return 0, ErrInvalidLid
	}
	// ParseInt tolerates a leading sign; path segments must be bare digits.
	if s[0] < '0' || s[0] > '9' {
		return 0, ErrInvalidLid
	}
	lid, err := strconv.ParseInt(s, 10, 64)
	if err != nil || lid <= 0 {
		return 0, ErrInvalidLid
	}
	return lid, nil
}

// ValidateGroupPage validates a group page key from a request path or body.
func ValidateGroupPage(page string) error {
	if page == "" {
		return nil // Empty is valid (record belongs to no page)
	}

	if len(page) > MaxGroupPageLength {
		return ErrGroupPageTooLong
	}

	if !validGroupPagePattern.MatchString(page) {
		return ErrGroupPageInvalid
	}

	// Check reserved pages (case-insensitive)
	if ReservedPages[strings.ToLower(page)] {
		return ErrGroupPageReserved
	}

	return nil
}

// ValidateDestinationURL validates a destination URL at the HTTP boundary.
// The registry service performs full parsing; this catches cheap rejects early.
func ValidateDestinationURL(url string) error {
	if len(url) > MaxDestinationURLLength {
		return ErrDestinationTooLong
	}

	// Basic scheme validation
	lowerURL := strings.ToLower(url)
	if !strings.HasPrefix(lowerURL, "http://") && !strings.HasPrefix(lowerURL, "https://") {
		return ErrDestinationInvalid
	}

	// Block dangerous schemes (in case of URL encoding tricks)
	forbiddenSchemes := []string{"javascript:", "data:", "vbscript:", "file:"}
	for _, scheme := range forbiddenSchemes {
		if strings.Contains(lowerURL, scheme) {
			return ErrDestinationUnsafe
		}
	}

	return nil
}

// Package session assigns browser-session identities to visitors via
// cookies. Tokens are opaque and carry their creation time, which is the
// basis for the time-spent measure on click events.
package session

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"time"
)

// Cookie names. Both are browser-session cookies: no Max-Age, so the
// identity ends when the browser closes.
const (
	TokenCookie = "lg_session"
	StartCookie = "lg_session_start"
)

const (
	tokenSuffixLength   = 9
	tokenSuffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// Context identifies one visitor session.
type Context struct {
	ID        string
	StartedAt time.Time
	New       bool // true when this request created the session
}

// Manager issues and reads session cookies.
type Manager struct {
	secure bool
}

// NewManager creates a Manager. secure controls the cookie Secure flag
// and should be on everywhere except local development.
func NewManager(secure bool) *Manager {
	return &Manager{secure: secure}
}

// GetOrCreate returns the request's session, minting a new one (and
// setting both cookies) when none exists.
func (m *Manager) GetOrCreate(w http.ResponseWriter, r *http.Request, now time.Time) Context {
	if cookie, err := r.Cookie(TokenCookie); err == nil && cookie.Value != "" {
		return Context{
			ID:        cookie.Value,
			StartedAt: m.startedAt(r, now),
		}
	}

	sess := Context{
		ID:        NewToken(now),
		StartedAt: now,
		New:       true,
	}

	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     StartCookie,
		Value:    strconv.FormatInt(now.UnixMilli(), 10),
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})

	return sess
}

// startedAt reads the start cookie, falling back to now for missing or
// mangled values.
func (m *Manager) startedAt(r *http.Request, now time.Time) time.Time {
	cookie, err := r.Cookie(StartCookie)
	if err != nil || cookie.Value == "" {
		return now
	}

	millis, err := strconv.ParseInt(cookie.Value, 10, 64)
	if err != nil || millis <= 0 {
		return now
	}

	return time.UnixMilli(millis)
}

// TimeSpentMs returns the milliseconds between session start and now,
// clamped at zero against clock skew and tampered cookies.
func TimeSpentMs(sess Context, now time.Time) int64 {
	spent := now.Sub(sess.StartedAt).Milliseconds()
	if spent < 0 {
		return 0
	}
	return spent
}

// NewToken mints a session token: session_<unixMillis>_<random suffix>.
func NewToken(now time.Time) string {
	return fmt.Sprintf("session_%d_%s", now.UnixMilli(), randomSuffix())
}

// randomSuffix draws tokenSuffixLength characters from crypto/rand.
func randomSuffix() string {
	b := make([]byte, tokenSuffixLength)
	max := big.NewInt(int64(len(tokenSuffixAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// Degrade to a fixed character; the millisecond prefix still
			// separates sessions.
			b[i] = '0'
			continue
		}
		b[i] = tokenSuffixAlphabet[n.Int64()]
	}
	return string(b)
}

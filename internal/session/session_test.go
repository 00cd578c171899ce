package session

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestGetOrCreate_NewSession(t *testing.T) {
	t.Parallel()

	m := NewManager(false)
	now := time.Now()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/lid/7", nil)

	sess := m.GetOrCreate(w, r, now)

	if !sess.New {
		t.Error("session should be marked new")
	}
	if !strings.HasPrefix(sess.ID, "session_") {
		t.Errorf("token %q missing session_ prefix", sess.ID)
	}
	if !sess.StartedAt.Equal(now) {
		t.Errorf("StartedAt = %v, want %v", sess.StartedAt, now)
	}

	cookies := w.Result().Cookies()
	var token, start *http.Cookie
	for _, c := range cookies {
		switch c.Name {
		case TokenCookie:
			token = c
		case StartCookie:
			start = c
		}
	}

	if token == nil {
		t.Fatal("token cookie not set")
	}
	if token.Value != sess.ID {
		t.Errorf("token cookie = %q, want %q", token.Value, sess.ID)
	}
	if !token.HttpOnly {
		t.Error("token cookie should be HttpOnly")
	}
	if token.MaxAge != 0 {
		t.Errorf("token cookie MaxAge = %d, want 0 (browser session)", token.MaxAge)
	}

	if start == nil {
		t.Fatal("start cookie not set")
	}
	if start.Value != strconv.FormatInt(now.UnixMilli(), 10) {
		t.Errorf("start cookie = %q, want %d", start.Value, now.UnixMilli())
	}
}

func TestGetOrCreate_ExistingSession(t *testing.T) {
	t.Parallel()

	m := NewManager(false)
	startedAt := time.Now().Add(-90 * time.Second)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/lid/7", nil)
	r.AddCookie(&http.Cookie{Name: TokenCookie, Value: "session_123_abcdefghi"})
	r.AddCookie(&http.Cookie{Name: StartCookie, Value: strconv.FormatInt(startedAt.UnixMilli(), 10)})

	sess := m.GetOrCreate(w, r, time.Now())

	if sess.New {
		t.Error("existing session should not be marked new")
	}
	if sess.ID != "session_123_abcdefghi" {
		t.Errorf("ID = %q, want cookie value", sess.ID)
	}
	if sess.StartedAt.UnixMilli() != startedAt.UnixMilli() {
		t.Errorf("StartedAt = %v, want %v", sess.StartedAt, startedAt)
	}

	if len(w.Result().Cookies()) != 0 {
		t.Error("existing session must not reset cookies")
	}
}

func TestGetOrCreate_MangledStartCookie(t *testing.T) {
	t.Parallel()

	m := NewManager(false)
	now := time.Now()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/lid/7", nil)
	r.AddCookie(&http.Cookie{Name: TokenCookie, Value: "session_123_abcdefghi"})
	r.AddCookie(&http.Cookie{Name: StartCookie, Value: "garbage"})

	sess := m.GetOrCreate(w, r, now)

	if !sess.StartedAt.Equal(now) {
		t.Errorf("mangled start cookie should fall back to now, got %v", sess.StartedAt)
	}
}

func TestTimeSpentMs(t *testing.T) {
	t.Parallel()

	now := time.Now()

	tests := []struct {
		name      string
		startedAt time.Time
		want      int64
	}{
		{"ninety seconds", now.Add(-90 * time.Second), 90000},
		{"zero", now, 0},
		{"future start clamps to zero", now.Add(30 * time.Second), 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sess := Context{ID: "session_1_a", StartedAt: tt.startedAt}
			if got := TimeSpentMs(sess, now); got != tt.want {
				t.Errorf("TimeSpentMs() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNewToken_Format(t *testing.T) {
	t.Parallel()

	now := time.UnixMilli(1700000000000)
	token := NewToken(now)

	parts := strings.Split(token, "_")
	if len(parts) != 3 {
		t.Fatalf("token %q should have 3 underscore-separated parts", token)
	}
	if parts[0] != "session" {
		t.Errorf("prefix = %q, want %q", parts[0], "session")
	}
	if parts[1] != "1700000000000" {
		t.Errorf("millis = %q, want 1700000000000", parts[1])
	}
	if len(parts[2]) != tokenSuffixLength {
		t.Errorf("suffix length = %d, want %d", len(parts[2]), tokenSuffixLength)
	}
}

func TestNewToken_Unique(t *testing.T) {
	t.Parallel()

	now := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token := NewToken(now)
		if seen[token] {
			t.Fatalf("duplicate token %q", token)
		}
		seen[token] = true
	}
}

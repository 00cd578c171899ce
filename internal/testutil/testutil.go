package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/linkgate/linkgate/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 420421

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// resetSchema replays the named migration pair against the pool.
func resetSchema(ctx context.Context, pool *pgxpool.Pool, name string) error {
	root, err := ProjectRoot()
	if err != nil {
		return err
	}

	downPath := filepath.Join(root, "migrations", name+".down.sql")
	upPath := filepath.Join(root, "migrations", name+".up.sql")

	downSQL, err := os.ReadFile(downPath)
	if err != nil {
		return fmt.Errorf("read down migration: %w", err)
	}
	if _, err := pool.Exec(ctx, string(downSQL)); err != nil {
		return fmt.Errorf("apply down migration: %w", err)
	}

	upSQL, err := os.ReadFile(upPath)
	if err != nil {
		return fmt.Errorf("read up migration: %w", err)
	}
	if _, err := pool.Exec(ctx, string(upSQL)); err != nil {
		return fmt.Errorf("apply up migration: %w", err)
	}

	return nil
}

// ResetAPIKeysSchema drops and recreates the api_keys schema for tests.
func ResetAPIKeysSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return resetSchema(ctx, pool, "000001_api_keys")
}

// ResetRegistrySchema drops and recreates the link_records schema for tests.
func ResetRegistrySchema(ctx context.Context, pool *pgxpool.Pool) error {
	return resetSchema(ctx, pool, "000002_link_records")
}

// ResetTrackingSchema drops and recreates the sessions and click_logs
// schema for tests.
func ResetTrackingSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return resetSchema(ctx, pool, "000003_tracking")
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ProjectRoot returns the project root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	return root, nil
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestRecord creates a worldwide test record with sensible defaults.
func NewTestRecord(t testing.TB, lid int64) *model.LinkRecord {
	t.Helper()
	now := time.Now().UTC()
	return &model.LinkRecord{
		Lid:            lid,
		SiteName:       fmt.Sprintf("Site %d", lid),
		Title:          fmt.Sprintf("Title %d", lid),
		Description:    "test record",
		LogoURL:        "https://cdn.example.com/logo.png",
		DestinationURL: fmt.Sprintf("https://dest.example.com/%d", lid),
		IsWorldwide:    true,
		GroupPage:      "default",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// NewTestGeoRecord creates a test record restricted to the given countries.
func NewTestGeoRecord(t testing.TB, lid int64, countries []string, fallback string) *model.LinkRecord {
	t.Helper()
	record := NewTestRecord(t, lid)
	record.IsWorldwide = false
	record.AllowedCountries = countries
	record.FallbackURL = fallback
	return record
}

// NewTestAPIKey creates a test API key with sensible defaults.
func NewTestAPIKey(t testing.TB) *model.APIKey {
	t.Helper()
	now := time.Now().UTC()
	return &model.APIKey{
		ID:            fmt.Sprintf("key-%d", now.UnixNano()),
		KeyHash:       fmt.Sprintf("hash-%d", now.UnixNano()),
		KeyPrefix:     "lg_test_",
		Scopes:        []string{model.ScopeRead, model.ScopeWrite},
		RateLimitTier: model.TierFree,
		Name:          "Test Key",
		CreatedAt:     now,
	}
}

// NewTestAPIKeyWithTier creates a test API key with a specific tier.
func NewTestAPIKeyWithTier(t testing.TB, tier string) *model.APIKey {
	t.Helper()
	key := NewTestAPIKey(t)
	key.RateLimitTier = tier
	return key
}

// NewTestClick creates a test click log row bound to a session.
func NewTestClick(t testing.TB, sessionID string, lid int64) *model.ClickLog {
	t.Helper()
	now := time.Now().UTC()
	return &model.ClickLog{
		ID:          UniqueID("click"),
		EventID:     UniqueID("evt"),
		SessionID:   sessionID,
		Lid:         lid,
		Link:        fmt.Sprintf("https://dest.example.com/%d", lid),
		TimeSpentMs: 1500,
		IPAddress:   "203.0.113.7",
		Country:     "Germany",
		Source:      model.SourceGoogle,
		Device:      model.DeviceDesktop,
		UserAgent:   "Mozilla/5.0 (X11; Linux x86_64)",
		ClickTime:   now,
		CreatedAt:   now,
	}
}

// NewTestPageView creates a test page view bound to a session.
func NewTestPageView(t testing.TB, sessionID string) *model.PageView {
	t.Helper()
	return &model.PageView{
		SessionID: sessionID,
		Context: model.VisitorContext{
			IPAddress: "203.0.113.7",
			Country:   "Germany",
			Source:    model.SourceGoogle,
			Device:    model.DeviceDesktop,
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64)",
		},
		ViewedAt: time.Now().UTC(),
	}
}

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

// UniqueSessionID generates a unique session token for tests.
func UniqueSessionID() string {
	return fmt.Sprintf("session_%d_test%d", time.Now().UnixMilli(), time.Now().UnixNano()%100000)
}

package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/linkgate/linkgate/internal/model"
)

// Cache key prefixes and TTLs.
const (
	recordKeyPrefix   = "record:"
	negCacheKeySuffix = ":neg"

	// DefaultRecordTTL is the TTL for cached link records.
	DefaultRecordTTL = 24 * time.Hour

	// NegativeCacheTTL is the TTL for negative cache entries.
	NegativeCacheTTL = 5 * time.Minute
)

// Common cache errors.
var (
	ErrCacheMiss = errors.New("cache miss")
)

// GetRecord retrieves a link record from cache by lid.
// Returns ErrCacheMiss if not found.
func (c *Cache) GetRecord(ctx context.Context, lid int64) (*model.LinkRecord, error) {
	key := recordKey(lid)

	result, err := c.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall failed: %w", err)
	}

	if len(result) == 0 {
		return nil, ErrCacheMiss
	}

	cached := &model.CachedRecord{
		SiteName:    result["site_name"],
		Title:       result["title"],
		Destination: result["destination"],
		Fallback:    result["fallback"],
		Worldwide:   result["worldwide"],
		Countries:   result["countries"],
		Sponsored:   result["sponsored"],
		GroupPage:   result["group_page"],
		UpdatedAt:   result["updated_at"],
	}

	return cached.ToRecord(lid), nil
}

// SetRecord stores a link record in cache.
func (c *Cache) SetRecord(ctx context.Context, record *model.LinkRecord) error {
	key := recordKey(record.Lid)
	cached := record.ToCachedRecord()

	fields := map[string]any{
		"site_name":   cached.SiteName,
		"title":       cached.Title,
		"destination": cached.Destination,
		"worldwide":   cached.Worldwide,
		"sponsored":   cached.Sponsored,
		"group_page":  cached.GroupPage,
		"updated_at":  cached.UpdatedAt,
	}

	// Only set optional fields if they have values
	if cached.Fallback != "" {
		fields["fallback"] = cached.Fallback
	}
	if cached.Countries != "" {
		fields["countries"] = cached.Countries
	}

	// Delete first so a removed fallback or allow-list does not linger
	// as a stale hash field.
	pipe := c.client.Pipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, DefaultRecordTTL)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to cache record: %w", err)
	}

	// Remove negative cache if exists
	c.client.Del(ctx, key+negCacheKeySuffix)

	return nil
}

// DeleteRecord removes a link record from cache.
func (c *Cache) DeleteRecord(ctx context.Context, lid int64) error {
	key := recordKey(lid)

	pipe := c.client.Pipeline()
	pipe.Del(ctx, key)
	pipe.Del(ctx, key+negCacheKeySuffix)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete record from cache: %w", err)
	}

	return nil
}

// IsNegativelyCached checks if a lid is in negative cache.
func (c *Cache) IsNegativelyCached(ctx context.Context, lid int64) (bool, error) {
	key := recordKey(lid) + negCacheKeySuffix

	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check negative cache: %w", err)
	}

	return exists > 0, nil
}

// SetNegativeCache marks a lid as not found.
func (c *Cache) SetNegativeCache(ctx context.Context, lid int64) error {
	key := recordKey(lid) + negCacheKeySuffix

	err := c.client.SetEx(ctx, key, "", NegativeCacheTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to set negative cache: %w", err)
	}

	return nil
}

// recordKey builds the Redis hash key for a lid.
func recordKey(lid int64) string {
	return recordKeyPrefix + strconv.FormatInt(lid, 10)
}

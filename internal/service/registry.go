// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/linkgate/linkgate/internal/cache"
	"github.com/linkgate/linkgate/internal/metrics"
	"github.com/linkgate/linkgate/internal/model"
	"github.com/linkgate/linkgate/internal/repository"
)

// Service errors.
var (
	ErrInvalidDestination = errors.New("invalid destination URL")
	ErrInvalidFallback    = errors.New("invalid fallback URL")
	ErrInvalidLogo        = errors.New("invalid logo URL")
	ErrURLTooLong         = errors.New("destination URL too long")
	ErrRecordNotFound     = errors.New("link record not found")
	ErrLidExists          = errors.New("lid already exists")
	ErrUnreachablePolicy  = errors.New("record is unreachable: not worldwide, no allowed countries, no fallback")
)

const maxDestinationLength = 2048

// RegistryService handles link registry business logic. Redirect lookups go
// through the Redis cache; admin writes invalidate it.
type RegistryService struct {
	repo    *repository.Repository
	cache   *cache.Cache
	metrics metrics.Recorder
}

// NewRegistryService creates a new RegistryService.
func NewRegistryService(repo *repository.Repository, cache *cache.Cache, recorder metrics.Recorder) *RegistryService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &RegistryService{
		repo:    repo,
		cache:   cache,
		metrics: recorder,
	}
}

// CreateRecordInput defines input for creating a link record.
type CreateRecordInput struct {
	Lid              int64 // 0 = assign the next free lid
	SiteName         string
	Title            string
	Description      string
	LogoURL          string
	DestinationURL   string
	FallbackURL      string
	IsWorldwide      bool
	AllowedCountries []string
	IsSponsored      bool
	GroupPage        string
}

// CreateRecord creates a new registry entry. A zero lid is replaced with
// max(lid)+1; explicit lids collide with ErrLidExists.
func (s *RegistryService) CreateRecord(ctx context.Context, input CreateRecordInput) (*model.LinkRecord, error) {
	now := time.Now().UTC()
	record := &model.LinkRecord{
		Lid:              input.Lid,
		SiteName:         input.SiteName,
		Title:            input.Title,
		Description:      input.Description,
		LogoURL:          input.LogoURL,
		DestinationURL:   input.DestinationURL,
		FallbackURL:      input.FallbackURL,
		IsWorldwide:      input.IsWorldwide,
		AllowedCountries: input.AllowedCountries,
		IsSponsored:      input.IsSponsored,
		GroupPage:        input.GroupPage,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := validateRecord(record); err != nil {
		return nil, err
	}

	if record.Lid == 0 {
		next, err := s.repo.NextLid(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to assign lid: %w", err)
		}
		record.Lid = next
	}

	if err := s.repo.CreateRecord(ctx, record); err != nil {
		if errors.Is(err, repository.ErrLidExists) {
			return nil, ErrLidExists
		}
		return nil, fmt.Errorf("failed to create record: %w", err)
	}

	s.metrics.IncRecordCreated()

	// A stale negative entry from a pre-creation lookup would otherwise
	// hide the new record for up to the negative TTL.
	_ = s.cache.DeleteRecord(ctx, record.Lid)

	return record, nil
}

// GetRecord retrieves a record by lid, bypassing the cache. Admin read path.
func (s *RegistryService) GetRecord(ctx context.Context, lid int64) (*model.LinkRecord, error) {
	record, err := s.repo.GetRecordByLid(ctx, lid)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return record, nil
}

// ListRecords retrieves the full registry in lid order.
func (s *RegistryService) ListRecords(ctx context.Context) ([]*model.LinkRecord, error) {
	return s.repo.ListRecords(ctx)
}

// ListByPage retrieves the records grouped under a page key, sponsored
// entries first.
func (s *RegistryService) ListByPage(ctx context.Context, page string) ([]*model.LinkRecord, error) {
	return s.repo.ListRecordsByPage(ctx, page)
}

// UpdateRecordInput defines input for updating a record. Nil pointers leave
// the current value in place.
type UpdateRecordInput struct {
	Lid              int64
	SiteName         *string
	Title            *string
	Description      *string
	LogoURL          *string
	DestinationURL   *string
	FallbackURL      *string // empty string clears the fallback
	IsWorldwide      *bool
	AllowedCountries *[]string
	IsSponsored      *bool
	GroupPage        *string
}

// UpdateRecord updates a record's mutable fields. The lid never changes.
func (s *RegistryService) UpdateRecord(ctx context.Context, input UpdateRecordInput) (*model.LinkRecord, error) {
	record, err := s.repo.GetRecordByLid(ctx, input.Lid)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	if input.SiteName != nil {
		record.SiteName = *input.SiteName
	}
	if input.Title != nil {
		record.Title = *input.Title
	}
	if input.Description != nil {
		record.Description = *input.Description
	}
	if input.LogoURL != nil {
		record.LogoURL = *input.LogoURL
	}
	if input.DestinationURL != nil {
		record.DestinationURL = *input.DestinationURL
	}
	if input.FallbackURL != nil {
		record.FallbackURL = *input.FallbackURL
	}
	if input.IsWorldwide != nil {
		record.IsWorldwide = *input.IsWorldwide
	}
	if input.AllowedCountries != nil {
		record.AllowedCountries = *input.AllowedCountries
	}
	if input.IsSponsored != nil {
		record.IsSponsored = *input.IsSponsored
	}
	if input.GroupPage != nil {
		record.GroupPage = *input.GroupPage
	}

	if err := validateRecord(record); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateRecord(ctx, record); err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	s.metrics.IncRecordUpdated()

	// Invalidate cache
	if err := s.cache.DeleteRecord(ctx, record.Lid); err != nil {
		// Eventual consistency is acceptable; the TTL bounds staleness
		_ = err
	}

	return record, nil
}

// DeleteRecord removes a record from the registry.
func (s *RegistryService) DeleteRecord(ctx context.Context, lid int64) error {
	if err := s.repo.DeleteRecord(ctx, lid); err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return ErrRecordNotFound
		}
		return err
	}

	s.metrics.IncRecordDeleted()

	if err := s.cache.DeleteRecord(ctx, lid); err != nil {
		_ = err
	}

	return nil
}

// FindByLid resolves a record for redirect. This is the hot path -
// optimized for speed with cache-first lookup.
func (s *RegistryService) FindByLid(ctx context.Context, lid int64) (*model.LinkRecord, bool, error) {
	cacheHit := false

	// Step 1: Try cache
	record, err := s.cache.GetRecord(ctx, lid)
	if err == nil {
		cacheHit = true
		s.metrics.IncRedirectCacheHit()
		return record, cacheHit, nil
	}

	// Step 2: Check negative cache
	if !errors.Is(err, cache.ErrCacheMiss) {
		// Redis error - fall through to DB
	} else {
		s.metrics.IncRedirectCacheMiss()
		isNegative, _ := s.cache.IsNegativelyCached(ctx, lid)
		if isNegative {
			return nil, cacheHit, ErrRecordNotFound
		}
	}

	// Step 3: DB lookup
	record, err = s.repo.GetRecordByLid(ctx, lid)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			_ = s.cache.SetNegativeCache(ctx, lid)
			return nil, cacheHit, ErrRecordNotFound
		}
		return nil, cacheHit, err
	}

	// Step 4: Backfill cache
	if err := s.cache.SetRecord(ctx, record); err != nil {
		_ = err
	}

	return record, cacheHit, nil
}

// validateRecord checks a record's URLs and its routing policy.
func validateRecord(record *model.LinkRecord) error {
	if err := validateHTTPURL(record.DestinationURL); err != nil {
		return ErrInvalidDestination
	}
	if len(record.DestinationURL) > maxDestinationLength {
		return ErrURLTooLong
	}
	if record.FallbackURL != "" {
		if err := validateHTTPURL(record.FallbackURL); err != nil {
			return ErrInvalidFallback
		}
	}
	if record.LogoURL != "" {
		if err := validateHTTPURL(record.LogoURL); err != nil {
			return ErrInvalidLogo
		}
	}
	if !record.Reachable() {
		return ErrUnreachablePolicy
	}
	return nil
}

// validateHTTPURL requires an absolute http or https URL with a host.
func validateHTTPURL(raw string) error {
	if raw == "" {
		return errors.New("empty URL")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("scheme must be http or https")
	}

	if parsed.Host == "" {
		return errors.New("URL must have a host")
	}

	return nil
}

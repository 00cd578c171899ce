package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/linkgate/linkgate/internal/model"
)

// Common errors for link registry operations.
var (
	ErrRecordNotFound = errors.New("link record not found")
	ErrLidExists      = errors.New("lid already exists")
)

const recordColumns = `lid, site_name, title, description, logo_url, destination_url,
	COALESCE(fallback_url, ''), is_worldwide, allowed_countries, is_sponsored,
	group_page, created_at, updated_at`

// CreateRecord inserts a new link record into the registry.
func (r *Repository) CreateRecord(ctx context.Context, record *model.LinkRecord) error {
	query := `
		INSERT INTO link_records (lid, site_name, title, description, logo_url, destination_url,
			fallback_url, is_worldwide, allowed_countries, is_sponsored, group_page, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.pool.Exec(ctx, query,
		record.Lid,
		record.SiteName,
		record.Title,
		record.Description,
		record.LogoURL,
		record.DestinationURL,
		nullableString(record.FallbackURL),
		record.IsWorldwide,
		record.AllowedCountries,
		record.IsSponsored,
		record.GroupPage,
		record.CreatedAt,
		record.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrLidExists
		}
		return fmt.Errorf("failed to create link record: %w", err)
	}

	return nil
}

// GetRecordByLid retrieves a link record by its lid.
// This is the hot path for redirects.
func (r *Repository) GetRecordByLid(ctx context.Context, lid int64) (*model.LinkRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM link_records WHERE lid = $1`

	record, err := scanRecord(r.pool.QueryRow(ctx, query, lid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get link record by lid: %w", err)
	}

	return record, nil
}

// ListRecordsByPage retrieves all records grouped under a page key,
// sponsored entries first, insertion (lid) order within each partition.
func (r *Repository) ListRecordsByPage(ctx context.Context, page string) ([]*model.LinkRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM link_records
		WHERE group_page = $1
		ORDER BY is_sponsored DESC, lid ASC
	`

	rows, err := r.pool.Query(ctx, query, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list link records by page: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// ListRecords retrieves the full registry in lid order. Admin read path.
func (r *Repository) ListRecords(ctx context.Context) ([]*model.LinkRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM link_records ORDER BY lid ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list link records: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// UpdateRecord updates a record's mutable fields. The lid never changes.
func (r *Repository) UpdateRecord(ctx context.Context, record *model.LinkRecord) error {
	query := `
		UPDATE link_records
		SET site_name = $2, title = $3, description = $4, logo_url = $5,
			destination_url = $6, fallback_url = $7, is_worldwide = $8,
			allowed_countries = $9, is_sponsored = $10, group_page = $11,
			updated_at = NOW()
		WHERE lid = $1
	`

	result, err := r.pool.Exec(ctx, query,
		record.Lid,
		record.SiteName,
		record.Title,
		record.Description,
		record.LogoURL,
		record.DestinationURL,
		nullableString(record.FallbackURL),
		record.IsWorldwide,
		record.AllowedCountries,
		record.IsSponsored,
		record.GroupPage,
	)

	if err != nil {
		return fmt.Errorf("failed to update link record: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrRecordNotFound
	}

	return nil
}

// DeleteRecord removes a record from the registry.
func (r *Repository) DeleteRecord(ctx context.Context, lid int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM link_records WHERE lid = $1`, lid)
	if err != nil {
		return fmt.Errorf("failed to delete link record: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrRecordNotFound
	}

	return nil
}

// NextLid returns max(lid)+1, or 1 for an empty registry.
// Used by the admin create path only; redirects never allocate ids.
func (r *Repository) NextLid(ctx context.Context) (int64, error) {
	var next int64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(MAX(lid), 0) + 1 FROM link_records`).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to compute next lid: %w", err)
	}
	return next, nil
}

// scanRecord scans a single row into a LinkRecord model.
func scanRecord(row pgx.Row) (*model.LinkRecord, error) {
	var record model.LinkRecord
	err := row.Scan(
		&record.Lid,
		&record.SiteName,
		&record.Title,
		&record.Description,
		&record.LogoURL,
		&record.DestinationURL,
		&record.FallbackURL,
		&record.IsWorldwide,
		&record.AllowedCountries,
		&record.IsSponsored,
		&record.GroupPage,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	return &record, err
}

// collectRecords drains rows into LinkRecord models.
func collectRecords(rows pgx.Rows) ([]*model.LinkRecord, error) {
	var records []*model.LinkRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan link record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating link records: %w", err)
	}

	return records, nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation.
func isUniqueViolation(err error) bool {
	// PostgreSQL error code 23505 is unique_violation
	return err != nil && (contains(err.Error(), "23505") || contains(err.Error(), "unique"))
}

// contains checks if a string contains a substring.
func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

// nullableString returns nil for empty strings.
func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

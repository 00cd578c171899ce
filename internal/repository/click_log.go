package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/linkgate/linkgate/internal/model"
)

const clickColumns = `id, event_id, session_id, lid, link, time_spent,
	ip_address, country, source, device, user_agent, click_time, created_at`

// BulkInsertClicks appends click rows with idempotency via ON CONFLICT DO
// NOTHING on the stream event id, so redelivered batches never duplicate.
func (r *Repository) BulkInsertClicks(ctx context.Context, clicks []*model.ClickLog) error {
	if len(clicks) == 0 {
		return nil
	}

	batch := &pgx.Batch{}

	query := `
		INSERT INTO click_logs (
			id, event_id, session_id, lid, link, time_spent,
			ip_address, country, source, device, user_agent, click_time, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		ON CONFLICT (event_id) DO NOTHING
	`

	for _, click := range clicks {
		batch.Queue(query,
			click.ID,
			click.EventID,
			click.SessionID,
			click.Lid,
			click.Link,
			click.TimeSpentMs,
			click.IPAddress,
			click.Country,
			string(click.Source),
			string(click.Device),
			click.UserAgent,
			click.ClickTime,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(clicks); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch insert click %d: %w", i, err)
		}
	}

	return nil
}

// ListClicks returns click rows ordered by click time descending.
func (r *Repository) ListClicks(ctx context.Context, limit int) ([]*model.ClickLog, error) {
	query := `SELECT ` + clickColumns + ` FROM click_logs ORDER BY click_time DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list clicks: %w", err)
	}
	defer rows.Close()

	var clicks []*model.ClickLog
	for rows.Next() {
		click, err := scanClick(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan click: %w", err)
		}
		clicks = append(clicks, click)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating clicks: %w", err)
	}

	return clicks, nil
}

// CountClicksBySession returns the number of click rows for one session.
func (r *Repository) CountClicksBySession(ctx context.Context, sessionID string) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM click_logs WHERE session_id = $1`, sessionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count clicks: %w", err)
	}
	return count, nil
}

// PurgeClicks deletes every click row. Admin-only, irreversible.
func (r *Repository) PurgeClicks(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM click_logs`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge clicks: %w", err)
	}
	return result.RowsAffected(), nil
}

// scanClick scans a row into a ClickLog model.
func scanClick(row pgx.Row) (*model.ClickLog, error) {
	var click model.ClickLog
	var source, device string

	err := row.Scan(
		&click.ID,
		&click.EventID,
		&click.SessionID,
		&click.Lid,
		&click.Link,
		&click.TimeSpentMs,
		&click.IPAddress,
		&click.Country,
		&source,
		&device,
		&click.UserAgent,
		&click.ClickTime,
		&click.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	click.Source = model.Source(source)
	click.Device = model.Device(device)
	return &click, nil
}

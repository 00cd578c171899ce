package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/linkgate/linkgate/internal/model"
)

// ErrSessionNotFound indicates the session row does not exist.
var ErrSessionNotFound = errors.New("session not found")

const sessionColumns = `session_id, ip_address, country, source, device, user_agent,
	page_views, total_clicks, first_visit, last_active`

// SessionFilter defines optional filters for listing sessions.
type SessionFilter struct {
	Country string
	Source  string
}

// UpsertPageView applies one page view: a missing session row is created with
// page_views=1 and the captured first context; an existing row only bumps
// page_views and last_active. Concurrent calls for the same session are safe:
// the conflict arm degrades a duplicate create into an update, and the
// first-seen context fields are never overwritten.
func (r *Repository) UpsertPageView(ctx context.Context, view *model.PageView) error {
	query := `
		INSERT INTO sessions (session_id, ip_address, country, source, device, user_agent,
			page_views, total_clicks, first_visit, last_active)
		VALUES ($1, $2, $3, $4, $5, $6, 1, 0, $7, $7)
		ON CONFLICT (session_id) DO UPDATE SET
			page_views = sessions.page_views + 1,
			last_active = GREATEST(sessions.last_active, EXCLUDED.last_active)
	`

	_, err := r.pool.Exec(ctx, query,
		view.SessionID,
		view.Context.IPAddress,
		view.Context.Country,
		string(view.Context.Source),
		string(view.Context.Device),
		view.Context.UserAgent,
		view.ViewedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert page view: %w", err)
	}

	return nil
}

// IncrementSessionClicks bumps total_clicks on the owning session. Returns
// false without error when the session row does not exist yet (a click racing
// its first page view); the caller must not treat that as a failure.
func (r *Repository) IncrementSessionClicks(ctx context.Context, sessionID string, n int64, lastActive time.Time) (bool, error) {
	query := `
		UPDATE sessions
		SET total_clicks = total_clicks + $2,
			last_active = GREATEST(last_active, $3)
		WHERE session_id = $1
	`

	result, err := r.pool.Exec(ctx, query, sessionID, n, lastActive)
	if err != nil {
		return false, fmt.Errorf("failed to increment session clicks: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// GetSession retrieves a session by its id.
func (r *Repository) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE session_id = $1`

	session, err := scanSession(r.pool.QueryRow(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// ListSessions returns sessions ordered by last activity descending,
// optionally filtered by country and/or source.
func (r *Repository) ListSessions(ctx context.Context, filter SessionFilter, limit int) ([]*model.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE 1=1`
	args := []any{}
	argIndex := 1

	if filter.Country != "" {
		query += fmt.Sprintf(" AND country = $%d", argIndex)
		args = append(args, filter.Country)
		argIndex++
	}

	if filter.Source != "" {
		query += fmt.Sprintf(" AND source = $%d", argIndex)
		args = append(args, filter.Source)
		argIndex++
	}

	query += fmt.Sprintf(" ORDER BY last_active DESC LIMIT $%d", argIndex)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*model.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}

// PurgeSessions deletes every session row. Admin-only, irreversible.
func (r *Repository) PurgeSessions(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM sessions`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	return result.RowsAffected(), nil
}

// scanSession scans a row into a Session model.
func scanSession(row pgx.Row) (*model.Session, error) {
	var session model.Session
	var source, device string

	err := row.Scan(
		&session.SessionID,
		&session.IPAddress,
		&session.Country,
		&source,
		&device,
		&session.UserAgent,
		&session.PageViews,
		&session.TotalClicks,
		&session.FirstVisit,
		&session.LastActive,
	)
	if err != nil {
		return nil, err
	}

	session.Source = model.Source(source)
	session.Device = model.Device(device)
	return &session, nil
}

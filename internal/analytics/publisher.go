// Package analytics captures tracking events (clicks and page views) and
// applies them to the Postgres ledger through a Redis stream outbox.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/linkgate/linkgate/internal/metrics"
	"github.com/linkgate/linkgate/internal/model"
)

const (
	// StreamKey is the Redis stream for tracking events.
	StreamKey = "stream:tracking_events"

	// DeadLetterStreamKey is the Redis stream for poison messages.
	DeadLetterStreamKey = "stream:tracking_events:dlq"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 100000

	// PublishTimeout is the max time to wait for Redis publish.
	PublishTimeout = 100 * time.Millisecond
)

// Event kinds on the tracking stream.
const (
	KindClick    = "click"
	KindPageView = "pageview"
)

// TrackingEventPayload is the compressed event format for the Redis stream.
// Click events carry the link fields; page views only the visitor context.
type TrackingEventPayload struct {
	Kind       string `json:"k"`
	SessionID  string `json:"sid"`
	Lid        int64  `json:"lid,omitempty"`
	Link       string `json:"l,omitempty"`
	TimeSpent  int64  `json:"ts,omitempty"` // milliseconds since session start
	IPAddress  string `json:"ip,omitempty"`
	Country    string `json:"c,omitempty"`
	Source     string `json:"s,omitempty"`
	Device     string `json:"d,omitempty"`
	UserAgent  string `json:"ua,omitempty"` // truncated
	OccurredAt int64  `json:"t"`            // Unix milliseconds
}

// NewClickEvent builds a click payload from a resolved redirect.
func NewClickEvent(sessionID string, lid int64, link string, timeSpentMs int64, visitor model.VisitorContext, occurredAt time.Time) TrackingEventPayload {
	return TrackingEventPayload{
		Kind:       KindClick,
		SessionID:  sessionID,
		Lid:        lid,
		Link:       link,
		TimeSpent:  timeSpentMs,
		IPAddress:  visitor.IPAddress,
		Country:    visitor.Country,
		Source:     string(visitor.Source),
		Device:     string(visitor.Device),
		UserAgent:  TruncateUserAgent(visitor.UserAgent),
		OccurredAt: occurredAt.UnixMilli(),
	}
}

// NewPageViewEvent builds a page view payload.
func NewPageViewEvent(sessionID string, visitor model.VisitorContext, occurredAt time.Time) TrackingEventPayload {
	return TrackingEventPayload{
		Kind:       KindPageView,
		SessionID:  sessionID,
		IPAddress:  visitor.IPAddress,
		Country:    visitor.Country,
		Source:     string(visitor.Source),
		Device:     string(visitor.Device),
		UserAgent:  TruncateUserAgent(visitor.UserAgent),
		OccurredAt: occurredAt.UnixMilli(),
	}
}

// Publisher enqueues tracking events to the Redis stream.
type Publisher struct {
	redis   *redis.Client
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewPublisher creates a new tracking event publisher.
func NewPublisher(client *redis.Client, logger *slog.Logger, recorder metrics.Recorder) *Publisher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Publisher{
		redis:   client,
		logger:  logger.With("component", "analytics.publisher"),
		metrics: recorder,
	}
}

// Publish adds a tracking event to the stream synchronously.
func (p *Publisher) Publish(ctx context.Context, event TrackingEventPayload) (string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	result, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true, // ~MAXLEN for performance
		ID:     "*",  // Auto-generate ID
		Values: map[string]interface{}{
			"payload": string(data),
		},
	}).Result()

	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}

	return result, nil
}

// PublishAsync publishes without blocking the caller.
// Errors are logged but not returned (fire-and-forget).
func (p *Publisher) PublishAsync(event TrackingEventPayload) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), PublishTimeout)
		defer cancel()

		streamID, err := p.Publish(ctx, event)
		if err != nil {
			p.logger.Warn("failed to publish tracking event",
				"kind", event.Kind,
				"session_id", event.SessionID,
				"error", err,
			)
			p.metrics.IncTrackingEventPublished("dropped")
			return
		}

		p.logger.Debug("tracking event published",
			"kind", event.Kind,
			"session_id", event.SessionID,
			"stream_id", streamID,
		)
		p.metrics.IncTrackingEventPublished("success")
	}()
}

// TruncateUserAgent truncates user agent to max 500 chars.
func TruncateUserAgent(ua string) string {
	if len(ua) > 500 {
		return ua[:500]
	}
	return ua
}

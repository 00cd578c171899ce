package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/linkgate/linkgate/internal/analytics"
	"github.com/linkgate/linkgate/internal/engine"
	"github.com/linkgate/linkgate/internal/middleware"
	"github.com/linkgate/linkgate/internal/model"
	"github.com/linkgate/linkgate/internal/session"
	"github.com/linkgate/linkgate/internal/visitor"
)

// DecisionResolver maps a lid and country to a redirect decision.
// *engine.Resolver is the production implementation.
type DecisionResolver interface {
	Resolve(ctx context.Context, lid int64, country string) (engine.Decision, *model.LinkRecord, error)
}

// EventPublisher queues tracking events without blocking the request.
// *analytics.Publisher is the production implementation.
type EventPublisher interface {
	PublishAsync(event analytics.TrackingEventPayload)
}

// RedirectHandler serves GET /lid/{lid}: it resolves the visitor context,
// applies the geo routing policy, fires the click event, and 302s the
// visitor to wherever the decision landed. It never returns an error page;
// every failure mode degrades to a redirect to the site root.
type RedirectHandler struct {
	resolver  DecisionResolver
	visitors  *visitor.Resolver
	sessions  *session.Manager
	publisher EventPublisher
	siteRoot  string
	logger    *slog.Logger
}

// NewRedirectHandler creates a new RedirectHandler.
func NewRedirectHandler(
	resolver DecisionResolver,
	visitors *visitor.Resolver,
	sessions *session.Manager,
	publisher EventPublisher,
	siteRoot string,
	logger *slog.Logger,
) *RedirectHandler {
	return &RedirectHandler{
		resolver:  resolver,
		visitors:  visitors,
		sessions:  sessions,
		publisher: publisher,
		siteRoot:  siteRoot,
		logger:    logger,
	}
}

// Redirect handles GET /lid/{lid}.
func (h *RedirectHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()

	lid, err := middleware.ParseLid(chi.URLParam(r, "lid"))
	if err != nil {
		// Malformed lids get the same treatment as unknown ones.
		h.logger.Info("redirect_malformed_lid",
			"raw", chi.URLParam(r, "lid"),
		)
		h.redirect(w, r, h.siteRoot)
		return
	}

	// Session cookies must be set before any body or redirect header.
	sess := h.sessions.GetOrCreate(w, r, now)

	ctx := h.visitors.Resolve(r.Context(), r)

	decision, record, err := h.resolver.Resolve(r.Context(), lid, ctx.Country)
	if err != nil {
		h.logger.Error("redirect_lookup_failed",
			"lid", lid,
			"error", err,
		)
	}

	// Unknown lids redirect without leaving a click trail.
	if record != nil && h.publisher != nil {
		event := analytics.NewClickEvent(
			sess.ID,
			lid,
			decision.Target,
			session.TimeSpentMs(sess, now),
			ctx,
			now,
		)
		h.publisher.PublishAsync(event)
	}

	h.logger.Info("redirect",
		"lid", lid,
		"outcome", string(decision.Outcome),
		"country", ctx.Country,
		"session_new", sess.New,
	)

	h.redirect(w, r, decision.Target)
}

// redirect issues the 302 with the security headers every redirect carries.
func (h *RedirectHandler) redirect(w http.ResponseWriter, r *http.Request, target string) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("Cache-Control", "private, max-age=0")

	http.Redirect(w, r, target, http.StatusFound)
}

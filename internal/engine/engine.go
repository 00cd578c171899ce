// Package engine implements the redirect decision logic: given a link
// record and a visitor's country, it picks the URL the visitor leaves on.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/linkgate/linkgate/internal/metrics"
	"github.com/linkgate/linkgate/internal/model"
	"github.com/linkgate/linkgate/internal/service"
)

// Outcome labels where a redirect decision landed.
type Outcome string

const (
	// OutcomeDirect sends the visitor to the destination URL.
	OutcomeDirect Outcome = "direct"
	// OutcomeFallback sends a geo-denied visitor to the fallback URL.
	OutcomeFallback Outcome = "fallback"
	// OutcomeRoot sends the visitor to the site root (unknown lid, or
	// denied with no fallback configured).
	OutcomeRoot Outcome = "root"
)

// Decision is the result of evaluating one redirect.
type Decision struct {
	Target  string
	Outcome Outcome
}

// Decide evaluates a record's routing policy for a visitor country.
// A nil record (unknown lid) always routes to the site root.
func Decide(record *model.LinkRecord, country, siteRoot string) Decision {
	if record == nil {
		return Decision{Target: siteRoot, Outcome: OutcomeRoot}
	}

	if record.Allows(country) {
		return Decision{Target: record.DestinationURL, Outcome: OutcomeDirect}
	}

	if record.HasFallback() {
		return Decision{Target: record.FallbackURL, Outcome: OutcomeFallback}
	}

	return Decision{Target: siteRoot, Outcome: OutcomeRoot}
}

// Resolver looks up records through the registry and applies Decide.
type Resolver struct {
	registry *service.RegistryService
	siteRoot string
	metrics  metrics.Recorder
}

// NewResolver creates a Resolver. siteRoot is where unknown lids and
// stranded visitors land.
func NewResolver(registry *service.RegistryService, siteRoot string, recorder metrics.Recorder) *Resolver {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Resolver{
		registry: registry,
		siteRoot: siteRoot,
		metrics:  recorder,
	}
}

// Resolve maps a lid and visitor country to a redirect decision. The
// returned record is nil when the lid is unknown or the lookup failed;
// callers use that to suppress click tracking. Lookup errors degrade to a
// site-root decision so the visitor always gets a redirect.
func (r *Resolver) Resolve(ctx context.Context, lid int64, country string) (Decision, *model.LinkRecord, error) {
	start := time.Now()
	defer func() {
		r.metrics.ObserveRedirectDuration(time.Since(start))
	}()

	record, _, err := r.registry.FindByLid(ctx, lid)
	if err != nil {
		decision := Decide(nil, country, r.siteRoot)
		r.metrics.IncRedirectOutcome(string(decision.Outcome))
		if errors.Is(err, service.ErrRecordNotFound) {
			return decision, nil, nil
		}
		return decision, nil, err
	}

	decision := Decide(record, country, r.siteRoot)
	r.metrics.IncRedirectOutcome(string(decision.Outcome))
	return decision, record, nil
}

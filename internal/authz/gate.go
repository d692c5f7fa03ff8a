// Package authz decides whether a principal may act on a resource. Decisions
// are made against a capability table of ownership lookups registered once at
// startup; the gate itself has no knowledge of any concrete store.
package authz

import (
	"context"
	"log/slog"
	"sync"

	id "idhub/pkg/domain"
	dErrors "idhub/pkg/domain-errors"
	"idhub/pkg/requestcontext"
)

// ResourceKind names a class of protected resources.
type ResourceKind string

const (
	KindParticipant ResourceKind = "participant"
	KindCredential  ResourceKind = "credential"
)

// LookupFn resolves a resource ID to the participant context that owns it.
// Implementations return a not_found domain error for unknown IDs; the gate
// converts every lookup failure into a forbidden decision so callers cannot
// probe for resource existence.
type LookupFn func(ctx context.Context, resourceID string) (id.ParticipantID, error)

// Gate evaluates every authorization decision in the service.
type Gate struct {
	mu      sync.RWMutex
	lookups map[ResourceKind]LookupFn
	logger  *slog.Logger
}

type Option func(*Gate)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) { g.logger = logger }
}

func NewGate(opts ...Option) *Gate {
	g := &Gate{
		lookups: map[ResourceKind]LookupFn{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Register installs the ownership lookup for a resource kind. Registering the
// same kind twice replaces the previous lookup; wiring does this once in main.
func (g *Gate) Register(kind ResourceKind, lookup LookupFn) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lookups[kind] = lookup
}

// Authorize grants access when the principal owns the resource or carries the
// admin role. Every other outcome, including unknown kinds and failed lookups,
// is the same forbidden error: the decision must not reveal whether the
// resource exists.
func (g *Gate) Authorize(ctx context.Context, resourceID string, kind ResourceKind) error {
	principal := requestcontext.Principal(ctx)
	if principal.ID == "" {
		return g.deny(ctx, resourceID, kind, "no principal in context")
	}
	if principal.IsAdmin() {
		return nil
	}

	g.mu.RLock()
	lookup, registered := g.lookups[kind]
	g.mu.RUnlock()
	if !registered {
		return g.deny(ctx, resourceID, kind, "no lookup registered for kind")
	}

	owner, err := lookup(ctx, resourceID)
	if err != nil {
		return g.deny(ctx, resourceID, kind, "ownership lookup failed")
	}
	if owner.String() != principal.ID {
		return g.deny(ctx, resourceID, kind, "principal is not the owner")
	}
	return nil
}

func (g *Gate) deny(ctx context.Context, resourceID string, kind ResourceKind, reason string) error {
	// The reason stays in the log; the caller only ever sees "access denied".
	g.logger.DebugContext(ctx, "authorization denied",
		"resource_kind", string(kind),
		"resource_id", resourceID,
		"reason", reason,
	)
	return dErrors.New(dErrors.CodeForbidden, "access denied")
}

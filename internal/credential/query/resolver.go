// Package query builds scope-constrained credential queries for presentation
// requests. The resolver is the only component allowed to turn caller input
// into store filters, and it always injects the tenant filter itself.
package query

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"idhub/internal/credential/models"
	"idhub/internal/credential/store"
	id "idhub/pkg/domain"
	dErrors "idhub/pkg/domain-errors"
)

// Scope prefixes understood by the resolver. Anything else is rejected at the
// boundary rather than silently ignored.
const (
	scopeTypePrefix   = "vc.type:"
	scopeIssuerPrefix = "vc.issuer:"
)

// Constraints narrow a presentation query. Empty slices mean "no restriction".
type Constraints struct {
	// Types restricts results to credentials carrying one of these types in
	// their structured claims.
	Types []string
	// Issuers is an allow-list; when non-empty, credentials from other
	// issuers are dropped even if their type matched.
	Issuers []string
}

// ParseScopes translates protocol scope strings into constraints.
//
//	vc.type:MembershipCredential:read  -> type constraint
//	vc.issuer:did:web:issuer.example   -> issuer allow-list entry
func ParseScopes(scopes []string) (Constraints, error) {
	var c Constraints
	for _, s := range scopes {
		switch {
		case strings.HasPrefix(s, scopeTypePrefix):
			rest := strings.TrimPrefix(s, scopeTypePrefix)
			// A trailing :read / :all access marker is optional.
			if idx := strings.LastIndex(rest, ":"); idx > 0 {
				if marker := rest[idx+1:]; marker == "read" || marker == "all" || marker == "write" {
					rest = rest[:idx]
				}
			}
			if rest == "" {
				return Constraints{}, dErrors.New(dErrors.CodeInvalidInput, "scope is missing a credential type: "+s)
			}
			c.Types = append(c.Types, rest)
		case strings.HasPrefix(s, scopeIssuerPrefix):
			issuer := strings.TrimPrefix(s, scopeIssuerPrefix)
			if issuer == "" {
				return Constraints{}, dErrors.New(dErrors.CodeInvalidInput, "scope is missing an issuer: "+s)
			}
			c.Issuers = append(c.Issuers, issuer)
		default:
			return Constraints{}, dErrors.New(dErrors.CodeInvalidInput, "unsupported scope: "+s)
		}
	}
	return c, nil
}

// Resolver executes tenant-scoped credential queries.
type Resolver struct {
	store  store.Store
	logger *slog.Logger
}

type Option func(*Resolver)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

func NewResolver(s store.Store, opts ...Option) *Resolver {
	r := &Resolver{store: s, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the participant's presentable credentials matching the
// constraints. Only ISSUED credentials are presentable; suspended, revoked or
// in-flight credentials never leave the store through this path. An empty
// result is an empty slice, not an error.
func (r *Resolver) Resolve(ctx context.Context, participant id.ParticipantID, c Constraints) ([]models.VerifiableCredentialResource, error) {
	if participant.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "participant context is required")
	}

	base := []store.Predicate{{Field: store.FieldStatus, Op: store.OpEq, Value: string(models.StatusIssued)}}

	seen := map[id.CredentialID]models.VerifiableCredentialResource{}
	if len(c.Types) == 0 {
		results, err := r.store.Query(ctx, store.Filter{Participant: participant, Predicates: base})
		if err != nil {
			return nil, err
		}
		for _, res := range results {
			seen[res.ID] = res
		}
	} else {
		// One store query per requested type; results are unioned and
		// de-duplicated so overlapping scopes cannot double-present.
		for _, credType := range c.Types {
			predicates := append([]store.Predicate{}, base...)
			predicates = append(predicates, store.Predicate{Field: "claims.type", Op: store.OpContains, Value: credType})
			results, err := r.store.Query(ctx, store.Filter{Participant: participant, Predicates: predicates})
			if err != nil {
				return nil, err
			}
			for _, res := range results {
				seen[res.ID] = res
			}
		}
	}

	out := make([]models.VerifiableCredentialResource, 0, len(seen))
	for _, res := range seen {
		if len(c.Issuers) > 0 && !contains(c.Issuers, res.IssuerID) {
			continue
		}
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	r.logger.DebugContext(ctx, "resolved credentials for presentation",
		"participant_id", participant,
		"matches", len(out),
	)
	return out, nil
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

// Package store persists verifiable credential resources per participant
// context. Implementations must enforce the status transition table and the
// compare-and-swap discipline on updates; callers always receive copies.
package store

import (
	"context"
	"time"

	"idhub/internal/credential/models"
	id "idhub/pkg/domain"
	pkgerrors "idhub/pkg/domain-errors"
)

var (
	// ErrNotFound keeps storage-specific 404s consistent across implementations.
	ErrNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "credential not found")
)

// Op enumerates the predicate operators of the query language.
type Op string

const (
	// OpEq matches exact field values.
	OpEq Op = "="
	// OpContains matches substrings on string fields and membership on
	// array-valued claims.
	OpContains Op = "contains"
)

// Queryable fields. Claim fields are addressed as "claims.<key>".
const (
	FieldIssuer = "issuerId"
	FieldHolder = "holderId"
	FieldStatus = "status"
	FieldFormat = "format"

	claimsPrefix = "claims."
)

// Predicate is one clause of the enumerated query language.
type Predicate struct {
	Field string
	Op    Op
	Value string
}

// Filter constrains a credential query. Participant is mandatory: every query
// is implicitly conjoined with the owning participant context, which makes
// cross-tenant leakage structurally impossible rather than reliant on call
// sites remembering to filter.
type Filter struct {
	Participant id.ParticipantID
	Predicates  []Predicate
}

// Store is the behavioral contract of credential persistence.
type Store interface {
	// Create rejects duplicate IDs and statuses outside the allowed set of
	// starting statuses (enforced by models.NewWithStatus at construction).
	Create(ctx context.Context, res models.VerifiableCredentialResource) error

	// Update writes res if and only if the stored record still carries
	// lastSeen as its TimeOfLastStatusUpdate and the status change (if any)
	// is legal per the transition table. A stale lastSeen fails with a
	// conflict error and performs no partial write; an illegal transition
	// fails with a state-transition error and performs no partial write.
	Update(ctx context.Context, res models.VerifiableCredentialResource, lastSeen time.Time) error

	FindByID(ctx context.Context, credentialID id.CredentialID) (models.VerifiableCredentialResource, error)

	// Query returns the resources matching the filter. An empty result is an
	// empty slice, never an error.
	Query(ctx context.Context, filter Filter) ([]models.VerifiableCredentialResource, error)

	DeleteByID(ctx context.Context, credentialID id.CredentialID) error

	// DeleteByParticipant removes every credential owned by the participant
	// and returns how many were removed. Used by the registry cleanup path;
	// deleting an already-cleaned participant is not an error.
	DeleteByParticipant(ctx context.Context, participant id.ParticipantID) (int, error)

	// ListExpiring returns up to limit credentials in a non-terminal status
	// whose expiry time is at or before the cutoff. Used by the watchdog.
	ListExpiring(ctx context.Context, cutoff time.Time, limit int) ([]models.VerifiableCredentialResource, error)
}

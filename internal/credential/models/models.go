// Package models defines the stored credential resource and its status state
// machine. The transition table here is the single authority on which status
// changes are legal; stores must consult it and reject everything else.
package models

import (
	"time"

	id "idhub/pkg/domain"
	dErrors "idhub/pkg/domain-errors"
)

// VcStatus is the lifecycle tag of a stored credential. It is an enumerated
// state, not a free-form string.
type VcStatus string

const (
	StatusInitial           VcStatus = "INITIAL"
	StatusRequesting        VcStatus = "REQUESTING"
	StatusRequested         VcStatus = "REQUESTED"
	StatusIssuing           VcStatus = "ISSUING"
	StatusIssued            VcStatus = "ISSUED"
	StatusReissueRequesting VcStatus = "REISSUE_REQUESTING"
	StatusReissueRequested  VcStatus = "REISSUE_REQUESTED"
	StatusTerminated        VcStatus = "TERMINATED"
	StatusExpired           VcStatus = "EXPIRED"
	StatusRevoked           VcStatus = "REVOKED"
	StatusSuspended         VcStatus = "SUSPENDED"
	StatusError             VcStatus = "ERROR"
)

// transitions maps each status to the set of statuses it may move to.
// Issuance and reissuance are linear pipelines; once ISSUED, a credential is
// subject to three independent external signals (clock expiry, status-list
// suspension/revocation, tenant termination) that must not reorder into
// invalid states. EXPIRED, REVOKED, TERMINATED and ERROR are terminal.
var transitions = map[VcStatus][]VcStatus{
	StatusInitial:           {StatusRequesting, StatusError},
	StatusRequesting:        {StatusRequested, StatusError},
	StatusRequested:         {StatusIssuing, StatusError},
	StatusIssuing:           {StatusIssued, StatusError},
	StatusIssued:            {StatusReissueRequesting, StatusSuspended, StatusRevoked, StatusExpired, StatusTerminated},
	StatusReissueRequesting: {StatusReissueRequested, StatusError},
	StatusReissueRequested:  {StatusIssued, StatusError},
	StatusSuspended:         {StatusIssued, StatusRevoked, StatusTerminated},
	StatusTerminated:        {},
	StatusExpired:           {},
	StatusRevoked:           {},
	StatusError:             {},
}

// ParseVcStatus validates a status string at trust boundaries.
func ParseVcStatus(s string) (VcStatus, error) {
	status := VcStatus(s)
	if _, ok := transitions[status]; !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown credential status: "+s)
	}
	return status, nil
}

// CanTransition reports whether moving from one status to another is legal.
func (s VcStatus) CanTransition(to VcStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s VcStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// AllStatuses returns every known status. Used by tests that sweep the whole
// transition matrix and by the management API for validation messages.
func AllStatuses() []VcStatus {
	return []VcStatus{
		StatusInitial, StatusRequesting, StatusRequested, StatusIssuing,
		StatusIssued, StatusReissueRequesting, StatusReissueRequested,
		StatusTerminated, StatusExpired, StatusRevoked, StatusSuspended,
		StatusError,
	}
}

// Format is the serialization/signature scheme of a stored credential. The
// ordinal fixes the deterministic group order of presentation generation.
type Format int

const (
	FormatJWTVC1 Format = iota
	FormatLDVC1
	FormatJOSEVC2
)

var formatNames = map[Format]string{
	FormatJWTVC1:  "JWT_VC1",
	FormatLDVC1:   "LD_VC1",
	FormatJOSEVC2: "JOSE_VC2",
}

// ParseFormat validates a format string at trust boundaries.
func ParseFormat(s string) (Format, error) {
	for f, name := range formatNames {
		if name == s {
			return f, nil
		}
	}
	return 0, dErrors.New(dErrors.CodeInvalidInput, "unknown credential format: "+s)
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return "UNKNOWN"
}

// Claims is the parsed, queryable form of a credential's content.
type Claims map[string]interface{}

// VerifiableCredentialResource is a stored credential strictly owned by one
// participant context. ParticipantContextID and Format are fixed at creation.
type VerifiableCredentialResource struct {
	ID                   id.CredentialID
	ParticipantContextID id.ParticipantID
	IssuerID             string
	HolderID             string
	Status               VcStatus
	Format               Format
	// RawCredential is the opaque signed form: a compact token for JWT/JOSE
	// formats, a serialized JSON document for LD.
	RawCredential string
	// StructuredCredential carries the parsed claims for querying.
	StructuredCredential Claims
	Metadata             map[string]string
	// ExpiresAt drives the expiry watchdog; zero means no expiry.
	ExpiresAt time.Time
	// TimeOfLastStatusUpdate is the optimistic-concurrency token: updates
	// compare-and-swap on (ID, TimeOfLastStatusUpdate).
	TimeOfLastStatusUpdate time.Time
}

// New validates and constructs a credential resource in INITIAL status.
func New(participant id.ParticipantID, issuerID, holderID string, format Format, now time.Time) (VerifiableCredentialResource, error) {
	return NewWithStatus(participant, issuerID, holderID, format, StatusInitial, now)
}

// NewWithStatus constructs a resource with an explicit starting status.
// Only INITIAL, REQUESTING and ISSUED are accepted starting points: INITIAL
// for holder-side request pipelines, REQUESTING for resumed pipelines, ISSUED
// for credentials delivered by an issuance callback.
func NewWithStatus(participant id.ParticipantID, issuerID, holderID string, format Format, status VcStatus, now time.Time) (VerifiableCredentialResource, error) {
	if participant.IsNil() {
		return VerifiableCredentialResource{}, dErrors.New(dErrors.CodeInvariantViolation, "credential must belong to a participant context")
	}
	if issuerID == "" {
		return VerifiableCredentialResource{}, dErrors.New(dErrors.CodeInvariantViolation, "issuer is required")
	}
	if holderID == "" {
		return VerifiableCredentialResource{}, dErrors.New(dErrors.CodeInvariantViolation, "holder is required")
	}
	if _, ok := formatNames[format]; !ok {
		return VerifiableCredentialResource{}, dErrors.New(dErrors.CodeInvariantViolation, "unknown credential format")
	}
	switch status {
	case StatusInitial, StatusRequesting, StatusIssued:
	default:
		return VerifiableCredentialResource{}, dErrors.New(dErrors.CodeInvariantViolation, "credentials cannot start in status "+string(status))
	}
	return VerifiableCredentialResource{
		ID:                     id.NewCredentialID(),
		ParticipantContextID:   participant,
		IssuerID:               issuerID,
		HolderID:               holderID,
		Status:                 status,
		Format:                 format,
		StructuredCredential:   Claims{},
		Metadata:               map[string]string{},
		TimeOfLastStatusUpdate: now,
	}, nil
}

// TransitionTo applies a status change after checking the transition table.
// It does not persist anything; the store's Update enforces the same rule
// again under its concurrency check.
func (r *VerifiableCredentialResource) TransitionTo(status VcStatus, now time.Time) error {
	if !r.Status.CanTransition(status) {
		return dErrors.New(dErrors.CodeStateTransition,
			"illegal status transition "+string(r.Status)+" -> "+string(status))
	}
	r.Status = status
	r.TimeOfLastStatusUpdate = now
	return nil
}

// Copy returns a deep copy so callers can never mutate stored state through
// incidental references.
func (r VerifiableCredentialResource) Copy() VerifiableCredentialResource {
	out := r
	out.StructuredCredential = make(Claims, len(r.StructuredCredential))
	for k, v := range r.StructuredCredential {
		out.StructuredCredential[k] = v
	}
	out.Metadata = make(map[string]string, len(r.Metadata))
	for k, v := range r.Metadata {
		out.Metadata[k] = v
	}
	return out
}

// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "idhub/pkg/domain-errors"
)

// ParticipantID identifies a participant context (tenant). Participant IDs are
// externally assigned, stable, and immutable; they are not minted by this service.
type ParticipantID string

// ParseParticipantID validates a participant ID at trust boundaries.
func ParseParticipantID(s string) (ParticipantID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "participant ID cannot be empty")
	}
	if len(s) > 256 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "participant ID must be 256 characters or less")
	}
	return ParticipantID(s), nil
}

func (id ParticipantID) String() string { return string(id) }
func (id ParticipantID) IsNil() bool    { return id == "" }

const credentialIDPrefix = "vc_"

// CredentialID is the prefixed identifier for stored credential resources.
type CredentialID string

// NewCredentialID generates a new credential ID with a stable prefix.
func NewCredentialID() CredentialID {
	return CredentialID(credentialIDPrefix + uuid.NewString())
}

// ParseCredentialID validates and parses a credential ID string.
func ParseCredentialID(s string) (CredentialID, error) {
	if strings.TrimSpace(s) == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "credential ID cannot be empty")
	}
	if !strings.HasPrefix(s, credentialIDPrefix) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "credential ID must start with "+credentialIDPrefix)
	}
	if _, err := uuid.Parse(strings.TrimPrefix(s, credentialIDPrefix)); err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid credential ID format")
	}
	return CredentialID(s), nil
}

func (id CredentialID) String() string { return string(id) }
func (id CredentialID) IsNil() bool    { return id == "" }

// SecretAlias is an opaque reference into the secret store. Holding an alias
// never grants access to the secret material itself.
type SecretAlias string

// NewSecretAlias mints a fresh alias under a participant-scoped prefix.
func NewSecretAlias(participant ParticipantID) SecretAlias {
	return SecretAlias("alias-" + participant.String() + "-" + uuid.NewString())
}

func (a SecretAlias) String() string { return string(a) }
func (a SecretAlias) IsNil() bool    { return a == "" }

// Package did exposes the small slice of DID machinery this service needs:
// mapping a participant to the verification method identifier that verifiers
// will find in its published DID document. Full DID document resolution and
// publication live outside this service.
package did

import (
	"context"

	"idhub/internal/keys"
	id "idhub/pkg/domain"
	dErrors "idhub/pkg/domain-errors"
)

// Publisher resolves the verification method a participant signs with.
type Publisher interface {
	ResolveVerificationMethodID(ctx context.Context, participant id.ParticipantID) (string, error)
}

// StaticPublisher answers from the provisioned signing key, whose identifier
// is anchored on the participant's DID (`<did>#key-1`). The verification
// method a verifier dereferences is therefore always the key that signed.
type StaticPublisher struct {
	keys keys.Resolver
}

func NewStaticPublisher(keyResolver keys.Resolver) *StaticPublisher {
	return &StaticPublisher{keys: keyResolver}
}

func (p *StaticPublisher) ResolveVerificationMethodID(ctx context.Context, participant id.ParticipantID) (string, error) {
	if participant.IsNil() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "participant is required")
	}
	key, err := p.keys.ResolveSigningKey(ctx, participant, keys.UsagePresentation)
	if err != nil {
		return "", err
	}
	return key.KeyID, nil
}

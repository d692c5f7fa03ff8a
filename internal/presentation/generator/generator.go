// Package generator produces signed presentation artifacts, one implementation
// per credential format. Generators never mix formats: the dispatcher hands
// each one a single-format group.
package generator

import (
	"context"

	credmodels "idhub/internal/credential/models"
	"idhub/internal/keys"
)

// Input is one single-format credential group plus everything needed to sign
// the resulting artifact.
type Input struct {
	// HolderDID identifies the presenting participant; it becomes the issuer
	// and holder of the presentation.
	HolderDID string
	// Audience is the intended verifier. Required by token-based generators.
	Audience string
	// VerificationMethod is the published key identifier verifiers resolve.
	VerificationMethod string
	Key                keys.SigningKey
	Credentials        []credmodels.VerifiableCredentialResource
	// PresentationDefinition is opaque context from the query; generators may
	// echo parts of it but never interpret it.
	PresentationDefinition map[string]interface{}
}

// Artifact is one signed presentation. Exactly one of Token and Document is
// set: compact serializations use Token, structured documents use Document.
type Artifact struct {
	Format   credmodels.Format
	Token    string
	Document map[string]interface{}
}

// Value returns the wire form of the artifact for the response message.
func (a Artifact) Value() interface{} {
	if a.Document != nil {
		return a.Document
	}
	return a.Token
}

// Generator signs one single-format credential group into an artifact.
type Generator interface {
	Format() credmodels.Format
	Generate(ctx context.Context, in Input) (Artifact, error)
}

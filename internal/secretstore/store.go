// Package secretstore holds opaque secret values behind aliases. Participant
// records never carry secrets directly, only the alias; everything the service
// must not log or persist in the registry goes through here.
package secretstore

import (
	"context"
	"errors"

	id "idhub/pkg/domain"
)

// ErrNotFound signals an unknown alias at the store edge. Services translate
// it into a coded domain error.
var ErrNotFound = errors.New("secret not found")

// Store is the secret backend boundary. All operations are bounded by the
// caller's context.
type Store interface {
	// Get returns the secret behind the alias or ErrNotFound.
	Get(ctx context.Context, alias id.SecretAlias) (string, error)
	// Put stores a secret, creating or overwriting the alias.
	Put(ctx context.Context, alias id.SecretAlias, value string) error
	// Rotate replaces the secret behind an existing alias. Unknown alias ->
	// ErrNotFound; rotation must never create aliases.
	Rotate(ctx context.Context, alias id.SecretAlias, value string) error
	// Delete removes the alias. Deleting an absent alias is not an error.
	Delete(ctx context.Context, alias id.SecretAlias) error
}

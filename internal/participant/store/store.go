// Package store persists participant contexts.
package store

import (
	"context"
	"errors"

	"idhub/internal/participant/models"
	id "idhub/pkg/domain"
)

// ErrNotFound signals an unknown participant at the store edge.
var ErrNotFound = errors.New("participant context not found")

// Store is the registry persistence boundary.
type Store interface {
	// Create inserts a new participant context; duplicate ID -> conflict.
	Create(ctx context.Context, p models.ParticipantContext) error
	// FindByID returns the participant context or ErrNotFound.
	FindByID(ctx context.Context, participantID id.ParticipantID) (models.ParticipantContext, error)
	// Update overwrites the stored record. Unknown ID -> ErrNotFound.
	Update(ctx context.Context, p models.ParticipantContext) error
	// DeleteByID removes the record. Deleting an absent record is not an
	// error; the cleanup path retries.
	DeleteByID(ctx context.Context, participantID id.ParticipantID) error
	// List returns all participant contexts ordered by ID.
	List(ctx context.Context) ([]models.ParticipantContext, error)
}

package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	credmodels "idhub/internal/credential/models"
	credstore "idhub/internal/credential/store"
	"idhub/internal/events"
	"idhub/internal/keys"
	"idhub/internal/participant/models"
	"idhub/internal/participant/store"
	"idhub/internal/secretstore"
	dErrors "idhub/pkg/domain-errors"
	"idhub/pkg/requestcontext"
)

type capturingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturingPublisher) Emit(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) types() []events.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	service     *Service
	participants *store.InMemoryStore
	credentials *credstore.InMemoryStore
	keyManager  *keys.Manager
	secrets     *secretstore.InMemoryStore
	publisher   *capturingPublisher
}

func newFixture() *fixture {
	f := &fixture{
		participants: store.NewInMemoryStore(),
		credentials:  credstore.NewInMemoryStore(),
		keyManager:   keys.NewManager(),
		secrets:      secretstore.NewInMemoryStore(),
		publisher:    &capturingPublisher{},
	}
	f.service = NewService(f.participants, f.credentials, f.keyManager, f.secrets,
		WithPublisher(f.publisher))
	return f
}

func manifest(participantID string, active bool) models.Manifest {
	return models.Manifest{
		ParticipantID: participantID,
		DID:           participantID,
		Active:        active,
	}
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("provisions token, key and record", func(t *testing.T) {
		f := newFixture()
		participant, token, err := f.service.Create(ctx, manifest("did:web:consumer.example", false))
		require.NoError(t, err)
		require.NotEmpty(t, token)
		assert.Equal(t, models.StateCreated, participant.State)

		stored, err := f.secrets.Get(ctx, participant.APITokenAlias)
		require.NoError(t, err)
		assert.Equal(t, token, stored)

		_, err = f.keyManager.ResolveSigningKey(ctx, participant.ID, keys.UsagePresentation)
		assert.NoError(t, err)

		assert.Equal(t, []events.EventType{events.EventParticipantCreated}, f.publisher.types())
	})

	t.Run("signing key is anchored on the DID when it differs from the ID", func(t *testing.T) {
		f := newFixture()
		participant, _, err := f.service.Create(ctx, models.Manifest{
			ParticipantID: "tenant-1",
			DID:           "did:web:holder.example",
		})
		require.NoError(t, err)

		key, err := f.keyManager.ResolveSigningKey(ctx, participant.ID, keys.UsagePresentation)
		require.NoError(t, err)
		assert.Equal(t, "did:web:holder.example#key-1", key.KeyID)
	})

	t.Run("active manifest lands in ACTIVATED", func(t *testing.T) {
		f := newFixture()
		participant, _, err := f.service.Create(ctx, manifest("did:web:consumer.example", true))
		require.NoError(t, err)
		assert.Equal(t, models.StateActivated, participant.State)
		assert.Contains(t, f.publisher.types(), events.EventParticipantActivated)
	})

	t.Run("duplicate ID is a conflict and leaves no orphan provisioning", func(t *testing.T) {
		f := newFixture()
		first, _, err := f.service.Create(ctx, manifest("did:web:consumer.example", false))
		require.NoError(t, err)

		_, _, err = f.service.Create(ctx, manifest("did:web:consumer.example", false))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

		// The first tenant's token and key must survive the failed duplicate.
		_, err = f.secrets.Get(ctx, first.APITokenAlias)
		assert.NoError(t, err)
	})

	t.Run("invalid manifest", func(t *testing.T) {
		f := newFixture()
		_, _, err := f.service.Create(ctx, models.Manifest{ParticipantID: "p1", DID: "not-a-did"})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestService_Get(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, err := f.service.Get(ctx, "did:web:missing.example")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, f *fixture) models.ParticipantContext {
		t.Helper()
		participant, _, err := f.service.Create(ctx, manifest("did:web:consumer.example", true))
		require.NoError(t, err)
		res, err := credmodels.NewWithStatus(participant.ID, "did:web:issuer.example", participant.DID,
			credmodels.FormatJWTVC1, credmodels.StatusIssued, time.Now().UTC())
		require.NoError(t, err)
		require.NoError(t, f.credentials.Create(ctx, res))
		return participant
	}

	t.Run("cascades credentials, keys, secret, then record", func(t *testing.T) {
		f := newFixture()
		participant := seed(t, f)

		require.NoError(t, f.service.Delete(ctx, participant.ID))

		results, err := f.credentials.Query(ctx, credstore.Filter{Participant: participant.ID})
		require.NoError(t, err)
		assert.Empty(t, results)

		_, err = f.keyManager.ResolveSigningKey(ctx, participant.ID, keys.UsagePresentation)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeKeyResolution))

		_, err = f.secrets.Get(ctx, participant.APITokenAlias)
		assert.ErrorIs(t, err, secretstore.ErrNotFound)

		_, err = f.service.Get(ctx, participant.ID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

		assert.Contains(t, f.publisher.types(), events.EventParticipantDeleting)
		assert.Contains(t, f.publisher.types(), events.EventParticipantDeleted)
	})

	t.Run("double delete is idempotent", func(t *testing.T) {
		f := newFixture()
		participant := seed(t, f)
		require.NoError(t, f.service.Delete(ctx, participant.ID))
		require.NoError(t, f.service.Delete(ctx, participant.ID))
	})

	t.Run("delete of partially cleaned tenant succeeds", func(t *testing.T) {
		f := newFixture()
		participant := seed(t, f)
		// Simulate a crash after the secret was already removed.
		require.NoError(t, f.secrets.Delete(ctx, participant.APITokenAlias))
		require.NoError(t, f.service.Delete(ctx, participant.ID))
		_, err := f.service.Get(ctx, participant.ID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestService_RegenerateToken(t *testing.T) {
	ctx := context.Background()

	t.Run("rotates the secret behind a stable alias", func(t *testing.T) {
		f := newFixture()
		participant, original, err := f.service.Create(ctx, manifest("did:web:consumer.example", true))
		require.NoError(t, err)

		rotated, err := f.service.RegenerateToken(ctx, participant.ID)
		require.NoError(t, err)
		assert.NotEqual(t, original, rotated)

		stored, err := f.secrets.Get(ctx, participant.APITokenAlias)
		require.NoError(t, err)
		assert.Equal(t, rotated, stored)

		reloaded, err := f.service.Get(ctx, participant.ID)
		require.NoError(t, err)
		assert.Equal(t, participant.APITokenAlias, reloaded.APITokenAlias)
	})

	t.Run("unknown participant", func(t *testing.T) {
		f := newFixture()
		_, err := f.service.RegenerateToken(ctx, "did:web:missing.example")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestService_CreateUsesPinnedClock(t *testing.T) {
	f := newFixture()
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), fixed)

	participant, _, err := f.service.Create(ctx, manifest("did:web:consumer.example", false))
	require.NoError(t, err)
	assert.Equal(t, fixed, participant.CreatedAt)
	assert.Equal(t, fixed, participant.LastModified)
}

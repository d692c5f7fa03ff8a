package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idhub/internal/credential/models"
	"idhub/internal/credential/store"
	participantmodels "idhub/internal/participant/models"
	participantstore "idhub/internal/participant/store"
	id "idhub/pkg/domain"
	dErrors "idhub/pkg/domain-errors"
	"idhub/pkg/requestcontext"
	"idhub/pkg/testutil"
)

const participantDID = "did:web:consumer.example"

// newTestService builds a service whose participant directory already knows
// the tenant every fixture credential belongs to.
func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	participants := participantstore.NewInMemoryStore()
	tenant, err := participantmodels.New(participantmodels.Manifest{
		ParticipantID: participantDID,
		DID:           participantDID,
	}, id.NewSecretAlias(id.ParticipantID(participantDID)), time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, participants.Create(context.Background(), tenant))
	return NewService(store.NewInMemoryStore(), participants, opts...)
}

func issuedCredential(t *testing.T, s *Service) models.VerifiableCredentialResource {
	t.Helper()
	res, err := s.Create(context.Background(), CreateCommand{
		ParticipantID: id.ParticipantID(participantDID),
		IssuerID:      "did:web:issuer.example",
		HolderID:      participantDID,
		Format:        models.FormatJWTVC1,
		Status:        models.StatusIssued,
		RawCredential: "raw.jwt.credential",
	})
	require.NoError(t, err)
	return res
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults to INITIAL", func(t *testing.T) {
		s := newTestService(t)
		res, err := s.Create(ctx, CreateCommand{
			ParticipantID: id.ParticipantID(participantDID),
			IssuerID:      "did:web:issuer.example",
			HolderID:      participantDID,
			Format:        models.FormatJWTVC1,
		})
		require.NoError(t, err)
		assert.Equal(t, models.StatusInitial, res.Status)
	})

	t.Run("unknown participant context is rejected", func(t *testing.T) {
		s := NewService(store.NewInMemoryStore(), participantstore.NewInMemoryStore())
		_, err := s.Create(ctx, CreateCommand{
			ParticipantID: "did:web:ghost.example",
			IssuerID:      "did:web:issuer.example",
			HolderID:      "did:web:ghost.example",
			Format:        models.FormatJWTVC1,
			Status:        models.StatusIssued,
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("claims are stored for querying", func(t *testing.T) {
		s := newTestService(t)
		res, err := s.Create(ctx, CreateCommand{
			ParticipantID: id.ParticipantID(participantDID),
			IssuerID:      "did:web:issuer.example",
			HolderID:      participantDID,
			Format:        models.FormatJWTVC1,
			Status:        models.StatusIssued,
			Claims:        models.Claims{"type": []string{"MembershipCredential"}},
		})
		require.NoError(t, err)

		reloaded, err := s.Get(ctx, res.ID)
		require.NoError(t, err)
		assert.Contains(t, reloaded.StructuredCredential, "type")
	})
}

func TestService_UpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("legal transition persists and bumps the version", func(t *testing.T) {
		s := newTestService(t)
		res := issuedCredential(t, s)

		later := requestcontext.WithTime(ctx, time.Now().UTC().Add(time.Minute))
		updated, err := s.Suspend(later, res.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusSuspended, updated.Status)
		assert.True(t, updated.TimeOfLastStatusUpdate.After(res.TimeOfLastStatusUpdate))
	})

	t.Run("illegal transition leaves stored status unchanged", func(t *testing.T) {
		s := newTestService(t)
		res := issuedCredential(t, s)

		_, err := s.UpdateStatus(ctx, res.ID, models.StatusRequesting)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeStateTransition))

		reloaded, err := s.Get(ctx, res.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusIssued, reloaded.Status)
	})

	t.Run("suspend then reactivate round-trips", func(t *testing.T) {
		s := newTestService(t)
		res := issuedCredential(t, s)

		_, err := s.Suspend(ctx, res.ID)
		require.NoError(t, err)
		reactivated, err := s.Reactivate(ctx, res.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusIssued, reactivated.Status)
	})

	t.Run("revoked credential is terminal", func(t *testing.T) {
		s := newTestService(t)
		res := issuedCredential(t, s)

		_, err := s.Revoke(ctx, res.ID)
		require.NoError(t, err)
		_, err = s.Reactivate(ctx, res.ID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeStateTransition))
	})

	t.Run("concurrent conflicting signals produce exactly one winner", func(t *testing.T) {
		s := newTestService(t)
		res := issuedCredential(t, s)

		// SUSPENDED and EXPIRED are mutually unreachable from each other, so
		// whichever signal lands second must fail: as a version conflict when
		// both read the same snapshot, as an illegal transition otherwise.
		targets := []models.VcStatus{models.StatusSuspended, models.StatusExpired}
		result := testutil.RunConcurrent(2, func(i int) error {
			later := requestcontext.WithTime(context.Background(), time.Now().UTC().Add(time.Duration(i+1)*time.Second))
			_, err := s.UpdateStatus(later, res.ID, targets[i])
			return err
		})
		assert.Equal(t, int32(1), result.Successes)
		assert.Equal(t, int32(1), result.Conflicts+result.Errors)

		reloaded, err := s.Get(ctx, res.ID)
		require.NoError(t, err)
		assert.Contains(t, targets, reloaded.Status)
	})

	t.Run("unknown credential", func(t *testing.T) {
		s := newTestService(t)
		_, err := s.Suspend(ctx, id.NewCredentialID())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestService_Owner(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	res := issuedCredential(t, s)

	owner, err := s.Owner(ctx, res.ID.String())
	require.NoError(t, err)
	assert.Equal(t, id.ParticipantID(participantDID), owner)

	_, err = s.Owner(ctx, "not-a-credential-id")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

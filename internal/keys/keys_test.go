package keys

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "idhub/pkg/domain"
	dErrors "idhub/pkg/domain-errors"
)

func TestManager(t *testing.T) {
	ctx := context.Background()
	participant := id.ParticipantID("did:web:consumer.example")
	holderDID := "did:web:consumer.example"

	t.Run("provision then resolve", func(t *testing.T) {
		m := NewManager()
		provisioned, err := m.Provision(ctx, participant, holderDID)
		require.NoError(t, err)
		assert.Equal(t, "did:web:consumer.example#key-1", provisioned.KeyID)
		assert.Equal(t, "EdDSA", provisioned.Algorithm)

		resolved, err := m.ResolveSigningKey(ctx, participant, UsagePresentation)
		require.NoError(t, err)
		assert.Equal(t, provisioned.KeyID, resolved.KeyID)

		// The key pair must actually sign and verify.
		sig := ed25519.Sign(resolved.Private, []byte("payload"))
		assert.True(t, ed25519.Verify(resolved.Public, []byte("payload"), sig))
	})

	t.Run("provision is idempotent", func(t *testing.T) {
		m := NewManager()
		first, err := m.Provision(ctx, participant, holderDID)
		require.NoError(t, err)
		second, err := m.Provision(ctx, participant, holderDID)
		require.NoError(t, err)
		assert.Equal(t, first.Public, second.Public)
	})

	t.Run("key identifier follows the DID, not the registry ID", func(t *testing.T) {
		m := NewManager()
		tenant := id.ParticipantID("tenant-1")
		key, err := m.Provision(ctx, tenant, "did:web:holder.example")
		require.NoError(t, err)
		assert.Equal(t, "did:web:holder.example#key-1", key.KeyID)
	})

	t.Run("provisioning requires a DID", func(t *testing.T) {
		m := NewManager()
		_, err := m.Provision(ctx, participant, "")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("resolving without a key", func(t *testing.T) {
		m := NewManager()
		_, err := m.ResolveSigningKey(ctx, participant, UsagePresentation)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeKeyResolution))
	})

	t.Run("remove is idempotent and resolvable keys disappear", func(t *testing.T) {
		m := NewManager()
		_, err := m.Provision(ctx, participant, holderDID)
		require.NoError(t, err)
		require.NoError(t, m.Remove(ctx, participant))
		require.NoError(t, m.Remove(ctx, participant))
		_, err = m.ResolveSigningKey(ctx, participant, UsagePresentation)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeKeyResolution))
	})

	t.Run("expired context surfaces as timeout", func(t *testing.T) {
		m := NewManager()
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := m.ResolveSigningKey(canceled, participant, UsagePresentation)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
	})
}

package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "idhub/pkg/domain-errors"
)

// TestParseParticipantID_Invariants validates the parsing invariant:
// "participant IDs are externally assigned, non-empty, bounded strings".
func TestParseParticipantID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseParticipantID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects whitespace-only string", func(t *testing.T) {
		_, err := ParseParticipantID("   ")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects oversized ID", func(t *testing.T) {
		_, err := ParseParticipantID(strings.Repeat("x", 257))
		require.Error(t, err)
	})

	t.Run("accepts externally assigned IDs verbatim", func(t *testing.T) {
		id, err := ParseParticipantID("did:web:consumer.example.com")
		require.NoError(t, err)
		assert.Equal(t, ParticipantID("did:web:consumer.example.com"), id)
	})
}

func TestCredentialID(t *testing.T) {
	t.Run("new IDs carry the vc_ prefix", func(t *testing.T) {
		id := NewCredentialID()
		assert.True(t, strings.HasPrefix(id.String(), "vc_"))
		_, err := ParseCredentialID(id.String())
		assert.NoError(t, err)
	})

	t.Run("rejects missing prefix", func(t *testing.T) {
		_, err := ParseCredentialID(uuid.NewString())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects malformed suffix", func(t *testing.T) {
		_, err := ParseCredentialID("vc_not-a-uuid")
		require.Error(t, err)
	})
}

func TestSecretAlias_NeverEmpty(t *testing.T) {
	alias := NewSecretAlias("participant1")
	assert.False(t, alias.IsNil())
	assert.Contains(t, alias.String(), "participant1")
}

package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "idhub/pkg/domain-errors"
)

var legalTransitions = map[VcStatus][]VcStatus{
	StatusInitial:           {StatusRequesting, StatusError},
	StatusRequesting:        {StatusRequested, StatusError},
	StatusRequested:         {StatusIssuing, StatusError},
	StatusIssuing:           {StatusIssued, StatusError},
	StatusIssued:            {StatusReissueRequesting, StatusSuspended, StatusRevoked, StatusExpired, StatusTerminated},
	StatusReissueRequesting: {StatusReissueRequested, StatusError},
	StatusReissueRequested:  {StatusIssued, StatusError},
	StatusSuspended:         {StatusIssued, StatusRevoked, StatusTerminated},
}

// TestTransitionMatrix sweeps every (from, to) pair: pairs in the table are
// legal, everything else must be rejected.
func TestTransitionMatrix(t *testing.T) {
	for _, from := range AllStatuses() {
		for _, to := range AllStatuses() {
			want := false
			for _, allowed := range legalTransitions[from] {
				if allowed == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransition(to),
				"transition %s -> %s", from, to)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range []VcStatus{StatusExpired, StatusRevoked, StatusTerminated, StatusError} {
		assert.True(t, s.IsTerminal(), "%s must be terminal", s)
		for _, to := range AllStatuses() {
			assert.False(t, s.CanTransition(to), "%s -> %s must be illegal", s, to)
		}
	}
	assert.False(t, StatusIssued.IsTerminal())
}

func TestTransitionTo(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	later := now.Add(time.Minute)

	cred, err := New("tenant-a", "did:web:issuer", "did:web:holder", FormatJWTVC1, now)
	require.NoError(t, err)
	require.Equal(t, StatusInitial, cred.Status)

	t.Run("legal transition updates status and timestamp", func(t *testing.T) {
		c := cred.Copy()
		require.NoError(t, c.TransitionTo(StatusRequesting, later))
		assert.Equal(t, StatusRequesting, c.Status)
		assert.Equal(t, later, c.TimeOfLastStatusUpdate)
	})

	t.Run("illegal transition leaves the resource unchanged", func(t *testing.T) {
		c := cred.Copy()
		err := c.TransitionTo(StatusIssued, later)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeStateTransition))
		assert.Equal(t, StatusInitial, c.Status)
		assert.Equal(t, now, c.TimeOfLastStatusUpdate)
	})

	t.Run("expired cannot later become suspended", func(t *testing.T) {
		c := cred.Copy()
		c.Status = StatusExpired
		err := c.TransitionTo(StatusSuspended, later)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeStateTransition))
	})
}

func TestNewWithStatus(t *testing.T) {
	now := time.Now().UTC()

	t.Run("accepts issuance-callback start", func(t *testing.T) {
		c, err := NewWithStatus("tenant-a", "did:web:issuer", "did:web:holder", FormatLDVC1, StatusIssued, now)
		require.NoError(t, err)
		assert.Equal(t, StatusIssued, c.Status)
	})

	t.Run("rejects arbitrary starting status", func(t *testing.T) {
		_, err := NewWithStatus("tenant-a", "did:web:issuer", "did:web:holder", FormatLDVC1, StatusSuspended, now)
		require.Error(t, err)
	})

	t.Run("rejects missing participant", func(t *testing.T) {
		_, err := New("", "did:web:issuer", "did:web:holder", FormatJWTVC1, now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func TestFormatOrdinalIsStable(t *testing.T) {
	// Presentation output order depends on these ordinals; changing them is a
	// breaking protocol change.
	assert.Less(t, int(FormatJWTVC1), int(FormatLDVC1))
	assert.Less(t, int(FormatLDVC1), int(FormatJOSEVC2))
}

func TestParseFormat(t *testing.T) {
	for _, name := range []string{"JWT_VC1", "LD_VC1", "JOSE_VC2"} {
		f, err := ParseFormat(name)
		require.NoError(t, err)
		assert.Equal(t, name, f.String())
	}
	_, err := ParseFormat("SD_JWT")
	require.Error(t, err)
}

func TestCopyIsDeep(t *testing.T) {
	now := time.Now().UTC()
	c, err := New("tenant-a", "did:web:issuer", "did:web:holder", FormatJWTVC1, now)
	require.NoError(t, err)
	c.StructuredCredential["type"] = "MembershipCredential"
	c.Metadata["source"] = "issuer-callback"

	clone := c.Copy()
	clone.StructuredCredential["type"] = "changed"
	clone.Metadata["source"] = "changed"

	assert.Equal(t, "MembershipCredential", c.StructuredCredential["type"])
	assert.Equal(t, "issuer-callback", c.Metadata["source"])
}

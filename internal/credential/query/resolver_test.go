package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idhub/internal/credential/models"
	"idhub/internal/credential/store"
	id "idhub/pkg/domain"
	dErrors "idhub/pkg/domain-errors"
)

func seedCredential(t *testing.T, s store.Store, participant id.ParticipantID, issuer string, types []string) models.VerifiableCredentialResource {
	t.Helper()
	res, err := models.NewWithStatus(participant, issuer, "did:web:holder.example", models.FormatJWTVC1, models.StatusIssued, time.Now().UTC())
	require.NoError(t, err)
	typeList := make([]interface{}, 0, len(types))
	for _, ct := range types {
		typeList = append(typeList, ct)
	}
	res.StructuredCredential["type"] = typeList
	require.NoError(t, s.Create(context.Background(), res))
	return res
}

func TestParseScopes(t *testing.T) {
	t.Run("type scope with access marker", func(t *testing.T) {
		c, err := ParseScopes([]string{"vc.type:MembershipCredential:read"})
		require.NoError(t, err)
		assert.Equal(t, []string{"MembershipCredential"}, c.Types)
	})

	t.Run("type scope without access marker", func(t *testing.T) {
		c, err := ParseScopes([]string{"vc.type:MembershipCredential"})
		require.NoError(t, err)
		assert.Equal(t, []string{"MembershipCredential"}, c.Types)
	})

	t.Run("issuer scope keeps colons in DID", func(t *testing.T) {
		c, err := ParseScopes([]string{"vc.issuer:did:web:dataspace-issuer.example"})
		require.NoError(t, err)
		assert.Equal(t, []string{"did:web:dataspace-issuer.example"}, c.Issuers)
	})

	t.Run("unknown scope is rejected", func(t *testing.T) {
		_, err := ParseScopes([]string{"something:else"})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestResolver_Resolve(t *testing.T) {
	ctx := context.Background()
	participant := id.ParticipantID("did:web:consumer.example")
	other := id.ParticipantID("did:web:someone-else.example")

	t.Run("only issued credentials of the tenant are returned", func(t *testing.T) {
		s := store.NewInMemoryStore()
		issued := seedCredential(t, s, participant, "did:web:issuer.example", []string{"VerifiableCredential", "MembershipCredential"})
		seedCredential(t, s, other, "did:web:issuer.example", []string{"VerifiableCredential", "MembershipCredential"})

		pending, err := models.New(participant, "did:web:issuer.example", "did:web:holder.example", models.FormatJWTVC1, time.Now().UTC())
		require.NoError(t, err)
		require.NoError(t, s.Create(ctx, pending))

		results, err := NewResolver(s).Resolve(ctx, participant, Constraints{})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, issued.ID, results[0].ID)
	})

	t.Run("type constraints union and de-duplicate", func(t *testing.T) {
		s := store.NewInMemoryStore()
		both := seedCredential(t, s, participant, "did:web:issuer.example", []string{"MembershipCredential", "DataProcessorCredential"})
		membership := seedCredential(t, s, participant, "did:web:issuer.example", []string{"MembershipCredential"})
		seedCredential(t, s, participant, "did:web:issuer.example", []string{"UnrelatedCredential"})

		results, err := NewResolver(s).Resolve(ctx, participant, Constraints{
			Types: []string{"MembershipCredential", "DataProcessorCredential"},
		})
		require.NoError(t, err)
		require.Len(t, results, 2)
		ids := []id.CredentialID{results[0].ID, results[1].ID}
		assert.Contains(t, ids, both.ID)
		assert.Contains(t, ids, membership.ID)
	})

	t.Run("issuer allow-list intersects with type matches", func(t *testing.T) {
		s := store.NewInMemoryStore()
		trusted := seedCredential(t, s, participant, "did:web:trusted-issuer.example", []string{"MembershipCredential"})
		seedCredential(t, s, participant, "did:web:rogue-issuer.example", []string{"MembershipCredential"})

		results, err := NewResolver(s).Resolve(ctx, participant, Constraints{
			Types:   []string{"MembershipCredential"},
			Issuers: []string{"did:web:trusted-issuer.example"},
		})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, trusted.ID, results[0].ID)
	})

	t.Run("no matches yields empty slice not error", func(t *testing.T) {
		s := store.NewInMemoryStore()
		results, err := NewResolver(s).Resolve(ctx, participant, Constraints{Types: []string{"MembershipCredential"}})
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("missing participant is rejected", func(t *testing.T) {
		s := store.NewInMemoryStore()
		_, err := NewResolver(s).Resolve(ctx, "", Constraints{})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("results are ordered by credential id", func(t *testing.T) {
		s := store.NewInMemoryStore()
		for i := 0; i < 5; i++ {
			seedCredential(t, s, participant, "did:web:issuer.example", []string{"MembershipCredential"})
		}
		results, err := NewResolver(s).Resolve(ctx, participant, Constraints{})
		require.NoError(t, err)
		require.Len(t, results, 5)
		for i := 1; i < len(results); i++ {
			assert.Less(t, results[i-1].ID, results[i].ID)
		}
	})
}

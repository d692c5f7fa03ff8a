package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	credmodels "idhub/internal/credential/models"
	"idhub/internal/did"
	"idhub/internal/keys"
	"idhub/internal/presentation/generator"
	id "idhub/pkg/domain"
	dErrors "idhub/pkg/domain-errors"
)

const (
	holderDID = "did:web:consumer.example"
	verifier  = "did:web:verifier.example"
)

func newService(t *testing.T, generators ...generator.Generator) *Service {
	t.Helper()
	manager := keys.NewManager()
	_, err := manager.Provision(context.Background(), id.ParticipantID(holderDID), holderDID)
	require.NoError(t, err)

	s := NewService(manager, did.NewStaticPublisher(manager))
	for _, g := range generators {
		s.AddGenerator(g)
	}
	return s
}

func credential(t *testing.T, format credmodels.Format, raw string) credmodels.VerifiableCredentialResource {
	t.Helper()
	res, err := credmodels.NewWithStatus(id.ParticipantID(holderDID), "did:web:issuer.example", holderDID,
		format, credmodels.StatusIssued, time.Now().UTC())
	require.NoError(t, err)
	res.RawCredential = raw
	return res
}

func request(credentials ...credmodels.VerifiableCredentialResource) Request {
	return Request{
		ParticipantID: id.ParticipantID(holderDID),
		HolderDID:     holderDID,
		Audience:      verifier,
		Credentials:   credentials,
	}
}

func TestService_CreatePresentation(t *testing.T) {
	ctx := context.Background()
	ldDoc := `{"@context":["https://www.w3.org/2018/credentials/v1"],"type":["VerifiableCredential"]}`

	t.Run("two JWT plus one LD yields exactly two artifacts in format order", func(t *testing.T) {
		s := newService(t, generator.NewJWTGenerator(), generator.NewLDPGenerator())
		resp, err := s.CreatePresentation(ctx, request(
			credential(t, credmodels.FormatLDVC1, ldDoc),
			credential(t, credmodels.FormatJWTVC1, "raw.jwt.one"),
			credential(t, credmodels.FormatJWTVC1, "raw.jwt.two"),
		))
		require.NoError(t, err)
		require.Len(t, resp.Artifacts, 2)
		assert.Equal(t, credmodels.FormatJWTVC1, resp.Artifacts[0].Format)
		assert.Equal(t, credmodels.FormatLDVC1, resp.Artifacts[1].Format)
		assert.NotEmpty(t, resp.Artifacts[0].Token)
		assert.NotNil(t, resp.Artifacts[1].Document)
	})

	t.Run("output order is stable across runs", func(t *testing.T) {
		s := newService(t, generator.NewJWTGenerator(), generator.NewLDPGenerator(), generator.NewJOSEGenerator())
		for i := 0; i < 20; i++ {
			resp, err := s.CreatePresentation(ctx, request(
				credential(t, credmodels.FormatJOSEVC2, "raw.jose"),
				credential(t, credmodels.FormatLDVC1, ldDoc),
				credential(t, credmodels.FormatJWTVC1, "raw.jwt"),
			))
			require.NoError(t, err)
			require.Len(t, resp.Artifacts, 3)
			assert.Equal(t, credmodels.FormatJWTVC1, resp.Artifacts[0].Format)
			assert.Equal(t, credmodels.FormatLDVC1, resp.Artifacts[1].Format)
			assert.Equal(t, credmodels.FormatJOSEVC2, resp.Artifacts[2].Format)
		}
	})

	t.Run("empty input yields empty response", func(t *testing.T) {
		s := newService(t, generator.NewJWTGenerator())
		resp, err := s.CreatePresentation(ctx, request())
		require.NoError(t, err)
		assert.NotNil(t, resp.Artifacts)
		assert.Empty(t, resp.Artifacts)
	})

	t.Run("unregistered format fails the whole request", func(t *testing.T) {
		s := newService(t, generator.NewJWTGenerator())
		_, err := s.CreatePresentation(ctx, request(
			credential(t, credmodels.FormatJWTVC1, "raw.jwt"),
			credential(t, credmodels.FormatLDVC1, ldDoc),
		))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeFormatUnsupported))
	})

	t.Run("missing audience fails JWT generation", func(t *testing.T) {
		s := newService(t, generator.NewJWTGenerator())
		req := request(credential(t, credmodels.FormatJWTVC1, "raw.jwt"))
		req.Audience = ""
		_, err := s.CreatePresentation(ctx, req)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("unknown participant fails key resolution", func(t *testing.T) {
		manager := keys.NewManager()
		s := NewService(manager, did.NewStaticPublisher(manager))
		s.AddGenerator(generator.NewJWTGenerator())
		req := request(credential(t, credmodels.FormatJWTVC1, "raw.jwt"))
		req.ParticipantID = "did:web:unknown.example"
		_, err := s.CreatePresentation(ctx, req)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeKeyResolution))
	})
}

package generator

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	credmodels "idhub/internal/credential/models"
	dErrors "idhub/pkg/domain-errors"
	"idhub/pkg/requestcontext"
)

// JWTGenerator wraps JWT_VC1 credentials in a signed JWT presentation. The
// audience is mandatory: a JWT presentation without an intended verifier is
// replayable anywhere and is rejected before signing.
type JWTGenerator struct{}

func NewJWTGenerator() *JWTGenerator {
	return &JWTGenerator{}
}

func (g *JWTGenerator) Format() credmodels.Format {
	return credmodels.FormatJWTVC1
}

func (g *JWTGenerator) Generate(ctx context.Context, in Input) (Artifact, error) {
	if in.Audience == "" {
		return Artifact{}, dErrors.New(dErrors.CodeValidation, "JWT presentations require an audience")
	}

	rawCredentials := make([]string, 0, len(in.Credentials))
	for _, res := range in.Credentials {
		rawCredentials = append(rawCredentials, res.RawCredential)
	}

	now := requestcontext.Now(ctx)
	claims := jwt.MapClaims{
		"iss": in.HolderDID,
		"sub": in.HolderDID,
		"aud": in.Audience,
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"vp": map[string]interface{}{
			"@context":             []string{"https://www.w3.org/2018/credentials/v1"},
			"type":                 []string{"VerifiablePresentation"},
			"holder":               in.HolderDID,
			"verifiableCredential": rawCredentials,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	token.Header["kid"] = in.Key.KeyID

	signed, err := token.SignedString(in.Key.Private)
	if err != nil {
		return Artifact{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign JWT presentation")
	}
	return Artifact{Format: credmodels.FormatJWTVC1, Token: signed}, nil
}

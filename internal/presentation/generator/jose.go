package generator

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	credmodels "idhub/internal/credential/models"
	dErrors "idhub/pkg/domain-errors"
	"idhub/pkg/requestcontext"
)

const credentialsContextV2 = "https://www.w3.org/ns/credentials/v2"

// JOSEGenerator produces a VC data model 2.0 presentation: each credential is
// wrapped as an EnvelopedVerifiableCredential data URL and the whole
// presentation is signed as a JOSE compact token.
type JOSEGenerator struct{}

func NewJOSEGenerator() *JOSEGenerator {
	return &JOSEGenerator{}
}

func (g *JOSEGenerator) Format() credmodels.Format {
	return credmodels.FormatJOSEVC2
}

func (g *JOSEGenerator) Generate(ctx context.Context, in Input) (Artifact, error) {
	enveloped := make([]interface{}, 0, len(in.Credentials))
	for _, res := range in.Credentials {
		enveloped = append(enveloped, map[string]interface{}{
			"@context": []string{credentialsContextV2},
			"id":       "data:application/vc+jwt," + res.RawCredential,
			"type":     "EnvelopedVerifiableCredential",
		})
	}

	now := requestcontext.Now(ctx)
	claims := jwt.MapClaims{
		"iss": in.HolderDID,
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"vp": map[string]interface{}{
			"@context":             []string{credentialsContextV2},
			"type":                 "VerifiablePresentation",
			"holder":               in.HolderDID,
			"verifiableCredential": enveloped,
		},
	}
	if in.Audience != "" {
		claims["aud"] = in.Audience
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	token.Header["kid"] = in.Key.KeyID
	token.Header["typ"] = "vp+jwt"

	signed, err := token.SignedString(in.Key.Private)
	if err != nil {
		return Artifact{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign JOSE presentation")
	}
	return Artifact{Format: credmodels.FormatJOSEVC2, Token: signed}, nil
}

package generator

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"time"

	credmodels "idhub/internal/credential/models"
	dErrors "idhub/pkg/domain-errors"
	"idhub/pkg/requestcontext"
)

// LDPGenerator produces a linked-data-proof presentation document: the
// credential documents embedded in a VerifiablePresentation, signed with a
// detached JWS over the canonicalized document.
type LDPGenerator struct{}

func NewLDPGenerator() *LDPGenerator {
	return &LDPGenerator{}
}

func (g *LDPGenerator) Format() credmodels.Format {
	return credmodels.FormatLDVC1
}

func (g *LDPGenerator) Generate(ctx context.Context, in Input) (Artifact, error) {
	embedded := make([]interface{}, 0, len(in.Credentials))
	for _, res := range in.Credentials {
		var doc map[string]interface{}
		if err := json.Unmarshal([]byte(res.RawCredential), &doc); err != nil {
			return Artifact{}, dErrors.Wrap(err, dErrors.CodeValidation,
				"LD credential "+res.ID.String()+" is not a JSON document")
		}
		embedded = append(embedded, doc)
	}

	document := map[string]interface{}{
		"@context":             []interface{}{"https://www.w3.org/2018/credentials/v1", "https://w3id.org/security/suites/jws-2020/v1"},
		"type":                 []interface{}{"VerifiablePresentation"},
		"holder":               in.HolderDID,
		"verifiableCredential": embedded,
	}

	jws, err := detachedJWS(document, in.Key.Private)
	if err != nil {
		return Artifact{}, err
	}
	document["proof"] = map[string]interface{}{
		"type":               "JsonWebSignature2020",
		"created":            requestcontext.Now(ctx).Format(time.RFC3339),
		"proofPurpose":       "authentication",
		"verificationMethod": in.VerificationMethod,
		"jws":                jws,
	}
	return Artifact{Format: credmodels.FormatLDVC1, Document: document}, nil
}

// detachedJWS signs the canonical form of the document (stable key order via
// encoding/json map marshaling) and returns a detached compact JWS: the
// payload segment is empty, the header carries b64:false per RFC 7797.
func detachedJWS(document map[string]interface{}, key ed25519.PrivateKey) (string, error) {
	payload, err := json.Marshal(document)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to canonicalize presentation document")
	}
	header, err := json.Marshal(map[string]interface{}{
		"alg":  "EdDSA",
		"b64":  false,
		"crit": []string{"b64"},
	})
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode JWS header")
	}

	encodedHeader := base64.RawURLEncoding.EncodeToString(header)
	signingInput := append([]byte(encodedHeader+"."), payload...)
	signature := ed25519.Sign(key, signingInput)

	return encodedHeader + ".." + base64.RawURLEncoding.EncodeToString(signature), nil
}

// Package keys provides signing-key material for participant contexts. The
// Resolver interface is the consumption side used by presentation generation;
// Manager is the local implementation that also serves key provisioning and
// cleanup during the participant lifecycle.
package keys

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"sync"

	id "idhub/pkg/domain"
	dErrors "idhub/pkg/domain-errors"
)

// KeyUsage distinguishes what a resolved key will sign.
type KeyUsage string

const (
	UsagePresentation KeyUsage = "presentation"
	UsageToken        KeyUsage = "token"
)

// SigningKey is resolved key material plus the identifiers verifiers need.
type SigningKey struct {
	// KeyID is the verification method identifier published alongside the
	// participant's DID document.
	KeyID     string
	Algorithm string
	Private   ed25519.PrivateKey
	Public    ed25519.PublicKey
}

// Resolver yields the signing key for a participant. Implementations must
// honor the caller's context deadline.
type Resolver interface {
	ResolveSigningKey(ctx context.Context, participant id.ParticipantID, usage KeyUsage) (SigningKey, error)
}

// Manager is an in-memory ed25519 key registry. Production deployments would
// back this with an HSM or vault; the interface boundary is what matters to
// the rest of the service.
type Manager struct {
	mu   sync.RWMutex
	keys map[id.ParticipantID]SigningKey
}

func NewManager() *Manager {
	return &Manager{keys: map[id.ParticipantID]SigningKey{}}
}

// Provision creates and stores a default signing key for a new participant.
// The key identifier hangs off the participant's DID, not its registry ID, so
// verifiers find it in the DID document (`<did>#key-1`). Provisioning twice
// for the same participant keeps the existing key.
func (m *Manager) Provision(ctx context.Context, participant id.ParticipantID, holderDID string) (SigningKey, error) {
	if err := ctxErr(ctx); err != nil {
		return SigningKey{}, err
	}
	if holderDID == "" {
		return SigningKey{}, dErrors.New(dErrors.CodeInvalidInput, "participant DID is required to provision a key")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if key, ok := m.keys[participant]; ok {
		return key, nil
	}
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return SigningKey{}, dErrors.Wrap(err, dErrors.CodeInternal, "generating signing key")
	}
	key := SigningKey{
		KeyID:     holderDID + "#key-1",
		Algorithm: "EdDSA",
		Private:   priv,
		Public:    pub,
	}
	m.keys[participant] = key
	return key, nil
}

// Remove discards the participant's key material. Removing an absent key is
// not an error; participant cleanup retries this path.
func (m *Manager) Remove(ctx context.Context, participant id.ParticipantID) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, participant)
	return nil
}

// ResolveSigningKey implements Resolver.
func (m *Manager) ResolveSigningKey(ctx context.Context, participant id.ParticipantID, _ KeyUsage) (SigningKey, error) {
	if err := ctxErr(ctx); err != nil {
		return SigningKey{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	key, ok := m.keys[participant]
	if !ok {
		return SigningKey{}, dErrors.New(dErrors.CodeKeyResolution, "no signing key for participant "+participant.String())
	}
	return key, nil
}

// ctxErr maps an expired context onto the retryable timeout code so callers
// see the same error shape for every slow dependency.
func ctxErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return dErrors.WrapExternal(err, "key store unavailable")
	}
	return nil
}

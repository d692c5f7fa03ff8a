// Package models defines the participant context, the tenant unit everything
// else in the service is scoped by.
package models

import (
	"strings"
	"time"

	id "idhub/pkg/domain"
	dErrors "idhub/pkg/domain-errors"
)

// State is the lifecycle state of a participant context.
type State string

const (
	StateCreated     State = "CREATED"
	StateActivated   State = "ACTIVATED"
	StateDeactivated State = "DEACTIVATED"
)

// stateTransitions is linear; DEACTIVATED is terminal.
var stateTransitions = map[State][]State{
	StateCreated:     {StateActivated, StateDeactivated},
	StateActivated:   {StateDeactivated},
	StateDeactivated: {},
}

func ParseState(s string) (State, error) {
	state := State(s)
	if _, ok := stateTransitions[state]; !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown participant state: "+s)
	}
	return state, nil
}

func (s State) CanTransition(to State) bool {
	for _, allowed := range stateTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Manifest is the external request to onboard a participant. The ID is
// assigned by the dataspace authority, not minted here.
type Manifest struct {
	ParticipantID string            `json:"participantId"`
	DID           string            `json:"did"`
	Active        bool              `json:"active"`
	Roles         []string          `json:"roles,omitempty"`
	Properties    map[string]string `json:"properties,omitempty"`
}

func (m Manifest) Validate() error {
	if _, err := id.ParseParticipantID(m.ParticipantID); err != nil {
		return err
	}
	if strings.TrimSpace(m.DID) == "" {
		return dErrors.New(dErrors.CodeValidation, "manifest DID is required")
	}
	if !strings.HasPrefix(m.DID, "did:") {
		return dErrors.New(dErrors.CodeValidation, "manifest DID must be a DID")
	}
	return nil
}

// ParticipantContext is the stored tenant record. The record carries only the
// alias of its API token; the token itself lives in the secret store.
type ParticipantContext struct {
	ID            id.ParticipantID
	DID           string
	State         State
	Roles         []string
	APITokenAlias id.SecretAlias
	Properties    map[string]string
	CreatedAt     time.Time
	LastModified  time.Time
}

// New builds a participant context from a validated manifest.
func New(manifest Manifest, alias id.SecretAlias, now time.Time) (ParticipantContext, error) {
	if err := manifest.Validate(); err != nil {
		return ParticipantContext{}, err
	}
	if alias.IsNil() {
		return ParticipantContext{}, dErrors.New(dErrors.CodeInvariantViolation, "participant requires an API token alias")
	}
	ctx := ParticipantContext{
		ID:            id.ParticipantID(manifest.ParticipantID),
		DID:           manifest.DID,
		State:         StateCreated,
		Roles:         append([]string{}, manifest.Roles...),
		APITokenAlias: alias,
		Properties:    map[string]string{},
		CreatedAt:     now,
		LastModified:  now,
	}
	for k, v := range manifest.Properties {
		ctx.Properties[k] = v
	}
	return ctx, nil
}

// TransitionTo applies a state change after checking the transition table.
func (p *ParticipantContext) TransitionTo(state State, now time.Time) error {
	if !p.State.CanTransition(state) {
		return dErrors.New(dErrors.CodeStateTransition,
			"illegal participant state transition "+string(p.State)+" -> "+string(state))
	}
	p.State = state
	p.LastModified = now
	return nil
}

// Copy returns a deep copy so stored state is never aliased by callers.
func (p ParticipantContext) Copy() ParticipantContext {
	out := p
	out.Roles = append([]string{}, p.Roles...)
	out.Properties = make(map[string]string, len(p.Properties))
	for k, v := range p.Properties {
		out.Properties[k] = v
	}
	return out
}

// Package events defines lifecycle events emitted by the participant registry
// and credential store. Events are observational: consumers must never be on
// the critical path of the state machine, and a failed emit never rolls back
// the originating operation.
package events

import (
	"time"

	id "idhub/pkg/domain"
)

type EventType string

const (
	EventParticipantCreated   EventType = "participant.created"
	EventParticipantActivated EventType = "participant.activated"
	EventParticipantDeleting  EventType = "participant.deleting"
	EventParticipantDeleted   EventType = "participant.deleted"
	EventTokenRegenerated     EventType = "participant.token_regenerated"
	EventCredentialCreated    EventType = "credential.created"
	EventCredentialStatus     EventType = "credential.status_changed"
)

// Event is emitted from domain logic to capture lifecycle transitions. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Timestamp     time.Time         `json:"timestamp"`
	Type          EventType         `json:"type"`
	ParticipantID id.ParticipantID  `json:"participant_id"`
	CredentialID  id.CredentialID   `json:"credential_id,omitempty"`
	Detail        map[string]string `json:"detail,omitempty"`
}

package domain

import "time"

// Session represents one pairing slot in the registry.
//
// The ID is an opaque string supplied by the initiating client, never
// generated server-side. A session has at most two participants: the first
// client to init becomes the initiator, the second the joiner, strictly in
// arrival order. There is no reconnection or resume semantics for a slot once
// both roles are filled.
type Session struct {
	// ID is the client-supplied session identifier and unique registry key.
	ID string `json:"id"`

	// InitiatorID is the opaque identifier of the first participant.
	InitiatorID string `json:"initiator_id"`

	// JoinerID is the opaque identifier of the second participant, empty
	// until someone joins.
	JoinerID string `json:"joiner_id,omitempty"`

	// StartTime is the creation timestamp. Idle reaping is measured from
	// this, not from last activity.
	StartTime time.Time `json:"start_time"`

	// Active is false once the session has been torn down. An inactive
	// session does not exist in the registry.
	Active bool `json:"active"`
}

// NewSession creates a fresh session with the given initiator bound.
func NewSession(id, initiatorID string, at time.Time) *Session {
	return &Session{
		ID:          id,
		InitiatorID: initiatorID,
		StartTime:   at,
		Active:      true,
	}
}

// Full reports whether both participant roles are bound.
func (s *Session) Full() bool {
	return s.JoinerID != ""
}

// Age returns how long the session has existed as of now.
func (s *Session) Age(now time.Time) time.Duration {
	return now.Sub(s.StartTime)
}

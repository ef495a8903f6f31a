package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the
// registry, or the session is no longer active.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionFull is returned when a third client attempts to join a session
// that already has both participants bound.
var ErrSessionFull = errors.New("session is full")

// ErrPeerUnavailable is returned when the counterparty's connection is closed
// or was never bound. The message is dropped, not queued.
var ErrPeerUnavailable = errors.New("peer not connected")

// ErrEmptyPayload is returned when a relay frame carries no message content.
var ErrEmptyPayload = errors.New("no message content")

package ports

import (
	"context"

	"github.com/voyago/parley/pkg/domain"
)

// SessionStore is the session directory: a mirror of the registry's session
// records used for inspection and the admin CLI. The hub's in-memory map
// remains authoritative for relaying; live connection handles never pass
// through a store.
type SessionStore interface {
	// Save persists the record for a session ID, overwriting any previous one.
	Save(ctx context.Context, session *domain.Session) error

	// Load retrieves the record for a session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.Session, error)

	// Delete removes the record for a session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of all stored sessions.
	List(ctx context.Context) ([]string, error)
}

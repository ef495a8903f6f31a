package ports

import (
	"context"

	"github.com/voyago/parley/pkg/domain"
)

// Peer is an opaque sender handle for one participant's live connection. The
// hub holds Peers instead of raw sockets so it never touches transport
// framing, and "is still open" is a query on the handle rather than an
// inspection of transport internals.
type Peer interface {
	// Send delivers a frame to the participant. Send may fail once the
	// underlying connection is gone; callers treat delivery as best-effort.
	Send(ctx context.Context, msg domain.ServerMessage) error

	// Open reports whether the underlying connection is still usable.
	Open() bool
}

/*
Package parley is a real-time session relay for two-party translation
conversations.

It pairs two clients into a session keyed by a client-supplied identifier and
forwards opaque encrypted messages between them over WebSocket, with heartbeat
echoes, explicit and disconnect-driven teardown, and periodic reaping of aged
sessions. The relay is an untrusted middleman: it never sees plaintext, only
ciphertext envelopes and session metadata.

# Architecture

Parley follows a Hexagonal Architecture. The hub owns the session registry and
all routing decisions; the transport adapter terminates WebSockets and speaks
the JSON wire protocol; session records can be mirrored to a pluggable
directory store (in-memory or Redis) for out-of-process inspection.

# Usage

Embed the relay in an HTTP server:

	package main

	import (
		"context"
		"log"
		"net/http"

		"github.com/voyago/parley"
	)

	func main() {
		relay := parley.New()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go relay.Run(ctx) // idle reaper

		log.Fatal(http.ListenAndServe(":8080", relay.Handler()))
	}

Clients connect to /ws and exchange the frames described in the ws package.
*/
package parley

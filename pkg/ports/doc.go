/*
Package ports defines the driven ports (interfaces) for the Parley relay.

These interfaces decouple the hub from external implementations, allowing the
relay to work with various session directories and transports.

# Key Interfaces

  - SessionStore: Responsible for mirroring session records (e.g., in memory or Redis).
  - Peer: An opaque sender handle for one participant's live connection.
*/
package ports

/*
Package domain contains the core domain models for the Parley relay.

It defines the fundamental entities of the translation-session protocol: the
Session record pairing two clients, the closed set of wire message kinds, and
the sentinel errors shared by every layer. This package is kept pure and free
of external dependencies like I/O or persistence, following Hexagonal
Architecture principles.

# Key Entities

  - Session: A server-side record pairing exactly two clients for message relay.
  - ClientMessage / ServerMessage: The JSON frames exchanged over the transport.
  - MessageType: The closed enumeration of recognized frame kinds.
*/
package domain

/*
Package hub implements the session registry and message routing of the Parley
relay.

The Hub owns the registry of two-party sessions and the user-to-session index.
Both are guarded by a single mutex: every operation runs to completion under
it, and the idle-reap pass takes the same lock, so admission, relaying, and
reaping never interleave mid-handler. The Hub holds participant connections
behind the opaque ports.Peer handle and treats every payload as an
uninterpreted blob.
*/
package hub

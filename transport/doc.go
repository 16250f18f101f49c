// Package transport owns the string-transport attachment points a channel
// runs over.
//
// Ownership boundary:
// - the push-style port contract
// - synchronous in-memory pair for same-process peers
// - WebSocket client adapter for relayed peers
package transport

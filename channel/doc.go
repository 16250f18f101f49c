// Package channel owns the correlated-messaging core between two peers.
//
// Ownership boundary:
// - transaction id allocation and table lifecycle
// - inbound gating, classification, and routing
// - readiness handshake with outbound queuing
// - handler fault normalization toward the remote caller
//
// A channel is event-driven: all state changes happen inside the
// synchronous processing of one inbound transport event or one facade
// call. Dispatch is re-entrant; a handler may call back into the facade
// and a synchronous transport may route the reply before the handler
// returns. No lock is ever held across a handler invocation or a
// transport send.
package channel

// Package relay owns the WebSocket bridge between two channel endpoints.
//
// Ownership boundary:
// - pair membership: the first two sockets naming a pair id are joined
// - verbatim text-frame forwarding with per-connection frame limits
// - the bridge HTTP surface (health, metrics, upgrade route)
//
// The relay never parses channel payloads. Frames may be dropped under
// pressure; correlation and readiness recovery belong to the channel layer.
package relay

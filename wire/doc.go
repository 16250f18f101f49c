// Package wire owns the message contract between channel peers.
//
// Ownership boundary:
// - wire field names and presence tracking
// - classification precedence for routing
// - scope and origin gates applied before routing
package wire

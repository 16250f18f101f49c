// Package value models the structured values exchanged over a channel.
//
// Ownership boundary:
// - tagged variant covering the JSON data model plus invocable leaves
// - order-preserving object codec
// - callback path extraction and splicing
package value

// Package protocol is the Go reference codec for generated messages.
//
// Ownership boundary:
// - typed field values and clamping on write
// - payload encode/decode in declaration order
// - dispatch from a frame to its message
// - deterministic sample values used as cross-language test vectors
package protocol

// Package tools provides process execution helpers for harnesses that build
// and run emitted code.
//
// Ownership boundary:
// - command execution helpers
//
// - host toolchain detection
package tools

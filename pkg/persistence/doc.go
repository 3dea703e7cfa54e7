// Package persistence connects in-memory session stores to a Persistence
// Bridge (ports.VariableStore).
//
// The Mirror is write-through and fire-and-forget: committed changes are
// queued and written by a background worker. Bridge failures are logged and
// never reach the execution pass that caused them.
//
// Sub-package middleware provides VariableStore decorators (encryption at
// rest, PII masking).
package persistence

// Package store provides the durable key-value storage nodeledger keeps its
// collections in.
//
// Every value is a serialized JSON blob under a string key. The store knows
// nothing about records; callers decode what they read.
//
// # Backends
//
//   - SQLite (default): one kv table, WAL mode, one statement per write
//   - Bolt: one bbolt bucket, one update transaction per write
//   - Memory: a map, for tests and throwaway sessions
//
// # Atomicity
//
// Set replaces the whole value of a key in one statement or transaction.
// A failed Set leaves the previous value visible to subsequent reads, which
// is what lets the ledger commit a full post-merge collection at once.
//
// Failures are returned as *Error so callers can tell storage failures
// apart from validation problems.
package store

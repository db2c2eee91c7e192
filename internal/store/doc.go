// Package store provides SQLite-backed durable storage for the protocol catalog.
//
// The store maps a unique protocol id to its encoded record bytes:
//   - protocols(seq, id, body)
//   - seq is the insertion order and the only presentation order
//   - id is UNIQUE; a duplicate can never be durably observed
//
// # Write Model
//
// There is no per-record insert, update or delete. The only write is
// ReplaceAll, which drops and recreates the table and inserts the new set
// inside a single transaction. A crash or I/O error mid-write leaves either
// the previous contents or the complete new contents on disk.
//
// # Deterministic Query Results
//
// All scans use ORDER BY seq ASC.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
//
// SQLite's own file locking is the backstop against two processes writing
// the same file; the store does no in-process locking beyond a single
// connection.
package store

// Package storage provides run store implementations.
//
// Implementations:
//   - redis: Redis with JSON serialization and TTL
//   - sqlite: SQLite through database/sql and modernc.org/sqlite
//   - memory: In-memory for single-instance deployments and tests
//
// Every implementation reports unknown runs with ErrNotFound.
package storage

import "github.com/aescanero/chloe/pkg/ports"

// ErrNotFound is returned for unknown run IDs
var ErrNotFound = ports.ErrNotFound

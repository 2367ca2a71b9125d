// Package events provides event bus implementations.
//
// Implementations:
//   - redis: Redis Streams, every subscriber reads the full stream
//   - memory: In-process fan-out for single-instance deployments and tests
package events

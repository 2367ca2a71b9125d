// Package ports declares the interfaces the application core depends on.
// Adapters under pkg/adapters implement them.
package ports

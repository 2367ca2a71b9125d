// Package grpc serves the standard gRPC health service, driven by the
// worker pool health, plus server reflection.
package grpc

// Package websocket provides real-time event streaming via WebSocket.
//
// Clients connect to /api/v1/runs/:id/ws. The first message is a snapshot
// of the run; run and node events follow until the run reaches a terminal
// status, at which point the server closes the connection.
package websocket

// Package ws implements the WebSocket hub for energy-audit-server.
//
// Hub manages a set of connected clients. Every client gets the runs
// snapshot on connect and on a configurable interval. When the server
// records a finished run it calls Notify, which sends a run.completed event
// with that run and its diagnostics, then a fresh snapshot.
//
// Messages sent to clients:
//
//	{"event": "snapshot",      "data": { /* GET /api/v1/snapshot */ }}
//	{"event": "run.completed", "data": { /* GET /api/v1/runs/{id} */ }}
//
// The upgrader accepts all origins. Apply CORS restrictions at the reverse
// proxy level. The server mounts the hub at /ws/stream.
package ws

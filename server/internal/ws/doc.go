// Package ws implements the live dataset feed served at /ws/stream.
//
// Hub keeps the set of connected clients and pushes the summary of the
// dataset currently served: immediately on connect and right after a dataset
// swap (Notify). The broadcast interval only catches versions that were
// swapped in without a Notify; an unchanged dataset is not re-sent, and
// WebSocket pings keep idle connections alive.
//
// Message format sent to clients:
//
//	{
//	  "event": "dataset",          // "waiting" before the first load
//	  "data":  { /* same schema as GET /api/v1/dataset */ }
//	}
//
// The upgrader accepts all origins. Apply CORS restrictions at the reverse
// proxy level.
package ws

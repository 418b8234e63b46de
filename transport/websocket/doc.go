// Package websocket provides the live WebSocket transport for gridsnake.
//
// The package implements:
//   - Per-location fan-out of round frames and final summaries
//   - Player input over the same connection
//   - JSON text frames, or msgpack binary frames with ?format=msgpack
//   - Connection lifecycle management with pings
//
// Architecture:
//
// The package uses a hub-and-spoke model where a central Hub manages all
// WebSocket connections. Every client belongs to one location. Each
// connection is handled by a read and a write goroutine; the client map is
// only touched by the hub loop in Run. Hub implements service.Sink so the
// session manager can publish to it directly, and Publish never blocks a
// running round.
//
// Message Protocol:
//
//   - Incoming: {"player_id": "123", "action": "up|right|down|left|cancel"}
//   - Outgoing: {"location": "...", "event": "frame", "frame": {...}}
//     {"location": "...", "event": "summary", "summary": {...}}
//     {"location": "...", "event": "queued", "queued": true}
//     {"location": "...", "event": "error", "error": "..."}
//
// Msgpack clients use the same field names.
package websocket

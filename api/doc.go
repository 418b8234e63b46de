// Package api provides the HTTP REST API for Grid Snake.
//
// Endpoints:
//
// Rounds:
//   - POST /api/sessions - Start a round ({"location","mode","requester","mentions"})
//   - GET /api/sessions - List running rounds (?order=asc|desc&limit=N)
//   - GET /api/sessions/{location} - Round details, state and ranking
//   - POST /api/sessions/{location}/input - Queue {"player_id","action"}
//   - GET /api/sessions/{location}/rankings - Current ranking
//   - GET /api/sessions/{location}/board - Board as plain text
//
// Finished rounds:
//   - GET /api/results - Archived summaries, newest first
//   - GET /api/results/{id} - One summary
//
// Chat adapter:
//   - POST /api/chat/{location}/messages - {"author":{"id","name"},"content"}
//   - POST /api/chat/{location}/reactions - {"user_id","emoji"}
//   - GET /api/chat/{location} - Latest status message
//
// Misc:
//   - GET /api/help - Help text from the message catalog
//   - GET /healthz - Health check
//   - GET /ws?location=... - WebSocket frames for a location
//
// Errors are returned as {"error": "..."}. Start rejections carry the
// catalog message: 409 when a round is already running, 400 otherwise.
// Unknown locations and result ids are 404.
package api

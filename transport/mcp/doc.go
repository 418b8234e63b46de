// Package mcp exposes Grid Snake to Model Context Protocol clients.
//
// The Client is a thin proxy: every tool calls the REST API of a running
// server, so rounds started over MCP are the same rounds chat players and
// WebSocket viewers see.
//
// Tools:
//   - start_round: start a snake or solo round at a location
//   - send_input: queue a heading or a cancel for a player
//   - get_board: board and ranking of a running round
//   - rankings: ranking of a running round
//   - list_sessions: running rounds
//   - list_results: finished rounds, newest first
//   - game_instructions: rules and controls
//
// Transport Modes:
//
//	// Stdio
//	server.ServeStdio(mcp.NewClient(baseURL).GetMCPServer())
//
//	// HTTP, one JSON-RPC message per POST
//	router.Handle("/mcp", mcp.NewClient(baseURL))
package mcp

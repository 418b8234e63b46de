// Package service provides the business logic layer for gridsnake.
//
// The service package defines the contracts every other layer shares:
//   - DTOs for start requests, inputs, frames, rankings and round summaries
//   - The start rejection errors, checked in a fixed order
//   - SessionManager, CatalogManager, ResultArchive, Sink and NameResolver
//
// Core Interfaces:
//
// GameService is the facade the transports talk to. It forwards rounds to a
// SessionManager, reads finished rounds from a ResultArchive and turns start
// rejections into RejectedError values carrying the catalog text a player
// should see.
//
// Usage:
//
//	sessions := session.NewManager(archive, session.WithSink(hub))
//	catalogs, _ := config.NewManager("catalogs")
//	gameService := service.NewGameService(sessions, catalogs, archive)
//
//	info, err := gameService.StartRound(ctx, service.StartRequest{
//		Location:  "general",
//		Mode:      engine.ModeSnake,
//		Requester: 1,
//		Mentions:  []service.Mention{{ID: 1}, {ID: 2}},
//	})
//	var rejected *service.RejectedError
//	if errors.As(err, &rejected) {
//		fmt.Println(rejected.Message)
//	}
//
//	gameService.SendInput(ctx, "general", service.Input{PlayerID: 2, Action: engine.ActionUp})
//
// Identifiers:
//
// Player ids are 64-bit and always travel as JSON strings so that clients
// without 64-bit integers keep them intact.
package service

// Package session runs gridsnake rounds.
//
// Manager is a registry of running rounds keyed by location, guarded by a
// read-write mutex. Start validates a request, creates the Game and hands it
// to a goroutine of its own. That goroutine is the only code that ever
// touches the Game:
//
//	every tick interval:
//		drain the inbox without blocking
//		advance the game one tick
//		publish a snapshot and a frame
//		on an outcome: publish the summary, archive it, free the location
//
// Send puts inputs into a buffered inbox and never blocks. Inputs for a full
// inbox, an ended round or an unknown location are dropped.
//
// Readers such as the REST API only ever see the snapshot published after the
// last tick, via Get and List.
//
// FileArchive keeps the summaries of finished rounds as JSON files, one per
// round, and can prune old ones.
//
// Usage:
//
//	archive, _ := session.NewFileArchive("results")
//	manager := session.NewManager(archive, session.WithSink(hub))
//	defer manager.Shutdown(ctx)
//
//	info, err := manager.Start(ctx, service.StartRequest{
//		Location:  "general",
//		Mode:      engine.ModeSolo,
//		Requester: 42,
//	})
//	manager.Send("general", service.Input{PlayerID: 42, Action: engine.ActionUp})
package session

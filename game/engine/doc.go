// Package engine provides the core game logic for gridsnake.
//
// The engine package implements the game mechanics including:
//   - A fixed 64x24 toroidal grid where movement wraps at every edge
//   - Multiplayer snakes with fruit growth, kills and deaths
//   - Simultaneous head-on collision detection
//   - Win-condition policy for multiplayer and solo rounds
//   - Board rendering and end-of-round rankings
//
// Core Types:
//
// Game owns the Board and the ordered roster of Players. Players are stored
// by value and referred to by their roster index everywhere else, including
// the board cells they occupy. Vector2 is the grid coordinate and Action the
// direction (or cancel) a player can request.
//
// Usage:
//
//	game, err := engine.NewGame(engine.ModeSnake, requester, []uint64{a, b})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	game.ApplyInput(a, engine.ActionUp)
//	result := game.Tick()
//	fmt.Println(result.Board)
//	if result.Done() {
//		ranking := game.Rankings()
//	}
//
// Game Rules:
//
// Each tick a fruit may appear on a random empty cell. Every living snake then
// advances one cell in roster order. Eating fruit grows the snake and scores a
// point; running into any occupied cell kills the mover and credits the owner
// of that cell with a kill worth three points. Two snakes whose heads land on
// the same cell in the same tick both die. A multiplayer round ends when at
// most one snake survives, a solo round only when its snake dies.
//
// Concurrency:
//
// A Game is not safe for concurrent use. The session package guarantees a
// single goroutine owns each running Game.
package engine

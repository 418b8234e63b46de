package engine

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/rand"
)

var (
	ErrUnknownMode    = errors.New("unknown game mode")
	ErrNoPlayers      = errors.New("no players")
	ErrTooManyPlayers = errors.New("too many players")
)

// RandSource is the randomness the engine draws fruit placement from
type RandSource interface {
	Float64() float64
	Intn(n int) int
}

// Option configures a Game at construction
type Option func(*Game)

// WithRand replaces the default time-seeded source
func WithRand(src RandSource) Option {
	return func(g *Game) {
		g.rng = src
	}
}

// WithStage sets the opaque stage handle echoed back to collaborators
func WithStage(stage uint64) Option {
	return func(g *Game) {
		g.Stage = stage
	}
}

// NewRand returns a PCG-backed source seeded with seed
func NewRand(seed uint64) RandSource {
	return rand.New(rand.NewSource(seed))
}

// Game is one round of snake
type Game struct {
	Mode  string
	Stage uint64

	board   *Board
	players []Player
	rng     RandSource
	tick    int

	// aliveBefore[i] is whether player i was alive when the last tick ended
	aliveBefore []bool
}

// NewGame creates a round for the given roster. In solo mode the roster is
// replaced by the initiator alone.
func NewGame(mode string, initiator uint64, ids []uint64, opts ...Option) (*Game, error) {
	switch mode {
	case ModeSnake:
	case ModeSolo:
		ids = []uint64{initiator}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	if len(ids) == 0 {
		return nil, ErrNoPlayers
	}
	if len(ids) > MaxPlayers {
		return nil, fmt.Errorf("%w: %d (max %d)", ErrTooManyPlayers, len(ids), MaxPlayers)
	}

	g := &Game{
		Mode:    mode,
		board:   NewBoard(BoardWidth, BoardHeight),
		players: make([]Player, 0, len(ids)),

		aliveBefore: make([]bool, len(ids)),
	}

	for i, id := range ids {
		row := (spawnRows / (len(ids) + 1)) * (i + 1)
		body := []Vector2{{X: 2, Y: row}, {X: 3, Y: row}}
		for _, c := range body {
			g.board.Set(c, OccupiedBy(i))
		}
		g.players = append(g.players, NewPlayer(id, body, ActionRight))
		g.aliveBefore[i] = true
	}

	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		g.rng = NewRand(uint64(time.Now().UnixNano()))
	}

	return g, nil
}

// Board returns the live board. Callers outside the owning goroutine must use State.
func (g *Game) Board() *Board {
	return g.board
}

// TickCount returns how many ticks have been played
func (g *Game) TickCount() int {
	return g.tick
}

// PlayerCount returns the roster size
func (g *Game) PlayerCount() int {
	return len(g.players)
}

// Player returns the player at roster index i
func (g *Game) Player(i int) *Player {
	if i < 0 || i >= len(g.players) {
		return nil
	}
	return &g.players[i]
}

// PlayerByID finds a player by id
func (g *Game) PlayerByID(id uint64) (*Player, bool) {
	for i := range g.players {
		if g.players[i].ID == id {
			return &g.players[i], true
		}
	}
	return nil, false
}

// AliveCount returns the number of players still alive
func (g *Game) AliveCount() int {
	count := 0
	for i := range g.players {
		if !g.players[i].IsDead() {
			count++
		}
	}
	return count
}

// ApplyInput routes one input event to its player. Cancel marks the player
// dead even if it already is; other actions only steer living players.
// Unknown ids are ignored and reported as false.
func (g *Game) ApplyInput(id uint64, action Action) bool {
	p, ok := g.PlayerByID(id)
	if !ok {
		return false
	}
	if action == ActionCancel {
		p.MarkDead()
		return true
	}
	if !p.IsDead() {
		p.SetHeading(action)
	}
	return true
}

// State returns a deep, serializable snapshot of the game
func (g *Game) State() *GameState {
	state := &GameState{
		Mode:    g.Mode,
		Stage:   g.Stage,
		Tick:    g.tick,
		Width:   g.board.Width(),
		Height:  g.board.Height(),
		Board:   g.Render(),
		Players: make([]PlayerState, 0, len(g.players)),
	}
	for i := range g.players {
		state.Players = append(state.Players, playerState(i, &g.players[i]))
	}
	return state
}

func playerState(index int, p *Player) PlayerState {
	body := make([]Vector2, len(p.Coords))
	copy(body, p.Coords)
	return PlayerState{
		ID:             p.ID,
		Index:          index,
		Glyph:          glyphFor(index),
		Body:           body,
		Heading:        p.Heading.String(),
		Fruit:          p.Score,
		Kills:          p.Kills,
		EffectiveScore: p.EffectiveScore(),
		Alive:          !p.IsDead(),
	}
}

package engine

import (
	"fmt"
	"strings"
)

// Game modes
const (
	ModeSnake = "snake"
	ModeSolo  = "solo"
)

const (
	BoardWidth  = 64
	BoardHeight = 24

	MaxPlayers    = 5
	PointsPerKill = 3

	// FruitChance is the probability of a fruit being placed on any given tick.
	FruitChance = 0.3

	// spawnRows is the number of rows the starting positions are spread over.
	spawnRows = 21

	EmptyGlyph = "-"
	FruitGlyph = "&"
	HeadGlyph  = "O"
)

// PlayerGlyphs holds the body glyph of each roster index.
var PlayerGlyphs = [...]string{"#", "@", "%", "$", "*", "z", "+", "=", "?", "Q"}

// BoardSize is the bounds vector every translation wraps into.
var BoardSize = Vector2{X: BoardWidth, Y: BoardHeight}

// Vector2 represents x,y grid coordinates
type Vector2 struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Translate moves v by delta and wraps the result into [0,bounds) on both axes.
// delta is always a unit step or the zero vector, so a single wrap pass is enough.
func (v Vector2) Translate(delta, bounds Vector2) Vector2 {
	r := Vector2{X: v.X + delta.X, Y: v.Y + delta.Y}
	if r.X < 0 {
		r.X += bounds.X
	}
	if r.Y < 0 {
		r.Y += bounds.Y
	}
	if r.X >= bounds.X {
		r.X %= bounds.X
	}
	if r.Y >= bounds.Y {
		r.Y %= bounds.Y
	}
	return r
}

// Action is a heading request. ActionCancel doubles as the zero heading.
type Action int

const (
	ActionCancel Action = iota
	ActionUp
	ActionRight
	ActionDown
	ActionLeft
)

var actionNames = map[Action]string{
	ActionCancel: "cancel",
	ActionUp:     "up",
	ActionRight:  "right",
	ActionDown:   "down",
	ActionLeft:   "left",
}

// Delta returns the unit vector for the action.
func (a Action) Delta() Vector2 {
	switch a {
	case ActionUp:
		return Vector2{X: 0, Y: -1}
	case ActionRight:
		return Vector2{X: 1, Y: 0}
	case ActionDown:
		return Vector2{X: 0, Y: 1}
	case ActionLeft:
		return Vector2{X: -1, Y: 0}
	default:
		return Vector2{}
	}
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "unknown"
}

// ParseAction maps "up", "right", "down", "left" and "cancel" (any case) to an Action.
func ParseAction(s string) (Action, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for a, name := range actionNames {
		if name == s {
			return a, true
		}
	}
	return ActionCancel, false
}

func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Action) UnmarshalText(text []byte) error {
	parsed, ok := ParseAction(string(text))
	if !ok {
		return fmt.Errorf("unknown action %q", string(text))
	}
	*a = parsed
	return nil
}

// CellKind represents the content of a grid cell
type CellKind int

const (
	Empty CellKind = iota
	Fruit
	Occupied
)

// Cell is a single grid cell. Player is the roster index when Kind is Occupied.
type Cell struct {
	Kind   CellKind
	Player int
}

// OccupiedBy returns a cell marked with the given roster index.
func OccupiedBy(index int) Cell {
	return Cell{Kind: Occupied, Player: index}
}

// KillEvent records that Killer's body stopped Victim during a tick.
type KillEvent struct {
	Killer int `json:"killer"`
	Victim int `json:"victim"`
}

// TickResult is everything a single call to Tick produced.
type TickResult struct {
	Tick        int         `json:"tick"`
	Board       string      `json:"board"`
	Outcome     []uint64    `json:"outcome,omitempty"`
	Casualties  []uint64    `json:"casualties,omitempty"`
	Kills       []KillEvent `json:"kills,omitempty"`
	FruitPlaced bool        `json:"fruit_placed"`
}

// Done reports whether the round ended on this tick.
func (r TickResult) Done() bool {
	return len(r.Outcome) > 0
}

// PlayerState is a serializable view of one player
type PlayerState struct {
	ID             uint64    `json:"id,string"`
	Index          int       `json:"index"`
	Glyph          string    `json:"glyph"`
	Body           []Vector2 `json:"body"`
	Heading        string    `json:"heading"`
	Fruit          int       `json:"fruit"`
	Kills          int       `json:"kills"`
	EffectiveScore int       `json:"score"`
	Alive          bool      `json:"alive"`
}

// GameState represents the complete observable game state
type GameState struct {
	Mode    string        `json:"mode"`
	Stage   uint64        `json:"stage,omitempty,string"`
	Tick    int           `json:"tick"`
	Width   int           `json:"width"`
	Height  int           `json:"height"`
	Board   string        `json:"board"`
	Players []PlayerState `json:"players"`
}

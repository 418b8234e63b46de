package engine

// Player is one snake. Coords are tail-first, head-last.
type Player struct {
	ID      uint64
	Coords  []Vector2
	Heading Action
	Score   int
	Kills   int
	dead    bool
}

// NewPlayer creates a living player with the given body and heading
func NewPlayer(id uint64, body []Vector2, heading Action) Player {
	coords := make([]Vector2, len(body))
	copy(coords, body)
	return Player{ID: id, Coords: coords, Heading: heading}
}

// SetHeading overwrites the pending heading. Reversing into the neck is allowed.
func (p *Player) SetHeading(h Action) {
	p.Heading = h
}

func (p *Player) MarkDead() {
	p.dead = true
}

func (p *Player) IsDead() bool {
	return p.dead
}

// EffectiveScore is the ranking score: fruit plus the kill bonus
func (p *Player) EffectiveScore() int {
	return p.Score + p.Kills*PointsPerKill
}

// Head returns the most recently added body coordinate
func (p *Player) Head() Vector2 {
	if len(p.Coords) == 0 {
		return Vector2{}
	}
	return p.Coords[len(p.Coords)-1]
}

func (p *Player) Len() int {
	return len(p.Coords)
}

// clone returns a deep copy safe to hand out of the owning goroutine
func (p *Player) clone() Player {
	c := *p
	c.Coords = make([]Vector2, len(p.Coords))
	copy(c.Coords, p.Coords)
	return c
}

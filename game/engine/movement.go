package engine

// Tick advances the round by exactly one step.
//
// Players move in roster order against the board as it is being updated, so
// an earlier mover can change what a later mover runs into. Kill credits are
// collected during the scan and applied once every player has moved.
func (g *Game) Tick() TickResult {
	g.tick++
	result := TickResult{Tick: g.tick}

	if g.rng.Float64() < FruitChance {
		result.FruitPlaced = g.placeFruit()
	}

	claims := make(map[Vector2]int)

	for i := range g.players {
		p := &g.players[i]
		if p.IsDead() {
			continue
		}

		next := p.Head().Translate(p.Heading.Delta(), g.board.Size())
		grew := false

		switch cell := g.board.At(next); cell.Kind {
		case Fruit:
			p.Score++
			grew = true
		case Occupied:
			if cell.Player != i {
				result.Kills = append(result.Kills, KillEvent{Killer: cell.Player, Victim: i})
			}
			p.MarkDead()
		}

		if !grew {
			tail := p.Coords[0]
			p.Coords = p.Coords[1:]
			g.board.Clear(tail)
		}

		g.board.Set(next, OccupiedBy(i))
		p.Coords = append(p.Coords, next)

		if first, taken := claims[next]; taken {
			g.players[first].MarkDead()
			p.MarkDead()
		} else {
			claims[next] = i
		}
	}

	for _, k := range result.Kills {
		g.players[k.Killer].Kills++
	}

	// Casualties are the players alive when the previous tick ended and dead
	// now, which also covers cancels drained right before this tick.
	for i := range g.players {
		if g.aliveBefore[i] && g.players[i].IsDead() {
			result.Casualties = append(result.Casualties, g.players[i].ID)
		}
		g.aliveBefore[i] = !g.players[i].IsDead()
	}
	result.Outcome = g.outcome(result.Casualties)
	result.Board = g.Render()
	return result
}

// outcome applies the win-condition policy after a tick
func (g *Game) outcome(casualties []uint64) []uint64 {
	alive := g.AliveCount()
	switch {
	case alive == 0:
		out := make([]uint64, len(casualties))
		copy(out, casualties)
		return out
	case alive == 1 && g.Mode != ModeSolo:
		for i := range g.players {
			if !g.players[i].IsDead() {
				return []uint64{g.players[i].ID}
			}
		}
	}
	return nil
}

// placeFruit drops a fruit on a uniformly chosen empty cell.
// A full board is left untouched.
func (g *Game) placeFruit() bool {
	empty := g.board.EmptyCells()
	if len(empty) == 0 {
		return false
	}
	g.board.Set(empty[g.rng.Intn(len(empty))], Cell{Kind: Fruit})
	return true
}

package engine

import (
	"sort"
	"strings"
)

// glyphFor returns the body glyph of a roster index
func glyphFor(index int) string {
	if index < 0 || index >= len(PlayerGlyphs) {
		return "?"
	}
	return PlayerGlyphs[index]
}

// Render draws the board as text, one line per row.
// A cell holding its occupant's current head is drawn with HeadGlyph.
func (g *Game) Render() string {
	var sb strings.Builder
	sb.Grow((g.board.Width() + 1) * g.board.Height())

	for y := 0; y < g.board.Height(); y++ {
		for x := 0; x < g.board.Width(); x++ {
			v := Vector2{X: x, Y: y}
			cell := g.board.At(v)
			switch cell.Kind {
			case Fruit:
				sb.WriteString(FruitGlyph)
			case Occupied:
				if p := g.Player(cell.Player); p != nil && p.Head() == v {
					sb.WriteString(HeadGlyph)
				} else {
					sb.WriteString(glyphFor(cell.Player))
				}
			default:
				sb.WriteString(EmptyGlyph)
			}
		}
		sb.WriteByte('\n')
	}

	return strings.TrimSpace(sb.String())
}

// Rankings returns a snapshot of every player, alive players first, each
// group ordered by effective score, highest first. Ties keep roster order.
func (g *Game) Rankings() []Player {
	players := make([]Player, len(g.players))
	for i := range g.players {
		players[i] = g.players[i].clone()
	}

	sort.SliceStable(players, func(i, j int) bool {
		return players[i].EffectiveScore() > players[j].EffectiveScore()
	})

	alive := make([]Player, 0, len(players))
	var dead []Player
	for _, p := range players {
		if p.IsDead() {
			dead = append(dead, p)
		} else {
			alive = append(alive, p)
		}
	}
	return append(alive, dead...)
}

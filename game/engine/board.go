package engine

// Board is a fixed-size grid of cells, indexed [y][x].
// It mirrors the players' bodies; the players remain the source of truth.
type Board struct {
	width  int
	height int
	cells  [][]Cell
}

// NewBoard creates a board of the given size with every cell empty
func NewBoard(width, height int) *Board {
	cells := make([][]Cell, height)
	for y := range cells {
		cells[y] = make([]Cell, width)
	}
	return &Board{width: width, height: height, cells: cells}
}

func (b *Board) Width() int  { return b.width }
func (b *Board) Height() int { return b.height }

// Size returns the board dimensions as a bounds vector
func (b *Board) Size() Vector2 {
	return Vector2{X: b.width, Y: b.height}
}

// InBounds checks whether v lies on the board
func (b *Board) InBounds(v Vector2) bool {
	return v.X >= 0 && v.X < b.width && v.Y >= 0 && v.Y < b.height
}

// At returns the cell at v. Out-of-bounds coordinates read as Empty.
func (b *Board) At(v Vector2) Cell {
	if !b.InBounds(v) {
		return Cell{}
	}
	return b.cells[v.Y][v.X]
}

// Set stores c at v. Out-of-bounds writes are ignored.
func (b *Board) Set(v Vector2, c Cell) {
	if !b.InBounds(v) {
		return
	}
	b.cells[v.Y][v.X] = c
}

// Clear empties the cell at v
func (b *Board) Clear(v Vector2) {
	b.Set(v, Cell{})
}

// EmptyCells lists every empty cell in row-major order
func (b *Board) EmptyCells() []Vector2 {
	var out []Vector2
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			if b.cells[y][x].Kind == Empty {
				out = append(out, Vector2{X: x, Y: y})
			}
		}
	}
	return out
}

// CountKind counts the cells of a specific kind
func (b *Board) CountKind(kind CellKind) int {
	count := 0
	for _, row := range b.cells {
		for _, cell := range row {
			if cell.Kind == kind {
				count++
			}
		}
	}
	return count
}

package denoiser

// NeighbourTable is a worker's static mapping from compass direction to
// either a peer rank or Absent (spec §3). It never changes after
// construction.
type NeighbourTable [NumDirections]int

// Present reports whether a neighbour exists in direction d.
func (t NeighbourTable) Present(d Direction) bool {
	return t[d] != Absent
}

// Peer returns the peer rank for direction d and whether it is present.
func (t NeighbourTable) Peer(d Direction) (rank int, ok bool) {
	r := t[d]
	return r, r != Absent
}

// PresentDirections returns the directions that have a live neighbour, in
// tag order.
func (t NeighbourTable) PresentDirections() []Direction {
	out := make([]Direction, 0, NumDirections)
	for _, d := range Directions {
		if t.Present(d) {
			out = append(out, d)
		}
	}
	return out
}

// Grid describes the coordinator's partition of the S worker ranks into a
// slavesPerRow-by-rows rectangle (spec §4.2). Ranks are assigned row-major:
// rank r sits at grid position (r / SlavesPerRow, r % SlavesPerRow).
type Grid struct {
	Workers      int
	SlavesPerRow int
}

// Rows is the number of grid rows implied by Workers and SlavesPerRow.
func (g Grid) Rows() int {
	if g.SlavesPerRow == 0 {
		return 0
	}
	return (g.Workers + g.SlavesPerRow - 1) / g.SlavesPerRow
}

// position returns the (row, column) of rank in the grid.
func (g Grid) position(rank int) (row, col int) {
	return rank / g.SlavesPerRow, rank % g.SlavesPerRow
}

// rankAt returns the rank at (row, col), or -1 if that cell lies outside
// the grid or outside the populated rank range (the last row may be
// short when Workers is not a multiple of SlavesPerRow).
func (g Grid) rankAt(row, col int) int {
	if row < 0 || col < 0 || col >= g.SlavesPerRow || row >= g.Rows() {
		return Absent
	}
	rank := row*g.SlavesPerRow + col
	if rank >= g.Workers {
		return Absent
	}
	return rank
}

// NeighbourTableFor computes the NeighbourTable for the given rank (spec
// §4.2). Edge detection: a neighbour is Absent when its grid coordinate
// falls outside the grid. Diagonal neighbours are Absent whenever either
// of their two adjacent axial neighbours is Absent, even if the diagonal
// cell itself would otherwise be in range — this keeps the table
// consistent with a rectangle that has no wrap-around and avoids
// diagonal-only adjacency across a concave boundary (a short last grid
// row, for instance).
func NeighbourTableFor(g Grid, rank int) NeighbourTable {
	row, col := g.position(rank)

	var t NeighbourTable
	for _, d := range Directions {
		dr, dc := d.Offset()
		nr, nc := row+dr, col+dc

		if d.IsDiagonal() {
			axial1 := g.rankAt(row+dr, col)
			axial2 := g.rankAt(row, col+dc)
			if axial1 == Absent || axial2 == Absent {
				t[d] = Absent
				continue
			}
		}

		t[d] = g.rankAt(nr, nc)
	}
	return t
}

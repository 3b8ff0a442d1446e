package denoiser

import "testing"

func TestGrid_Rows(t *testing.T) {
	g := Grid{Workers: 9, SlavesPerRow: 3}
	if got := g.Rows(); got != 3 {
		t.Fatalf("Rows() = %d; want 3", got)
	}
	// Not an exact multiple: the short last row still counts.
	g2 := Grid{Workers: 7, SlavesPerRow: 3}
	if got := g2.Rows(); got != 3 {
		t.Fatalf("Rows() = %d; want 3 (ceil(7/3))", got)
	}
}

func TestGrid_Position(t *testing.T) {
	g := Grid{Workers: 9, SlavesPerRow: 3}
	row, col := g.position(4)
	if row != 1 || col != 1 {
		t.Fatalf("position(4) = (%d,%d); want (1,1)", row, col)
	}
}

func TestNeighbourTableFor_MiddleWorkerHasAllEightNeighbours(t *testing.T) {
	// 3x3 grid, rank 4 sits dead centre: every one of the 8 directions must
	// resolve to a present, distinct peer.
	g := Grid{Workers: 9, SlavesPerRow: 3}
	table := NeighbourTableFor(g, 4)

	want := map[Direction]int{
		North: 1, Northeast: 2, East: 5, Southeast: 8,
		South: 7, Southwest: 6, West: 3, Northwest: 0,
	}
	for d, wantRank := range want {
		gotRank, ok := table.Peer(d)
		if !ok {
			t.Fatalf("direction %s: expected present neighbour, got Absent", d)
		}
		if gotRank != wantRank {
			t.Fatalf("direction %s: neighbour rank = %d; want %d", d, gotRank, wantRank)
		}
	}
	if len(table.PresentDirections()) != NumDirections {
		t.Fatalf("expected all 8 directions present, got %d", len(table.PresentDirections()))
	}
}

func TestNeighbourTableFor_CornerHasThreeNeighbours(t *testing.T) {
	// 3x3 grid, rank 0 is the top-left corner: only E, S, SE are present.
	g := Grid{Workers: 9, SlavesPerRow: 3}
	table := NeighbourTableFor(g, 0)

	present := table.PresentDirections()
	if len(present) != 3 {
		t.Fatalf("corner worker has %d present neighbours; want 3", len(present))
	}
	for _, d := range present {
		if d != East && d != South && d != Southeast {
			t.Fatalf("unexpected present direction %s at corner", d)
		}
	}
	if table.Present(North) || table.Present(West) || table.Present(Northwest) {
		t.Fatal("corner worker must not have N, W, or NW neighbours")
	}
}

func TestNeighbourTableFor_DiagonalAbsentWhenEitherAxialAbsent(t *testing.T) {
	// A short last row: grid of 7 workers, 3 per row -> row 2 only has
	// column 0 populated (rank 6). Rank 6's NE cell (1,1) holds rank 4, and
	// its North axial neighbour (1,0) is rank 3, but its East axial
	// neighbour (2,1) would be rank 7, which does not exist (ranks 0..6),
	// so NE of rank 6 must be Absent.
	g := Grid{Workers: 7, SlavesPerRow: 3}
	table := NeighbourTableFor(g, 6)

	if table.Present(East) {
		t.Fatal("rank 6 should have no East neighbour (grid column 1 of row 2 is unpopulated)")
	}
	if table.Present(Northeast) {
		t.Fatal("NE must be Absent when its East axial neighbour is Absent, even if reachable directly")
	}
	if !table.Present(North) {
		t.Fatal("rank 6 should have a North neighbour (rank 3)")
	}
}

func TestGrid_RankAt_OutOfRangeIsAbsent(t *testing.T) {
	g := Grid{Workers: 4, SlavesPerRow: 2}
	if g.rankAt(-1, 0) != Absent {
		t.Fatal("negative row must be Absent")
	}
	if g.rankAt(0, 2) != Absent {
		t.Fatal("column beyond SlavesPerRow must be Absent")
	}
	if g.rankAt(5, 0) != Absent {
		t.Fatal("row beyond Rows() must be Absent")
	}
}

package denoiser

import (
	"context"
	"testing"
)

func TestTouchedDirections_CornerTouchesExactlyThree(t *testing.T) {
	// scenario: a 3x3 sub-image, pixel (0,0) sits on both the N and W
	// edges, so it touches N, W, and NW (diagonal requires both axials).
	got := touchedDirections(3, 3, 0, 0)
	want := map[Direction]bool{North: true, West: true, Northwest: true}
	if len(got) != len(want) {
		t.Fatalf("touchedDirections(0,0) = %v; want exactly N, W, NW", got)
	}
	for _, d := range got {
		if !want[d] {
			t.Fatalf("unexpected touched direction %s for corner pixel", d)
		}
	}
}

func TestTouchedDirections_InteriorPixelTouchesNothing(t *testing.T) {
	got := touchedDirections(3, 3, 1, 1)
	if len(got) != 0 {
		t.Fatalf("interior pixel touched %v; want none", got)
	}
}

func TestTouchedDirections_EdgeNonCornerTouchesOneAxialOnly(t *testing.T) {
	// (0,1) in a 3x3 sits on the N edge only; no diagonal, since both
	// adjacent columns are interior.
	got := touchedDirections(3, 3, 0, 1)
	if len(got) != 1 || got[0] != North {
		t.Fatalf("touchedDirections(0,1) = %v; want exactly [N]", got)
	}
}

func TestPositionFor_AxialCarriesTheCrossAxisCoordinate(t *testing.T) {
	if got := positionFor(North, 0, 3); got != 3 {
		t.Fatalf("positionFor(North, r=0, c=3) = %d; want column 3", got)
	}
	if got := positionFor(South, 2, 3); got != 3 {
		t.Fatalf("positionFor(South, r=2, c=3) = %d; want column 3", got)
	}
	if got := positionFor(East, 2, 0); got != 2 {
		t.Fatalf("positionFor(East, r=2, c=0) = %d; want row 2", got)
	}
	if got := positionFor(West, 2, 0); got != 2 {
		t.Fatalf("positionFor(West, r=2, c=0) = %d; want row 2", got)
	}
}

func TestPositionFor_DiagonalIsZero(t *testing.T) {
	if got := positionFor(Northeast, 5, 5); got != 0 {
		t.Fatalf("positionFor(Northeast, ...) = %d; want 0 (direction alone disambiguates)", got)
	}
}

func TestAsk_NoTouchedDirectionsReturnsImmediately(t *testing.T) {
	sub := NewSubImage(3, 3, pixels(1, 1, 1, 1, 1, 1, 1, 1, 1))
	q := NewQueryEngine(nil, NeighbourTable{Absent, Absent, Absent, Absent, Absent, Absent, Absent, Absent}, sub, nil)
	ans := NewAnswerEngine(nil, NeighbourTable{Absent, Absent, Absent, Absent, Absent, Absent, Absent, Absent}, sub, nil)

	sum, err := q.Ask(context.TODO(), 1, 1, ans)
	if err != nil {
		t.Fatalf("Ask returned error for an interior pixel: %v", err)
	}
	if sum != 0 {
		t.Fatalf("Ask sum = %d; want 0 (no cross-boundary contribution)", sum)
	}
}

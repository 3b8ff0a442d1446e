package denoiser

import (
	"context"

	"github.com/isingmesh/denoiser/transport"
)

// QueryEngine is the asking side of the halo exchange (spec §4.3): for a
// sampled pixel whose 3x3 neighbourhood crosses a sub-image edge, it
// posts one question per relevant external direction, then collects the
// replies while concurrently servicing this worker's own Answer Engine so
// two workers that question each other simultaneously never deadlock
// (spec §4.3 "Why the interleaving is mandatory").
type QueryEngine struct {
	t          transport.Transport
	neighbours NeighbourTable
	sub        *SubImage
	metrics    *Metrics
}

func NewQueryEngine(t transport.Transport, neighbours NeighbourTable, sub *SubImage, m *Metrics) *QueryEngine {
	return &QueryEngine{t: t, neighbours: neighbours, sub: sub, metrics: m}
}

// touchedDirections returns, in tag order, the external directions whose
// peer must be asked for pixel (r, c)'s 3x3 neighbourhood. An axial
// direction is touched when (r, c) sits on the corresponding edge; a
// diagonal direction is touched only when both of its adjacent axial
// edges hold (spec §4.3, §9 scenario 6: the (0,0) corner touches exactly
// N, W, NW when all three neighbours are present).
func touchedDirections(rows, cols, r, c int) []Direction {
	rowEdge := func(dr int) bool {
		switch dr {
		case -1:
			return r == 0
		case 1:
			return r == rows-1
		default:
			return true
		}
	}
	colEdge := func(dc int) bool {
		switch dc {
		case -1:
			return c == 0
		case 1:
			return c == cols-1
		default:
			return true
		}
	}

	var out []Direction
	for _, d := range Directions {
		dr, dc := d.Offset()
		if d.IsDiagonal() {
			if rowEdge(dr) && colEdge(dc) {
				out = append(out, d)
			}
			continue
		}
		if dr != 0 && rowEdge(dr) {
			out = append(out, d)
			continue
		}
		if dc != 0 && colEdge(dc) {
			out = append(out, d)
		}
	}
	return out
}

// positionFor computes the QUESTION payload for direction d centred at
// (r, c): the column for axial N/S, the row for axial E/W, and 0 (a
// placeholder — the direction itself, carried in the tag's peer identity,
// already tells the neighbour which corner) for diagonals (spec §4.3
// "Question content").
func positionFor(d Direction, r, c int) int {
	switch d {
	case North, South:
		return c
	case East, West:
		return r
	default:
		return 0
	}
}

// Ask posts one question per external direction touched by (r, c),
// interleaves waiting for the replies with pumping this worker's Answer
// Engine, and returns the sum of every reply (spec §4.3 "Accumulation").
// ans is this worker's own Answer Engine; it is pumped on every iteration
// of the wait loop so a neighbour's simultaneous question is never
// starved while this worker waits on its own asks.
func (q *QueryEngine) Ask(ctx context.Context, r, c int, ans *AnswerEngine) (int, error) {
	touched := touchedDirections(q.sub.Rows(), q.sub.Cols(), r, c)
	if len(touched) == 0 {
		return 0, nil
	}

	type outstanding struct {
		send transport.Handle
		recv transport.Handle
	}
	asks := make([]outstanding, 0, len(touched))

	for _, d := range touched {
		peer, ok := q.neighbours.Peer(d)
		if !ok {
			continue
		}
		position := positionFor(d, r, c)
		asks = append(asks, outstanding{
			send: q.t.PostSend(peer, transport.TagQuestion, encodeInt(position)),
			recv: q.t.PostReceive(peer, transport.TagAnswer),
		})
		if q.metrics != nil {
			q.metrics.QuestionsAsked.Add(1)
		}
	}
	if len(asks) == 0 {
		return 0, nil
	}

	// Interleaved wait: never block on our own replies without also
	// servicing neighbours' questions (spec §4.3, §5 "Suspension points").
	for {
		allDone := true
		for _, a := range asks {
			if done, err := a.send.Poll(); err != nil {
				return 0, err
			} else if !done {
				allDone = false
			}
			if done, err := a.recv.Poll(); err != nil {
				return 0, err
			} else if !done {
				allDone = false
			}
		}
		if allDone {
			break
		}
		if err := ans.Pump(ctx); err != nil {
			return 0, err
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}
	}

	sum := 0
	for _, a := range asks {
		v, err := decodeInt(a.recv.Payload())
		if err != nil {
			return 0, err
		}
		sum += v
	}
	return sum, nil
}

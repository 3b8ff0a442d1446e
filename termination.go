package denoiser

import (
	"context"

	"github.com/isingmesh/denoiser/transport"
)

// Terminate runs the two-phase FINISHED flood (spec §4.6): post a
// non-blocking send and receive of FINISHED to every present neighbour,
// then pump the Answer Engine until every send has been acknowledged by
// the transport and every receive has fired. A worker may still receive
// questions after its own iterations are done, because its neighbours
// have not necessarily finished theirs; exiting before answering them
// would deadlock those neighbours (spec §4.6 rationale), so this loop
// keeps servicing the Answer Engine for its entire duration.
func Terminate(ctx context.Context, t transport.Transport, neighbours NeighbourTable, ans *AnswerEngine) error {
	present := neighbours.PresentDirections()
	if len(present) == 0 {
		return nil
	}

	sends := make([]transport.Handle, len(present))
	recvs := make([]transport.Handle, len(present))
	for i, d := range present {
		peer, _ := neighbours.Peer(d)
		sends[i] = t.PostSend(peer, transport.TagFinished, nil)
		recvs[i] = t.PostReceive(peer, transport.TagFinished)
	}

	for {
		sentDone, err := transport.PollAll(sends...)
		if err != nil {
			return err
		}
		recvDone, err := transport.PollAll(recvs...)
		if err != nil {
			return err
		}
		if sentDone && recvDone {
			return nil
		}
		if err := ans.Pump(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

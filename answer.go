package denoiser

import (
	"context"

	"github.com/isingmesh/denoiser/transport"
)

// AnswerEngine is the servicing side of the halo exchange (spec §4.4): a
// standing receive on every live neighbour direction, answering questions
// about the local sub-image as they arrive. It is pumped by both the
// Query Engine (while waiting on its own outstanding asks) and the
// Termination Protocol (while waiting for the FINISHED handshake) so a
// worker never blocks on anything without also servicing its neighbours
// (spec §5 "Suspension points").
type AnswerEngine struct {
	t          transport.Transport
	neighbours NeighbourTable
	sub        *SubImage
	metrics    *Metrics

	questionRecv [NumDirections]transport.Handle
	replySend    [NumDirections]transport.Handle
	havePosition [NumDirections]bool
	position     [NumDirections]int
}

// NewAnswerEngine arms the standing question-receive on every present
// direction and returns the engine ready to be pumped.
func NewAnswerEngine(t transport.Transport, neighbours NeighbourTable, sub *SubImage, m *Metrics) *AnswerEngine {
	e := &AnswerEngine{t: t, neighbours: neighbours, sub: sub, metrics: m}
	for _, d := range neighbours.PresentDirections() {
		peer, _ := neighbours.Peer(d)
		e.questionRecv[d] = t.PostReceive(peer, transport.TagQuestion)
	}
	return e
}

// Pump runs one non-blocking service cycle over every present direction
// (spec §4.4 "Service cycle"). It never blocks except for the bounded,
// purely-local wait on this worker's own previous reply-send draining
// (step (c) of the spec), which is never a cross-peer dependency.
func (e *AnswerEngine) Pump(ctx context.Context) error {
	for _, d := range e.neighbours.PresentDirections() {
		peer, _ := e.neighbours.Peer(d)

		done, err := e.questionRecv[d].Poll()
		if err != nil {
			return err
		}
		if !done {
			continue
		}

		position, err := decodeInt(e.questionRecv[d].Payload())
		if err != nil {
			return err
		}

		// (b) re-arm the receive immediately so a second question from
		// this neighbour is never missed while we finish serving this one.
		e.questionRecv[d] = e.t.PostReceive(peer, transport.TagQuestion)

		// (c) drain any still-outstanding previous reply before reusing
		// the slot.
		if e.replySend[d] != nil {
			if err := e.replySend[d].Wait(ctx); err != nil {
				return err
			}
		}

		// (d) compute the reply sum.
		sum := e.answerSum(d, position)

		// (e) post the reply.
		e.replySend[d] = e.t.PostSend(peer, transport.TagAnswer, encodeInt(sum))
		if e.metrics != nil {
			e.metrics.QuestionsAnswered.Add(1)
		}
	}
	return nil
}

// answerSum computes the requested partial sum for a question arriving
// from direction d at position p (spec §4.4 "Sum computation"). rowCenter
// and columnCenter are, by construction, one cell outside the local
// array: the requester's pixel sits inside its own sub-image but outside
// this one, and expressing it as an out-of-bounds coordinate in the
// responder's frame lets WindowSumAround handle all eight directions with
// one routine (spec §4.4, §9 "out-of-bounds centre trick").
func (e *AnswerEngine) answerSum(d Direction, p int) int {
	rows, cols := e.sub.Rows(), e.sub.Cols()

	var rowCenter, colCenter int

	switch d {
	case North, Northwest, Northeast:
		rowCenter = -1
	case South, Southwest, Southeast:
		rowCenter = rows
	case East, West:
		rowCenter = p
	}

	switch d {
	case West, Northwest, Southwest:
		colCenter = -1
	case East, Northeast, Southeast:
		colCenter = cols
	case North, South:
		colCenter = p
	}

	return e.sub.WindowSumAround(rowCenter, colCenter)
}

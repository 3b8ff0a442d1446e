// Package transport defines the asynchronous point-to-point messaging
// substrate the protocol is built on (spec §4.1): non-blocking send,
// non-blocking receive, and a non-blocking poll of previously posted
// operations. Two implementations exist: memory (in-process, channel
// backed) and netgrpc (out-of-process, TCP framed); both satisfy this
// same interface so the rest of the repository is oblivious to which one
// is wired in.
package transport

import "context"

// Tag partitions the message space into disjoint categories (spec §4.1):
// direction tags 0..7 carry the coordinator's neighbour-identity messages;
// the remainder, including TagFinished for termination traffic, are fixed
// constants below. Image rows use TagImageRow(i) / TagFinalImageRow(i).
type Tag int

const (
	TagQuestion Tag = iota + 100
	TagAnswer
	TagFinished
	TagRows
	TagColumns
	tagImageRowBase
	tagFinalImageRowBase = tagImageRowBase + 1<<20
)

// TagImageRow returns the tag for coordinator->worker row i.
func TagImageRow(i int) Tag { return tagImageRowBase + Tag(i) }

// TagFinalImageRow returns the tag for worker->coordinator final row i.
func TagFinalImageRow(i int) Tag { return tagFinalImageRowBase + Tag(i) }

// TagDirection returns the tag used for a direction-indexed message (the
// coordinator's neighbour-assignment messages). FINISHED handshakes use
// TagFinished, not a direction tag.
func TagDirection(d int) Tag { return Tag(d) }

// Message is a single payload in flight. Payload is a byte slice so every
// implementation can frame it uniformly; callers encode/decode the
// integers and pixel rows the protocol actually carries.
type Message struct {
	Peer    int
	Tag     Tag
	Payload []byte
}

// Handle is an opaque reference to an asynchronous send or receive.
// Poll is non-blocking; Wait blocks until the operation completes.
// For a receive handle, Payload returns the received bytes once complete
// (valid only after Poll/Wait report completion).
type Handle interface {
	Poll() (done bool, err error)
	Wait(ctx context.Context) error
	Payload() []byte
}

// Transport is the asynchronous point-to-point messaging substrate (spec
// §4.1). Implementations must deliver messages for a fixed (peer, tag)
// pair in issue order (spec §5 "Ordering guarantees"); loss and reorder
// are out of scope.
type Transport interface {
	// PostSend posts a non-blocking send of payload to peer, tagged tag.
	PostSend(peer int, tag Tag, payload []byte) Handle

	// PostReceive posts a non-blocking receive from peer, tagged tag.
	PostReceive(peer int, tag Tag) Handle

	// Close releases any resources (connections, goroutines) this
	// transport holds. It does not cancel in-flight operations.
	Close() error
}

// WaitAll blocks until every handle completes, returning the first error
// encountered (after waiting on all of them, so resources aren't leaked).
func WaitAll(ctx context.Context, handles ...Handle) error {
	var first error
	for _, h := range handles {
		if err := h.Wait(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// PollAll reports whether every handle has completed.
func PollAll(handles ...Handle) (bool, error) {
	allDone := true
	for _, h := range handles {
		done, err := h.Poll()
		if err != nil {
			return false, err
		}
		if !done {
			allDone = false
		}
	}
	return allDone, nil
}

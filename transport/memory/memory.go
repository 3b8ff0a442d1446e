// Package memory is an in-process implementation of transport.Transport
// backed by Go channels: every worker is a goroutine in the same process,
// and a shared Network routes messages between their inboxes directly
// (no encoding, no network round trip). This is the default deployment
// mode (SPEC_FULL §10.5) and the transport the deadlock-freedom and
// termination test harnesses drive.
//
// The registry-of-inboxes shape follows the in-memory transport sketched
// for single-process Paxos testing in the retrieval pack's
// internal/transport/memory reference: a shared Network maps node ID to
// inbox, and Send looks up the destination's inbox and writes to it.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/isingmesh/denoiser/transport"
)

// Network is the shared registry every node's Transport is wired through.
// It must be constructed once per run and handed to NewTransport for each
// rank.
type Network struct {
	mu    sync.Mutex
	nodes map[int]*nodeInboxes
}

// NewNetwork creates an empty shared registry.
func NewNetwork() *Network {
	return &Network{nodes: make(map[int]*nodeInboxes)}
}

type inboxKey struct {
	from int
	tag  transport.Tag
}

type nodeInboxes struct {
	mu      sync.Mutex
	inboxes map[inboxKey]chan []byte
}

func (n *nodeInboxes) get(k inboxKey) chan []byte {
	n.mu.Lock()
	defer n.mu.Unlock()
	ch, ok := n.inboxes[k]
	if !ok {
		// Buffered so a send never blocks waiting for the matching
		// receive to be posted first; protocol discipline (spec §3, §5)
		// keeps at most one message per (peer, tag) in flight, so a
		// capacity of 2 is generous headroom, not a correctness crutch.
		ch = make(chan []byte, 2)
		n.inboxes[k] = ch
	}
	return ch
}

func (net *Network) node(rank int) *nodeInboxes {
	net.mu.Lock()
	defer net.mu.Unlock()
	nd, ok := net.nodes[rank]
	if !ok {
		nd = &nodeInboxes{inboxes: make(map[inboxKey]chan []byte)}
		net.nodes[rank] = nd
	}
	return nd
}

// Transport is a Network-backed transport.Transport for a single rank.
type Transport struct {
	net  *Network
	rank int
}

// NewTransport returns the Transport for rank within net. Call once per
// worker (and once for the coordinator, which also participates as a
// peer for ROWS/COLUMNS/IMAGE_ROW/FINAL_IMAGE_ROW traffic).
func NewTransport(net *Network, rank int) *Transport {
	net.node(rank) // ensure this rank's inbox map exists even before any send
	return &Transport{net: net, rank: rank}
}

func (t *Transport) PostSend(peer int, tag transport.Tag, payload []byte) transport.Handle {
	h := newHandle()
	ch := t.net.node(peer).get(inboxKey{from: t.rank, tag: tag})
	buf := append([]byte(nil), payload...)
	go func() {
		ch <- buf
		h.complete(nil, nil)
	}()
	return h
}

func (t *Transport) PostReceive(peer int, tag transport.Tag) transport.Handle {
	h := newHandle()
	ch := t.net.node(t.rank).get(inboxKey{from: peer, tag: tag})
	go func() {
		buf := <-ch
		h.complete(buf, nil)
	}()
	return h
}

func (t *Transport) Close() error { return nil }

type handle struct {
	done    chan struct{}
	once    sync.Once
	payload []byte
	err     error
}

func newHandle() *handle {
	return &handle{done: make(chan struct{})}
}

func (h *handle) complete(payload []byte, err error) {
	h.once.Do(func() {
		h.payload = payload
		h.err = err
		close(h.done)
	})
}

func (h *handle) Poll() (bool, error) {
	select {
	case <-h.done:
		return true, h.err
	default:
		return false, nil
	}
}

func (h *handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return fmt.Errorf("memory transport: %w", ctx.Err())
	}
}

func (h *handle) Payload() []byte { return h.payload }

var _ transport.Transport = (*Transport)(nil)

// Package netgrpc is the out-of-process implementation of
// transport.Transport (SPEC_FULL §10.2, distributed deployment mode,
// §10.5): each rank is a separate OS process, reachable over TCP, and
// messages are length-prefixed frames carrying (sender rank, tag,
// payload) — the same "tagged messages addressed by peer identifier"
// model as the in-process transport, just serialized.
//
// The package name signals its role in the deployment story the same way
// the teacher splits pool/ out as its own subpackage: this is the
// transport used when workers run as independent processes rather than
// goroutines. It does not depend on google.golang.org/grpc or generated
// protobuf stubs — producing correct .pb.go bindings needs a protoc run
// this environment cannot perform, and hand-writing the protobuf wire
// format without a compiler to check it against is not something we can
// do with confidence here (see DESIGN.md). encoding/binary framing over
// net.Conn gives the same asynchronous, tagged, point-to-point semantics
// without that risk.
package netgrpc

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/isingmesh/denoiser/transport"
)

// Endpoints maps rank to dialable "host:port" address.
type Endpoints map[int]string

type inboxKey struct {
	from int
	tag  transport.Tag
}

// Transport is a TCP-framed transport.Transport for one rank.
type Transport struct {
	rank      int
	endpoints Endpoints
	log       zerolog.Logger

	listener net.Listener

	outMu sync.Mutex
	out   map[int]net.Conn

	inboxMu sync.Mutex
	inboxes map[inboxKey]chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

// Listen starts accepting connections for rank on listenAddr and returns a
// Transport that can send to any peer named in endpoints. Accept errors
// after Close are swallowed; all others are logged and fatal to the
// accept loop (spec §7 "Transport errors: treated as fatal").
func Listen(rank int, listenAddr string, endpoints Endpoints, log zerolog.Logger) (*Transport, error) {
	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "netgrpc: listen on %s for rank %d", listenAddr, rank)
	}
	t := &Transport{
		rank:      rank,
		endpoints: endpoints,
		log:       log.With().Int("rank", rank).Logger(),
		listener:  ln,
		out:       make(map[int]net.Conn),
		inboxes:   make(map[inboxKey]chan []byte),
		closed:    make(chan struct{}),
	}
	go t.acceptLoop()
	return t, nil
}

func (t *Transport) acceptLoop() {
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			select {
			case <-t.closed:
				return
			default:
				t.log.Error().Err(err).Msg("netgrpc: accept failed")
				return
			}
		}
		go t.readLoop(conn)
	}
}

func (t *Transport) readLoop(conn net.Conn) {
	r := bufio.NewReader(conn)
	for {
		from, tag, payload, err := readFrame(r)
		if err != nil {
			if err != io.EOF {
				t.log.Error().Err(err).Msg("netgrpc: frame read failed")
			}
			return
		}
		t.inboxFor(inboxKey{from: from, tag: tag}) <- payload
	}
}

func (t *Transport) inboxFor(k inboxKey) chan []byte {
	t.inboxMu.Lock()
	defer t.inboxMu.Unlock()
	ch, ok := t.inboxes[k]
	if !ok {
		ch = make(chan []byte, 2)
		t.inboxes[k] = ch
	}
	return ch
}

func (t *Transport) connFor(peer int) (net.Conn, error) {
	t.outMu.Lock()
	defer t.outMu.Unlock()
	if c, ok := t.out[peer]; ok {
		return c, nil
	}
	addr, ok := t.endpoints[peer]
	if !ok {
		return nil, errors.Errorf("netgrpc: no endpoint registered for rank %d", peer)
	}
	c, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "netgrpc: dial rank %d at %s", peer, addr)
	}
	t.out[peer] = c
	return c, nil
}

func (t *Transport) PostSend(peer int, tag transport.Tag, payload []byte) transport.Handle {
	h := newHandle()
	go func() {
		conn, err := t.connFor(peer)
		if err != nil {
			h.complete(nil, err)
			return
		}
		if err := writeFrame(conn, t.rank, tag, payload); err != nil {
			h.complete(nil, errors.Wrapf(err, "netgrpc: send to rank %d tag %d", peer, tag))
			return
		}
		h.complete(nil, nil)
	}()
	return h
}

func (t *Transport) PostReceive(peer int, tag transport.Tag) transport.Handle {
	h := newHandle()
	ch := t.inboxFor(inboxKey{from: peer, tag: tag})
	go func() {
		buf := <-ch
		h.complete(buf, nil)
	}()
	return h
}

func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		close(t.closed)
		_ = t.listener.Close()
		t.outMu.Lock()
		for _, c := range t.out {
			_ = c.Close()
		}
		t.outMu.Unlock()
	})
	return nil
}

// writeFrame encodes (senderRank, tag, payload) as:
//
//	totalLen uint32 | senderRank int32 | tag int32 | payload
func writeFrame(w io.Writer, senderRank int, tag transport.Tag, payload []byte) error {
	body := make([]byte, 8+len(payload))
	binary.BigEndian.PutUint32(body[0:4], uint32(senderRank))
	binary.BigEndian.PutUint32(body[4:8], uint32(tag))
	copy(body[8:], payload)

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

func readFrame(r io.Reader) (senderRank int, tag transport.Tag, payload []byte, err error) {
	var lenBuf [4]byte
	if _, err = io.ReadFull(r, lenBuf[:]); err != nil {
		return 0, 0, nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n < 8 {
		return 0, 0, nil, fmt.Errorf("netgrpc: short frame (%d bytes)", n)
	}
	body := make([]byte, n)
	if _, err = io.ReadFull(r, body); err != nil {
		return 0, 0, nil, err
	}
	senderRank = int(binary.BigEndian.Uint32(body[0:4]))
	tag = transport.Tag(binary.BigEndian.Uint32(body[4:8]))
	payload = body[8:]
	return senderRank, tag, payload, nil
}

type handle struct {
	done    chan struct{}
	once    sync.Once
	payload []byte
	err     error
}

func newHandle() *handle { return &handle{done: make(chan struct{})} }

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
		return ctx.Err()
	}
}

func (h *handle) Payload() []byte { return h.payload }

var _ transport.Transport = (*Transport)(nil)

package netgrpc

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/isingmesh/denoiser/transport"
)

func TestTransport_SendReceive_RoundTripsOverTCP(t *testing.T) {
	ta, err := Listen(0, "127.0.0.1:0", nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("Listen for rank 0 returned error: %v", err)
	}
	defer ta.Close()

	tb, err := Listen(1, "127.0.0.1:0", nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("Listen for rank 1 returned error: %v", err)
	}
	defer tb.Close()

	// Wire each side's endpoint map after both listeners are bound, since
	// the actual port is only known once Listen returns.
	ta.endpoints = Endpoints{1: tb.listener.Addr().String()}
	tb.endpoints = Endpoints{0: ta.listener.Addr().String()}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	send := ta.PostSend(1, transport.TagQuestion, []byte("ping"))
	recv := tb.PostReceive(0, transport.TagQuestion)

	if err := transport.WaitAll(ctx, send, recv); err != nil {
		t.Fatalf("WaitAll returned error: %v", err)
	}
	if !bytes.Equal(recv.Payload(), []byte("ping")) {
		t.Fatalf("received payload = %q; want %q", recv.Payload(), "ping")
	}
}

func TestTransport_PostSend_UnknownPeerFails(t *testing.T) {
	ta, err := Listen(0, "127.0.0.1:0", Endpoints{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Listen returned error: %v", err)
	}
	defer ta.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	h := ta.PostSend(99, transport.TagQuestion, []byte("x"))
	if err := h.Wait(ctx); err == nil {
		t.Fatal("expected error sending to a peer with no registered endpoint")
	}
}

func TestWriteReadFrame_RoundTrips(t *testing.T) {
	var buf bytes.Buffer
	if err := writeFrame(&buf, 3, transport.TagAnswer, []byte("payload")); err != nil {
		t.Fatalf("writeFrame returned error: %v", err)
	}
	rank, tag, payload, err := readFrame(&buf)
	if err != nil {
		t.Fatalf("readFrame returned error: %v", err)
	}
	if rank != 3 {
		t.Fatalf("rank = %d; want 3", rank)
	}
	if tag != transport.TagAnswer {
		t.Fatalf("tag = %v; want %v", tag, transport.TagAnswer)
	}
	if !bytes.Equal(payload, []byte("payload")) {
		t.Fatalf("payload = %q; want %q", payload, "payload")
	}
}

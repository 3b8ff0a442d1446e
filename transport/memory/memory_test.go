package memory

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/isingmesh/denoiser/transport"
)

func TestTransport_SendReceive_RoundTrips(t *testing.T) {
	net := NewNetwork()
	a := NewTransport(net, 0)
	b := NewTransport(net, 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	send := a.PostSend(1, transport.TagQuestion, []byte("hello"))
	recv := b.PostReceive(0, transport.TagQuestion)

	if err := transport.WaitAll(ctx, send, recv); err != nil {
		t.Fatalf("WaitAll returned error: %v", err)
	}
	if !bytes.Equal(recv.Payload(), []byte("hello")) {
		t.Fatalf("received payload = %q; want %q", recv.Payload(), "hello")
	}
}

func TestTransport_Poll_ReportsCompletionWithoutBlocking(t *testing.T) {
	net := NewNetwork()
	a := NewTransport(net, 0)
	b := NewTransport(net, 1)

	recv := b.PostReceive(0, transport.TagAnswer)
	if done, err := recv.Poll(); done || err != nil {
		t.Fatalf("Poll on an unfulfilled receive = (%v, %v); want (false, nil)", done, err)
	}

	send := a.PostSend(1, transport.TagAnswer, []byte("x"))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := transport.WaitAll(ctx, send, recv); err != nil {
		t.Fatalf("WaitAll returned error: %v", err)
	}

	done, err := recv.Poll()
	if !done || err != nil {
		t.Fatalf("Poll after completion = (%v, %v); want (true, nil)", done, err)
	}
}

func TestTransport_DistinctTagsDoNotInterfere(t *testing.T) {
	net := NewNetwork()
	a := NewTransport(net, 0)
	b := NewTransport(net, 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	sendQ := a.PostSend(1, transport.TagQuestion, []byte("q"))
	sendA := a.PostSend(1, transport.TagAnswer, []byte("a"))
	recvA := b.PostReceive(0, transport.TagAnswer)
	recvQ := b.PostReceive(0, transport.TagQuestion)

	if err := transport.WaitAll(ctx, sendQ, sendA, recvA, recvQ); err != nil {
		t.Fatalf("WaitAll returned error: %v", err)
	}
	if string(recvQ.Payload()) != "q" {
		t.Fatalf("recvQ payload = %q; want %q", recvQ.Payload(), "q")
	}
	if string(recvA.Payload()) != "a" {
		t.Fatalf("recvA payload = %q; want %q", recvA.Payload(), "a")
	}
}

func TestTransport_WaitRespectsContextCancellation(t *testing.T) {
	net := NewNetwork()
	b := NewTransport(net, 1)

	// No matching send is ever posted, so this receive never completes.
	recv := b.PostReceive(0, transport.TagFinished)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := recv.Wait(ctx); err == nil {
		t.Fatal("expected Wait to return an error once the context is cancelled")
	}
}

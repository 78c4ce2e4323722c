package network

import (
	"testing"
	"time"

	"github.com/andersfylling/tango/internal/protocol"
)

func TestTCPChannelFraming(t *testing.T) {
	done := make(chan *TCPChannel, 1)
	go func() {
		ch, err := Listen("127.0.0.1:39771")
		if err != nil {
			t.Error(err)
			done <- nil
			return
		}
		done <- ch
	}()

	// Give the listener a moment to bind.
	time.Sleep(50 * time.Millisecond)

	client, err := Dial("127.0.0.1:39771")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	server := <-done
	if server == nil {
		t.Fatal("no server channel")
	}
	defer server.Close()

	// Two frames must arrive intact and in order, regardless of TCP
	// segmentation.
	if err := client.Send([]byte{1, 2, 3}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := client.Send([]byte{4}); err != nil {
		t.Fatalf("send: %v", err)
	}

	first, err := server.Recv()
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if len(first) != 3 || first[0] != 1 {
		t.Fatalf("bad first frame: %v", first)
	}

	second, err := server.Recv()
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if len(second) != 1 || second[0] != 4 {
		t.Fatalf("bad second frame: %v", second)
	}
}

func TestPipeRoundTrip(t *testing.T) {
	a, b := Pipe()
	defer a.Close()

	sender := NewSender(a)
	receiver := NewReceiver(b)

	if err := sender.SendInput(1, 42, 0x0001, []byte{9, 9}); err != nil {
		t.Fatalf("send input: %v", err)
	}

	p, err := receiver.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}

	in, ok := p.(protocol.Input)
	if !ok {
		t.Fatalf("expected Input, got %T", p)
	}
	if in.Tick != 42 || in.Joyflags != 0x0001 {
		t.Fatalf("bad input: %+v", in)
	}
}

func TestPipeCloseUnblocksRecv(t *testing.T) {
	a, b := Pipe()

	errCh := make(chan error, 1)
	go func() {
		_, err := b.Recv()
		errCh <- err
	}()

	a.Close()

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected error after close")
		}
	case <-time.After(time.Second):
		t.Fatal("recv did not unblock")
	}
}

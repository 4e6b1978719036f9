package platform

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestPumpFeedsSinkAndStops(t *testing.T) {
	in := make(chan []byte, 4)
	recv := func(ctx context.Context, buf []byte) (int, error) {
		select {
		case p := <-in:
			return copy(buf, p), nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	var mu sync.Mutex
	var got []byte
	sink := func(p []byte) {
		mu.Lock()
		got = append(got, p...)
		mu.Unlock()
	}
	p := startPump(context.Background(), recv, sink, 0)
	in <- []byte("ab")
	in <- []byte("cd")

	deadline := time.After(time.Second)
	for {
		mu.Lock()
		s := string(got)
		mu.Unlock()
		if s == "abcd" {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("got %q", s)
		case <-time.After(time.Millisecond):
		}
	}

	stopped := make(chan struct{})
	go func() { p.stop(); close(stopped) }()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("pump did not stop")
	}
}

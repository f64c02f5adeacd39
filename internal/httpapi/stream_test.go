package httpapi

import (
	"context"
	"testing"
	"time"

	"verisyntra.org/internal/scanjob"
)

func TestScanHubFanOut(t *testing.T) {
	hub := newScanHub()
	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()
	ctxB, cancelB := context.WithCancel(context.Background())

	a := hub.Subscribe(ctxA)
	b := hub.Subscribe(ctxB)

	ev := scanEvent{JobID: "scan_1", State: scanjob.StateRunning, Progress: 20, Phase: "connected"}
	hub.Publish(ev)

	for name, ch := range map[string]<-chan scanEvent{"a": a, "b": b} {
		select {
		case got := <-ch:
			if got != ev {
				t.Fatalf("%s received %+v", name, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s did not receive the event", name)
		}
	}

	// A cancelled subscriber stops receiving; the other still does.
	cancelB()
	for {
		// Wait for the unsubscribe goroutine to run.
		hub.mu.Lock()
		n := len(hub.subs)
		hub.mu.Unlock()
		if n == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	hub.Publish(scanEvent{JobID: "scan_1", State: scanjob.StateCompleted, Progress: 100})
	select {
	case got := <-a:
		if got.State != scanjob.StateCompleted {
			t.Fatalf("got %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("remaining subscriber did not receive the event")
	}
}

func TestScanHubDropsWhenSubscriberIsFull(t *testing.T) {
	hub := newScanHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := hub.Subscribe(ctx)

	// Buffer is 16; publishing more must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.Publish(scanEvent{JobID: "scan_1", Progress: i})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
	if len(ch) != 16 {
		t.Fatalf("buffered = %d, want full buffer of 16", len(ch))
	}
}

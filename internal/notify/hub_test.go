package notify

import (
	"context"
	"testing"
	"time"
)

func receive(t *testing.T, s *Subscription) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msg, err := s.Receive(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	return msg
}

func TestBroadcastOrderPerSubscriber(t *testing.T) {
	h := New()
	s := h.Subscribe(1)
	defer s.Close()

	h.Broadcast(1, "first")
	h.Broadcast(1, "second")
	h.Broadcast(1, "third")

	for _, want := range []string{"first", "second", "third"} {
		if got := receive(t, s); got != want {
			t.Fatalf("got %q, want %q", got, want)
		}
	}
}

func TestFanOutReachesAllSubscribers(t *testing.T) {
	h := New()
	a := h.Subscribe(1)
	defer a.Close()
	b := h.Subscribe(1)
	defer b.Close()

	h.Broadcast(1, "REFRESH")

	if got := receive(t, a); got != "REFRESH" {
		t.Fatalf("subscriber a got %q", got)
	}
	if got := receive(t, b); got != "REFRESH" {
		t.Fatalf("subscriber b got %q", got)
	}
}

func TestBillsAreIsolated(t *testing.T) {
	h := New()
	h.heartbeat = 20 * time.Millisecond
	other := h.Subscribe(2)
	defer other.Close()

	h.Broadcast(1, "REFRESH")

	// The only thing the other bill's subscriber sees is the heartbeat.
	if got := receive(t, other); got != KeepAlive {
		t.Fatalf("subscriber of bill 2 got %q", got)
	}
}

func TestHeartbeatOnIdle(t *testing.T) {
	h := New()
	h.heartbeat = 20 * time.Millisecond
	s := h.Subscribe(1)
	defer s.Close()

	if got := receive(t, s); got != KeepAlive {
		t.Fatalf("idle receive got %q, want keep-alive", got)
	}
}

func TestBroadcastWithoutSubscribersIsNoop(t *testing.T) {
	h := New()
	h.Broadcast(42, "REFRESH") // must not panic or block
	if n := h.Listeners(42); n != 0 {
		t.Fatalf("listeners = %d, want 0", n)
	}
}

func TestCloseDeregisters(t *testing.T) {
	h := New()
	a := h.Subscribe(1)
	b := h.Subscribe(1)
	if n := h.Listeners(1); n != 2 {
		t.Fatalf("listeners = %d, want 2", n)
	}

	a.Close()
	a.Close() // idempotent
	if n := h.Listeners(1); n != 1 {
		t.Fatalf("listeners after first close = %d, want 1", n)
	}

	b.Close()
	if n := h.Listeners(1); n != 0 {
		t.Fatalf("listeners after last close = %d, want 0", n)
	}
	if len(h.bills) != 0 {
		t.Fatalf("per-bill entry not removed: %d entries", len(h.bills))
	}

	// A closed subscription silently drops later broadcasts.
	h.Broadcast(1, "REFRESH")
}

func TestReceiveHonorsCancellation(t *testing.T) {
	h := New()
	s := h.Subscribe(1)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Receive(ctx); err == nil {
		t.Fatal("receive on cancelled context returned no error")
	}
}

func TestConcurrentBroadcastAndSubscribe(t *testing.T) {
	h := New()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			h.Broadcast(1, "REFRESH")
		}
		close(done)
	}()
	for i := 0; i < 50; i++ {
		s := h.Subscribe(1)
		s.Close()
	}
	<-done
}

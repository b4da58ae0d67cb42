// Package notify implements the live-update fan-out: a per-bill registry
// of subscribers that receive opaque message strings broadcast after
// ledger mutations. The hub carries no business semantics and has no
// dependency on storage; it is wired purely by bill identifier.
//
// Delivery is at-most-once and best-effort: a subscriber that is not
// connected when a message is broadcast misses it permanently. Messages
// broadcast for one bill reach each subscriber in broadcast order (FIFO
// per queue). Broadcasting never blocks on a slow consumer: each
// subscription owns an unbounded in-memory queue, an accepted trade-off
// of this design.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// KeepAlive is the sentinel yielded when no message arrives within the
// heartbeat interval. It exists solely to defeat idle-connection timeouts
// at the transport layer; the SSE handler turns it into a comment frame.
const KeepAlive = ": ping"

// DefaultHeartbeat is how long a receive may idle before yielding
// KeepAlive.
const DefaultHeartbeat = 20 * time.Second

// Hub is the process-wide fan-out registry. Construct one at startup and
// pass it to whichever component needs to publish or subscribe; there is
// deliberately no package-level singleton.
type Hub struct {
	mu        sync.Mutex
	bills     map[int64]map[*Subscription]struct{}
	heartbeat time.Duration
}

// New returns a hub with the default heartbeat interval.
func New() *Hub {
	return &Hub{
		bills:     make(map[int64]map[*Subscription]struct{}),
		heartbeat: DefaultHeartbeat,
	}
}

// Subscription is one listener's registration on a bill. It must be
// closed on every exit path of the consuming loop; Close is idempotent.
type Subscription struct {
	hub    *Hub
	billID int64

	mu     sync.Mutex
	queue  []string
	closed bool
	// ready carries a single wakeup token; a buffered channel of one is
	// enough because Receive re-checks the queue after every wakeup.
	ready chan struct{}
}

// Subscribe registers a new listener for the bill and returns its
// subscription.
func (h *Hub) Subscribe(billID int64) *Subscription {
	s := &Subscription{
		hub:    h,
		billID: billID,
		ready:  make(chan struct{}, 1),
	}
	h.mu.Lock()
	set := h.bills[billID]
	if set == nil {
		set = make(map[*Subscription]struct{})
		h.bills[billID] = set
	}
	set[s] = struct{}{}
	n := len(set)
	h.mu.Unlock()

	slog.Info("hub: new subscription", "bill_id", billID, "listeners", n)
	return s
}

// Broadcast enqueues message to every subscription currently registered
// for the bill and returns without waiting for delivery. Broadcasting to
// a bill with no subscribers is a no-op, not an error.
func (h *Hub) Broadcast(billID int64, message string) {
	h.mu.Lock()
	subs := make([]*Subscription, 0, len(h.bills[billID]))
	for s := range h.bills[billID] {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		s.push(message)
	}
	if len(subs) > 0 {
		slog.Debug("hub: broadcast", "bill_id", billID, "message", message, "listeners", len(subs))
	}
}

// Listeners reports how many subscriptions are registered for the bill.
func (h *Hub) Listeners(billID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.bills[billID])
}

func (s *Subscription) push(message string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, message)
	s.mu.Unlock()
	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// Receive blocks until a message is available, the heartbeat interval
// elapses (yielding KeepAlive), or ctx is cancelled. It never blocks a
// broadcaster.
func (s *Subscription) Receive(ctx context.Context) (string, error) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			msg := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return msg, nil
		}
		s.mu.Unlock()

		timer := time.NewTimer(s.hub.heartbeat)
		select {
		case <-s.ready:
			timer.Stop()
		case <-timer.C:
			return KeepAlive, nil
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		}
	}
}

// Close deregisters the subscription. When the bill's last subscription
// is removed the per-bill entry itself is dropped to bound memory. Safe
// to call more than once.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.queue = nil
	s.mu.Unlock()

	h := s.hub
	h.mu.Lock()
	if set, ok := h.bills[s.billID]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.bills, s.billID)
		}
	}
	remaining := len(h.bills[s.billID])
	h.mu.Unlock()

	slog.Info("hub: subscription ended", "bill_id", s.billID, "listeners", remaining)
}

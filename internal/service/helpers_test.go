package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/splitbill/split-the-bill/internal/model"
	"github.com/splitbill/split-the-bill/internal/queue"
	"github.com/splitbill/split-the-bill/internal/storage"
	"github.com/splitbill/split-the-bill/internal/storage/memory"
)

// recordingNotifier captures broadcasts so tests can assert on count and
// content without a real hub.
type recordingNotifier struct {
	messages []string
}

func (n *recordingNotifier) Broadcast(billID int64, message string) {
	n.messages = append(n.messages, fmt.Sprintf("%d/%s", billID, message))
}

// recordingPublisher captures broker events.
type recordingPublisher struct {
	events []queue.BillClosedEvent
}

func (p *recordingPublisher) PublishBillClosed(_ context.Context, event queue.BillClosedEvent) error {
	p.events = append(p.events, event)
	return nil
}

type env struct {
	store     *memory.MemoryStore
	notifier  *recordingNotifier
	publisher *recordingPublisher

	bills        *BillService
	splits       *SplitService
	participants *ParticipantService
	items        *ItemService
	users        *UserService
}

func newEnv() *env {
	store := memory.New()
	notifier := &recordingNotifier{}
	publisher := &recordingPublisher{}
	return &env{
		store:        store,
		notifier:     notifier,
		publisher:    publisher,
		bills:        NewBillService(store, notifier),
		splits:       NewSplitService(store, notifier),
		participants: NewParticipantService(store, notifier, publisher),
		items:        NewItemService(store, notifier),
		users:        NewUserService(store),
	}
}

func (e *env) user(t *testing.T, telegramID int64, username string) *model.User {
	t.Helper()
	u, err := e.users.CreateOrUpdate(context.Background(), telegramID, username, "")
	if err != nil {
		t.Fatalf("create user %q: %v", username, err)
	}
	return u
}

func (e *env) bill(t *testing.T, ownerID, total int64, includeOwner bool) *model.Bill {
	t.Helper()
	b, err := e.bills.Create(context.Background(), ownerID, total, "dinner", "", includeOwner)
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}
	return b
}

func (e *env) seat(t *testing.T, billID int64, userID *int64, guestName string) *model.BillParticipant {
	t.Helper()
	p, err := e.participants.Add(context.Background(), billID, userID, guestName)
	if err != nil {
		t.Fatalf("add participant: %v", err)
	}
	return p
}

func (e *env) reloadBill(t *testing.T, billID int64) *model.Bill {
	t.Helper()
	b, err := e.store.GetBill(context.Background(), billID)
	if err != nil {
		t.Fatalf("reload bill: %v", err)
	}
	return b
}

func (e *env) reloadParticipant(t *testing.T, id int64) *model.BillParticipant {
	t.Helper()
	p, err := e.store.GetParticipant(context.Background(), id)
	if err != nil {
		t.Fatalf("reload participant: %v", err)
	}
	return p
}

// checkInvariant asserts unallocated + sum(allocated) == total for the bill.
func (e *env) checkInvariant(t *testing.T, billID int64) {
	t.Helper()
	bill := e.reloadBill(t, billID)
	parts, err := e.store.GetParticipants(context.Background(), billID)
	if err != nil {
		t.Fatalf("load participants: %v", err)
	}
	var allocated int64
	for _, p := range parts {
		allocated += p.AllocatedAmount
	}
	if bill.UnallocatedSum+allocated != bill.TotalSum {
		t.Fatalf("invariant broken: unallocated %d + allocated %d != total %d",
			bill.UnallocatedSum, allocated, bill.TotalSum)
	}
}

func wantKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error of kind %d, got nil", kind)
	}
	if got := KindOf(err); got != kind {
		t.Fatalf("expected error kind %d, got %d (%v)", kind, got, err)
	}
}

// commit applies a raw ChangeSet, for fixtures that need states the
// services refuse to produce.
func (e *env) commit(t *testing.T, cs *storage.ChangeSet) {
	t.Helper()
	if err := e.store.Commit(context.Background(), cs); err != nil {
		t.Fatalf("commit fixture: %v", err)
	}
}

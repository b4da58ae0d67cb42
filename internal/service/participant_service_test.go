package service

import (
	"context"
	"testing"

	"github.com/splitbill/split-the-bill/internal/model"
	"github.com/splitbill/split-the-bill/internal/storage"
)

func TestAddParticipantValidation(t *testing.T) {
	e := newEnv()
	owner := e.user(t, 100, "owner")
	bill := e.bill(t, owner.ID, 10000, true)
	ghost := int64(999)

	tests := []struct {
		name      string
		userID    *int64
		guestName string
		kind      Kind
	}{
		{"neither user nor guest", nil, "", KindInvalidInput},
		{"both user and guest", &owner.ID, "lena", KindInvalidInput},
		{"unknown user", &ghost, "", KindNotFound},
		{"duplicate user seat", &owner.ID, "", KindConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.participants.Add(context.Background(), bill.ID, tt.userID, tt.guestName)
			wantKind(t, err, tt.kind)
		})
	}
}

func TestAddResplitsEquallyMode(t *testing.T) {
	e := newEnv()
	owner := e.user(t, 100, "owner")
	bill := e.bill(t, owner.ID, 10000, true)

	if _, err := e.splits.SplitEqually(context.Background(), bill.ID); err != nil {
		t.Fatalf("split equally: %v", err)
	}

	seat := e.seat(t, bill.ID, nil, "lena")
	if seat.ID == 0 {
		t.Fatal("new seat did not get an ID from the commit")
	}

	// The table was re-split over both seats inside the same commit.
	bill2 := e.reloadBill(t, bill.ID)
	if bill2.SplitMode != model.SplitEqually {
		t.Fatalf("split mode = %q, want equally", bill2.SplitMode)
	}
	if bill2.UnallocatedSum != 0 {
		t.Fatalf("unallocated = %d, want 0", bill2.UnallocatedSum)
	}
	ownerSeat, _ := e.store.GetParticipantByUser(context.Background(), bill.ID, owner.ID)
	if ownerSeat.AllocatedAmount != 5000 {
		t.Fatalf("owner allocated %d, want 5000", ownerSeat.AllocatedAmount)
	}
	if got := e.reloadParticipant(t, seat.ID).AllocatedAmount; got != 5000 {
		t.Fatalf("new seat allocated %d, want 5000", got)
	}
	e.checkInvariant(t, bill.ID)
}

func TestAddForcesManualMode(t *testing.T) {
	e := newEnv()
	owner := e.user(t, 100, "owner")
	bill := e.bill(t, owner.ID, 10000, true)

	seat := e.seat(t, bill.ID, nil, "lena")
	if seat.AllocatedAmount != 0 {
		t.Fatalf("new seat allocated %d, want 0", seat.AllocatedAmount)
	}
	if got := e.reloadBill(t, bill.ID).SplitMode; got != model.SplitManual {
		t.Fatalf("split mode = %q, want manual", got)
	}
}

func TestAddRequiresOpenBill(t *testing.T) {
	e := newEnv()
	owner := e.user(t, 100, "owner")
	bill := e.bill(t, owner.ID, 10000, false)
	e.commit(t, &storage.ChangeSet{
		BillID: bill.ID,
		Bill:   &storage.BillFields{Status: ptr(model.BillClosed)},
	})
	_, err := e.participants.Add(context.Background(), bill.ID, nil, "lena")
	wantKind(t, err, KindInvalidState)
}

func TestJoinIsIdempotent(t *testing.T) {
	e := newEnv()
	owner := e.user(t, 100, "owner")
	joiner := e.user(t, 101, "joiner")
	bill := e.bill(t, owner.ID, 10000, true)

	first, err := e.participants.Join(context.Background(), bill.ID, joiner.ID)
	if err != nil {
		t.Fatalf("first join: %v", err)
	}
	broadcasts := len(e.notifier.messages)

	second, err := e.participants.Join(context.Background(), bill.ID, joiner.ID)
	if err != nil {
		t.Fatalf("second join: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("second join produced a new seat: %d != %d", second.ID, first.ID)
	}
	if got := len(e.notifier.messages); got != broadcasts {
		t.Fatalf("second join broadcast %d extra messages", got-broadcasts)
	}

	parts, _ := e.store.GetParticipants(context.Background(), bill.ID)
	seats := 0
	for _, p := range parts {
		if p.BelongsTo(joiner.ID) {
			seats++
		}
	}
	if seats != 1 {
		t.Fatalf("joiner holds %d seats, want 1", seats)
	}
}

func TestRemoveAuthorization(t *testing.T) {
	tests := []struct {
		name      string
		requester func(owner, member, stranger int64) int64
		kind      Kind // 0 means success
	}{
		{"stranger", func(_, _, stranger int64) int64 { return stranger }, KindNotAuthorized},
		{"self", func(_, member, _ int64) int64 { return member }, 0},
		{"owner", func(owner, _, _ int64) int64 { return owner }, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv()
			owner := e.user(t, 100, "owner")
			member := e.user(t, 101, "member")
			stranger := e.user(t, 102, "stranger")
			bill := e.bill(t, owner.ID, 10000, true)
			seat := e.seat(t, bill.ID, &member.ID, "")

			err := e.participants.Remove(context.Background(), bill.ID, seat.ID,
				tt.requester(owner.ID, member.ID, stranger.ID))
			if tt.kind == 0 {
				if err != nil {
					t.Fatalf("remove: %v", err)
				}
				if _, err := e.store.GetParticipant(context.Background(), seat.ID); err != storage.ErrParticipantNotFound {
					t.Fatalf("seat still present after removal")
				}
			} else {
				wantKind(t, err, tt.kind)
			}
		})
	}
}

func TestRemoveReconciliation(t *testing.T) {
	// 300.00 split equally over owner + 2; removing one re-splits the
	// remaining two to 150.00 each and unassigns the removed user's items,
	// all in one commit.
	e := newEnv()
	owner := e.user(t, 100, "owner")
	member := e.user(t, 101, "member")
	bill := e.bill(t, owner.ID, 30000, true)
	seat := e.seat(t, bill.ID, &member.ID, "")
	e.seat(t, bill.ID, nil, "guest")

	if _, err := e.splits.SplitEqually(context.Background(), bill.ID); err != nil {
		t.Fatalf("split equally: %v", err)
	}
	item, err := e.items.AddItem(context.Background(), bill.ID, "wine", 2500, 2, &member.ID)
	if err != nil {
		t.Fatalf("add item: %v", err)
	}

	if err := e.participants.Remove(context.Background(), bill.ID, seat.ID, owner.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}

	parts, _ := e.store.GetParticipants(context.Background(), bill.ID)
	if len(parts) != 2 {
		t.Fatalf("participants left = %d, want 2", len(parts))
	}
	for _, p := range parts {
		if p.AllocatedAmount != 15000 {
			t.Errorf("participant %d allocated %d, want 15000", p.ID, p.AllocatedAmount)
		}
	}
	got, _ := e.store.GetItem(context.Background(), item.ID)
	if got.AssignedToUserID != nil {
		t.Fatalf("item still assigned to removed user")
	}
	e.checkInvariant(t, bill.ID)
}

func TestRemoveManualReturnsAllocation(t *testing.T) {
	e := newEnv()
	owner := e.user(t, 100, "owner")
	bill := e.bill(t, owner.ID, 10000, true)
	seat := e.seat(t, bill.ID, nil, "lena")

	if _, err := e.splits.AssignAmount(context.Background(), bill.ID, seat.ID, 4000); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := e.participants.Remove(context.Background(), bill.ID, seat.ID, owner.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := e.reloadBill(t, bill.ID).UnallocatedSum; got != 10000 {
		t.Fatalf("unallocated = %d, want 10000", got)
	}
	e.checkInvariant(t, bill.ID)
}

func TestSetPaidAuthorizationMatrix(t *testing.T) {
	tests := []struct {
		name      string
		actor     string // "owner" | "member" | "stranger"
		startPaid bool
		toPaid    bool
		kind      Kind // 0 means success
	}{
		{"member confirms own payment", "member", false, true, 0},
		{"member reverts own payment", "member", true, false, KindNotAuthorized},
		{"stranger confirms others", "stranger", false, true, KindNotAuthorized},
		{"owner confirms anyone", "owner", false, true, 0},
		{"owner reverts anyone", "owner", true, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv()
			owner := e.user(t, 100, "owner")
			member := e.user(t, 101, "member")
			stranger := e.user(t, 102, "stranger")
			bill := e.bill(t, owner.ID, 10000, true)
			seat := e.seat(t, bill.ID, &member.ID, "")

			e.commit(t, &storage.ChangeSet{
				BillID:      bill.ID,
				Allocations: map[int64]int64{seat.ID: 5000},
				PaidFlags:   map[int64]bool{seat.ID: tt.startPaid},
			})

			var requester int64
			switch tt.actor {
			case "owner":
				requester = owner.ID
			case "member":
				requester = member.ID
			case "stranger":
				requester = stranger.ID
			}

			p, err := e.participants.SetPaid(context.Background(), bill.ID, seat.ID, tt.toPaid, requester)
			if tt.kind == 0 {
				if err != nil {
					t.Fatalf("set paid: %v", err)
				}
				if p.IsPaid != tt.toPaid {
					t.Fatalf("is_paid = %v, want %v", p.IsPaid, tt.toPaid)
				}
			} else {
				wantKind(t, err, tt.kind)
			}
		})
	}
}

func TestSetPaidZeroAmount(t *testing.T) {
	e := newEnv()
	owner := e.user(t, 100, "owner")
	bill := e.bill(t, owner.ID, 10000, true)
	seat := e.seat(t, bill.ID, nil, "lena")

	_, err := e.participants.SetPaid(context.Background(), bill.ID, seat.ID, true, owner.ID)
	wantKind(t, err, KindBusinessRule)
}

func TestSetPaidNoopSkipsNotification(t *testing.T) {
	e := newEnv()
	owner := e.user(t, 100, "owner")
	bill := e.bill(t, owner.ID, 10000, true)
	seat := e.seat(t, bill.ID, nil, "lena")

	before := len(e.notifier.messages)
	p, err := e.participants.SetPaid(context.Background(), bill.ID, seat.ID, false, owner.ID)
	if err != nil {
		t.Fatalf("no-op set paid: %v", err)
	}
	if p.IsPaid {
		t.Fatal("no-op flipped the flag")
	}
	if got := len(e.notifier.messages); got != before {
		t.Fatalf("no-op broadcast %d messages", got-before)
	}
}

func TestSetPaidAdvancesBillStatus(t *testing.T) {
	e := newEnv()
	owner := e.user(t, 100, "owner")
	member := e.user(t, 101, "member")
	bill := e.bill(t, owner.ID, 10000, true)
	ownerSeat, _ := e.store.GetParticipantByUser(context.Background(), bill.ID, owner.ID)
	seat := e.seat(t, bill.ID, &member.ID, "")

	if _, err := e.splits.SplitEqually(context.Background(), bill.ID); err != nil {
		t.Fatalf("split equally: %v", err)
	}

	if _, err := e.participants.SetPaid(context.Background(), bill.ID, seat.ID, true, member.ID); err != nil {
		t.Fatalf("member pays: %v", err)
	}
	if got := e.reloadBill(t, bill.ID).Status; got != model.BillOpen {
		t.Fatalf("status = %q before everyone paid, want open", got)
	}

	if _, err := e.participants.SetPaid(context.Background(), bill.ID, ownerSeat.ID, true, owner.ID); err != nil {
		t.Fatalf("owner pays: %v", err)
	}
	if got := e.reloadBill(t, bill.ID).Status; got != model.BillPaid {
		t.Fatalf("status = %q after everyone paid, want paid", got)
	}
}

func TestCloseBill(t *testing.T) {
	e := newEnv()
	owner := e.user(t, 100, "owner")
	member := e.user(t, 101, "member")
	bill := e.bill(t, owner.ID, 10000, true)
	e.seat(t, bill.ID, &member.ID, "")

	if _, err := e.participants.Close(context.Background(), bill.ID, member.ID); KindOf(err) != KindNotAuthorized {
		t.Fatalf("non-owner close: got %v", err)
	}

	closed, err := e.participants.Close(context.Background(), bill.ID, owner.ID)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.Status != model.BillClosed {
		t.Fatalf("status = %q, want closed", closed.Status)
	}
	ownerSeat, _ := e.store.GetParticipantByUser(context.Background(), bill.ID, owner.ID)
	if !ownerSeat.IsPaid {
		t.Fatal("owner's seat not forced to paid on close")
	}

	if len(e.publisher.events) != 1 {
		t.Fatalf("published %d events, want 1", len(e.publisher.events))
	}
	if ev := e.publisher.events[0]; ev.BillID != bill.ID || ev.ParticipantCount != 2 {
		t.Fatalf("unexpected event payload: %+v", ev)
	}

	if _, err := e.participants.Close(context.Background(), bill.ID, owner.ID); KindOf(err) != KindInvalidState {
		t.Fatalf("double close: got %v", err)
	}
	if _, err := e.splits.SplitEqually(context.Background(), bill.ID); KindOf(err) != KindInvalidState {
		t.Fatalf("mutation on closed bill: got %v", err)
	}
}

func TestCloseWithoutOwnerSeat(t *testing.T) {
	e := newEnv()
	owner := e.user(t, 100, "owner")
	bill := e.bill(t, owner.ID, 10000, false)
	e.seat(t, bill.ID, nil, "lena")

	closed, err := e.participants.Close(context.Background(), bill.ID, owner.ID)
	if err != nil {
		t.Fatalf("close without owner seat: %v", err)
	}
	if closed.Status != model.BillClosed {
		t.Fatalf("status = %q, want closed", closed.Status)
	}
}

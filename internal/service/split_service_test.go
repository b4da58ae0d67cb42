package service

import (
	"context"
	"testing"

	"github.com/splitbill/split-the-bill/internal/model"
	"github.com/splitbill/split-the-bill/internal/storage"
)

func TestSplitEquallyOwnerGetsRemainder(t *testing.T) {
	e := newEnv()
	owner := e.user(t, 100, "owner")
	friend := e.user(t, 101, "friend")
	bill := e.bill(t, owner.ID, 10000, true)
	e.seat(t, bill.ID, &friend.ID, "")
	e.seat(t, bill.ID, nil, "maksim")

	updated, err := e.splits.SplitEqually(context.Background(), bill.ID)
	if err != nil {
		t.Fatalf("split equally: %v", err)
	}
	if updated.UnallocatedSum != 0 {
		t.Fatalf("unallocated = %d, want 0", updated.UnallocatedSum)
	}
	if updated.SplitMode != model.SplitEqually {
		t.Fatalf("split mode = %q, want equally", updated.SplitMode)
	}

	parts, _ := e.store.GetParticipants(context.Background(), bill.ID)
	for _, p := range parts {
		want := int64(3333)
		if p.BelongsTo(owner.ID) {
			want = 3334
		}
		if p.AllocatedAmount != want {
			t.Errorf("participant %d allocated %d, want %d", p.ID, p.AllocatedAmount, want)
		}
	}
	e.checkInvariant(t, bill.ID)
}

func TestSplitEquallyFallbackRecipient(t *testing.T) {
	// Owner has no seat: the first unpaid seat takes the remainder.
	e := newEnv()
	owner := e.user(t, 100, "owner")
	bill := e.bill(t, owner.ID, 10000, false)
	first := e.seat(t, bill.ID, nil, "anna")
	e.seat(t, bill.ID, nil, "boris")
	e.seat(t, bill.ID, nil, "vera")

	if _, err := e.splits.SplitEqually(context.Background(), bill.ID); err != nil {
		t.Fatalf("split equally: %v", err)
	}
	if got := e.reloadParticipant(t, first.ID).AllocatedAmount; got != 3334 {
		t.Fatalf("first participant allocated %d, want 3334", got)
	}
}

func TestSplitEquallySkipsPaid(t *testing.T) {
	e := newEnv()
	owner := e.user(t, 100, "owner")
	bill := e.bill(t, owner.ID, 10000, true)
	payer := e.seat(t, bill.ID, nil, "petr") // will be marked paid at 2000
	other := e.seat(t, bill.ID, nil, "dina")

	e.commit(t, &storage.ChangeSet{
		BillID:      bill.ID,
		Allocations: map[int64]int64{payer.ID: 2000},
		PaidFlags:   map[int64]bool{payer.ID: true},
	})

	if _, err := e.splits.SplitEqually(context.Background(), bill.ID); err != nil {
		t.Fatalf("split equally: %v", err)
	}
	if got := e.reloadParticipant(t, payer.ID).AllocatedAmount; got != 2000 {
		t.Fatalf("paid participant allocation changed to %d", got)
	}
	// 8000 left for the owner and one guest; owner takes base + remainder 0.
	ownerSeat, _ := e.store.GetParticipantByUser(context.Background(), bill.ID, owner.ID)
	if ownerSeat.AllocatedAmount != 4000 {
		t.Fatalf("owner allocated %d, want 4000", ownerSeat.AllocatedAmount)
	}
	if got := e.reloadParticipant(t, other.ID).AllocatedAmount; got != 4000 {
		t.Fatalf("guest allocated %d, want 4000", got)
	}
	e.checkInvariant(t, bill.ID)
}

func TestSplitEquallyFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, e *env) int64
		kind  Kind
	}{
		{
			name: "no unpaid participants",
			setup: func(t *testing.T, e *env) int64 {
				owner := e.user(t, 100, "owner")
				bill := e.bill(t, owner.ID, 5000, true)
				seat, _ := e.store.GetParticipantByUser(context.Background(), bill.ID, owner.ID)
				e.commit(t, &storage.ChangeSet{
					BillID:      bill.ID,
					Allocations: map[int64]int64{seat.ID: 5000},
					PaidFlags:   map[int64]bool{seat.ID: true},
				})
				return bill.ID
			},
			kind: KindBusinessRule,
		},
		{
			name: "paid sum exceeds total",
			setup: func(t *testing.T, e *env) int64 {
				owner := e.user(t, 100, "owner")
				bill := e.bill(t, owner.ID, 5000, true)
				paid := e.seat(t, bill.ID, nil, "gleb")
				e.seat(t, bill.ID, nil, "ira")
				e.commit(t, &storage.ChangeSet{
					BillID:      bill.ID,
					Allocations: map[int64]int64{paid.ID: 6000},
					PaidFlags:   map[int64]bool{paid.ID: true},
				})
				return bill.ID
			},
			kind: KindConflict,
		},
		{
			name: "bill missing",
			setup: func(t *testing.T, e *env) int64 {
				return 777
			},
			kind: KindNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv()
			billID := tt.setup(t, e)
			_, err := e.splits.SplitEqually(context.Background(), billID)
			wantKind(t, err, tt.kind)
		})
	}
}

func TestSplitRemainder(t *testing.T) {
	e := newEnv()
	owner := e.user(t, 100, "owner")
	bill := e.bill(t, owner.ID, 10000, true)
	ownerSeat, _ := e.store.GetParticipantByUser(context.Background(), bill.ID, owner.ID)
	a := e.seat(t, bill.ID, nil, "anna")
	b := e.seat(t, bill.ID, nil, "boris")

	// Owner takes 3700 manually, leaving 6300 to spread over three seats.
	if _, err := e.splits.AssignAmount(context.Background(), bill.ID, ownerSeat.ID, 3700); err != nil {
		t.Fatalf("assign: %v", err)
	}

	updated, err := e.splits.SplitRemainder(context.Background(), bill.ID, []int64{ownerSeat.ID, a.ID, b.ID})
	if err != nil {
		t.Fatalf("split remainder: %v", err)
	}
	if updated.UnallocatedSum != 0 {
		t.Fatalf("unallocated = %d, want 0", updated.UnallocatedSum)
	}
	if updated.SplitMode != model.SplitManual {
		t.Fatalf("split mode = %q, want manual", updated.SplitMode)
	}
	// base 2100, extra 0; the owner keeps the 3700 and gains 2100 on top.
	if got := e.reloadParticipant(t, ownerSeat.ID).AllocatedAmount; got != 5800 {
		t.Fatalf("owner allocated %d, want 5800", got)
	}
	if got := e.reloadParticipant(t, a.ID).AllocatedAmount; got != 2100 {
		t.Fatalf("anna allocated %d, want 2100", got)
	}
	if got := e.reloadParticipant(t, b.ID).AllocatedAmount; got != 2100 {
		t.Fatalf("boris allocated %d, want 2100", got)
	}
	e.checkInvariant(t, bill.ID)
}

func TestSplitRemainderOwnerTakesExtra(t *testing.T) {
	e := newEnv()
	owner := e.user(t, 100, "owner")
	bill := e.bill(t, owner.ID, 10001, true)
	ownerSeat, _ := e.store.GetParticipantByUser(context.Background(), bill.ID, owner.ID)
	a := e.seat(t, bill.ID, nil, "anna")

	// 10001 over two seats: base 5000, extra 1 to the owner.
	if _, err := e.splits.SplitRemainder(context.Background(), bill.ID, []int64{ownerSeat.ID, a.ID}); err != nil {
		t.Fatalf("split remainder: %v", err)
	}
	if got := e.reloadParticipant(t, ownerSeat.ID).AllocatedAmount; got != 5001 {
		t.Fatalf("owner allocated %d, want 5001", got)
	}
	if got := e.reloadParticipant(t, a.ID).AllocatedAmount; got != 5000 {
		t.Fatalf("anna allocated %d, want 5000", got)
	}
}

func TestSplitRemainderFailures(t *testing.T) {
	e := newEnv()
	owner := e.user(t, 100, "owner")
	bill := e.bill(t, owner.ID, 10000, true)
	ownerSeat, _ := e.store.GetParticipantByUser(context.Background(), bill.ID, owner.ID)
	paid := e.seat(t, bill.ID, nil, "paid-guest")
	e.commit(t, &storage.ChangeSet{
		BillID:      bill.ID,
		Allocations: map[int64]int64{paid.ID: 1000},
		PaidFlags:   map[int64]bool{paid.ID: true},
	})

	tests := []struct {
		name string
		ids  []int64
		kind Kind
	}{
		{"empty selection", nil, KindInvalidInput},
		{"unknown participant", []int64{ownerSeat.ID, 999}, KindNotFound},
		{"duplicate selection", []int64{ownerSeat.ID, ownerSeat.ID}, KindInvalidInput},
		{"all selected paid", []int64{paid.ID}, KindBusinessRule},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.splits.SplitRemainder(context.Background(), bill.ID, tt.ids)
			wantKind(t, err, tt.kind)
		})
	}
}

func TestAssignAmountBoundary(t *testing.T) {
	e := newEnv()
	owner := e.user(t, 100, "owner")
	bill := e.bill(t, owner.ID, 10000, true)
	seat, _ := e.store.GetParticipantByUser(context.Background(), bill.ID, owner.ID)

	// 150.00 against a 100.00 bill fails and names the maximum.
	_, err := e.splits.AssignAmount(context.Background(), bill.ID, seat.ID, 15000)
	wantKind(t, err, KindConflict)

	// Exactly the total succeeds and drains the unallocated sum.
	updated, err := e.splits.AssignAmount(context.Background(), bill.ID, seat.ID, 10000)
	if err != nil {
		t.Fatalf("assign exact total: %v", err)
	}
	if updated.UnallocatedSum != 0 {
		t.Fatalf("unallocated = %d, want 0", updated.UnallocatedSum)
	}

	// Lowering an allocation puts the difference back.
	updated, err = e.splits.AssignAmount(context.Background(), bill.ID, seat.ID, 4000)
	if err != nil {
		t.Fatalf("lower allocation: %v", err)
	}
	if updated.UnallocatedSum != 6000 {
		t.Fatalf("unallocated = %d, want 6000", updated.UnallocatedSum)
	}
	e.checkInvariant(t, bill.ID)
}

func TestAssignAmountValidation(t *testing.T) {
	e := newEnv()
	owner := e.user(t, 100, "owner")
	other := e.user(t, 101, "other")
	bill := e.bill(t, owner.ID, 10000, true)
	seat, _ := e.store.GetParticipantByUser(context.Background(), bill.ID, owner.ID)

	otherBill := e.bill(t, other.ID, 5000, true)
	foreignSeat, _ := e.store.GetParticipantByUser(context.Background(), otherBill.ID, other.ID)

	if _, err := e.splits.AssignAmount(context.Background(), bill.ID, seat.ID, -1); KindOf(err) != KindInvalidInput {
		t.Fatalf("negative amount: got %v", err)
	}
	if _, err := e.splits.AssignAmount(context.Background(), bill.ID, foreignSeat.ID, 100); KindOf(err) != KindNotFound {
		t.Fatalf("foreign participant: got %v", err)
	}
}

func TestSplitBroadcastsRefresh(t *testing.T) {
	e := newEnv()
	owner := e.user(t, 100, "owner")
	bill := e.bill(t, owner.ID, 10000, true)

	before := len(e.notifier.messages)
	if _, err := e.splits.SplitEqually(context.Background(), bill.ID); err != nil {
		t.Fatalf("split equally: %v", err)
	}
	if got := len(e.notifier.messages); got != before+1 {
		t.Fatalf("broadcasts = %d, want %d", got, before+1)
	}
}

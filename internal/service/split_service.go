package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/splitbill/split-the-bill/internal/model"
	"github.com/splitbill/split-the-bill/internal/money"
	"github.com/splitbill/split-the-bill/internal/storage"
)

// SplitService implements the three allocation algorithms. All arithmetic
// is on integer minor units; every successful call commits one atomic
// ChangeSet and broadcasts a refresh.
type SplitService struct {
	store    storage.Store
	notifier Notifier
}

func NewSplitService(store storage.Store, notifier Notifier) *SplitService {
	return &SplitService{store: store, notifier: notifier}
}

// equalShares recomputes the equal split in memory. Unpaid seats get
// total minus the paid seats' allocations divided evenly, with the
// division remainder going to the owner's seat when the owner is unpaid,
// otherwise to the first unpaid seat in order. Paid seats keep their
// allocations untouched. The touched seats are returned with their
// AllocatedAmount already updated; nothing is persisted here.
func equalShares(total, ownerID int64, participants []*model.BillParticipant) ([]*model.BillParticipant, error) {
	var unpaid []*model.BillParticipant
	var paidSum int64
	for _, p := range participants {
		if p.IsPaid {
			paidSum += p.AllocatedAmount
		} else {
			unpaid = append(unpaid, p)
		}
	}
	if len(unpaid) == 0 {
		return nil, businessRule("no unpaid participants to split between")
	}
	sumToSplit := total - paidSum
	if sumToSplit < 0 {
		return nil, conflict("paid allocations already exceed the bill total")
	}

	base := sumToSplit / int64(len(unpaid))
	remainder := sumToSplit % int64(len(unpaid))

	recipient := unpaid[0]
	for _, p := range unpaid {
		if p.BelongsTo(ownerID) {
			recipient = p
			break
		}
	}
	for _, p := range unpaid {
		p.AllocatedAmount = base
		if p == recipient {
			p.AllocatedAmount += remainder
		}
	}
	return unpaid, nil
}

// SplitEqually overwrites every unpaid participant's allocation with an
// even share of the total, switches the bill to the equally mode and
// zeroes the unallocated sum.
func (s *SplitService) SplitEqually(ctx context.Context, billID int64) (*model.Bill, error) {
	bill, err := loadOpenBill(ctx, s.store, billID)
	if err != nil {
		return nil, err
	}
	participants, err := s.store.GetParticipants(ctx, billID)
	if err != nil {
		return nil, err
	}

	touched, err := equalShares(bill.TotalSum, bill.OwnerID, participants)
	if err != nil {
		return nil, err
	}

	cs := &storage.ChangeSet{
		BillID:      billID,
		Bill:        &storage.BillFields{UnallocatedSum: ptr(int64(0)), SplitMode: ptr(model.SplitEqually)},
		Allocations: make(map[int64]int64, len(touched)),
	}
	for _, p := range touched {
		cs.Allocations[p.ID] = p.AllocatedAmount
	}
	if err := s.store.Commit(ctx, cs); err != nil {
		return nil, err
	}

	bill.UnallocatedSum = 0
	bill.SplitMode = model.SplitEqually
	slog.Info("split: equal", "bill_id", billID, "participants", len(touched))
	s.notifier.Broadcast(billID, MsgRefresh)
	return bill, nil
}

// SplitRemainder distributes the bill's unallocated sum evenly across the
// selected unpaid participants, on top of whatever they already hold. The
// bill drops to manual mode: a remainder split is a one-off allocation
// event, not a policy.
func (s *SplitService) SplitRemainder(ctx context.Context, billID int64, participantIDs []int64) (*model.Bill, error) {
	if len(participantIDs) == 0 {
		return nil, invalidInput("no participants selected")
	}
	bill, err := loadOpenBill(ctx, s.store, billID)
	if err != nil {
		return nil, err
	}
	participants, err := s.store.GetParticipants(ctx, billID)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*model.BillParticipant, len(participants))
	for _, p := range participants {
		byID[p.ID] = p
	}
	selected := make(map[int64]struct{}, len(participantIDs))
	for _, id := range participantIDs {
		if _, ok := byID[id]; !ok {
			return nil, notFound(fmt.Sprintf("participant %d does not belong to this bill", id))
		}
		selected[id] = struct{}{}
	}
	if len(selected) != len(participantIDs) {
		return nil, invalidInput("duplicate participants in selection")
	}

	// Keep store order so the fallback tie-break recipient is stable.
	var unpaid []*model.BillParticipant
	for _, p := range participants {
		if _, ok := selected[p.ID]; ok && !p.IsPaid {
			unpaid = append(unpaid, p)
		}
	}
	if len(unpaid) == 0 {
		return nil, businessRule("all selected participants have already paid")
	}

	base := bill.UnallocatedSum / int64(len(unpaid))
	extra := bill.UnallocatedSum % int64(len(unpaid))

	recipient := unpaid[0]
	for _, p := range unpaid {
		if p.BelongsTo(bill.OwnerID) {
			recipient = p
			break
		}
	}

	cs := &storage.ChangeSet{
		BillID:      billID,
		Bill:        &storage.BillFields{UnallocatedSum: ptr(int64(0)), SplitMode: ptr(model.SplitManual)},
		Allocations: make(map[int64]int64, len(unpaid)),
	}
	for _, p := range unpaid {
		amount := p.AllocatedAmount + base
		if p == recipient {
			amount += extra
		}
		cs.Allocations[p.ID] = amount
	}
	if err := s.store.Commit(ctx, cs); err != nil {
		return nil, err
	}

	bill.UnallocatedSum = 0
	bill.SplitMode = model.SplitManual
	slog.Info("split: remainder", "bill_id", billID, "selected", len(unpaid))
	s.notifier.Broadcast(billID, MsgRefresh)
	return bill, nil
}

// AssignAmount sets one participant's allocation to an exact value,
// moving the difference in or out of the bill's unallocated sum. This is
// the only path that can shrink a single allocation independently of the
// others.
func (s *SplitService) AssignAmount(ctx context.Context, billID, participantID, newAmount int64) (*model.Bill, error) {
	if newAmount < 0 {
		return nil, invalidInput("amount cannot be negative")
	}
	bill, err := loadOpenBill(ctx, s.store, billID)
	if err != nil {
		return nil, err
	}
	p, err := loadBillParticipant(ctx, s.store, billID, participantID)
	if err != nil {
		return nil, err
	}

	diff := newAmount - p.AllocatedAmount
	if diff > bill.UnallocatedSum {
		maxAssignable := money.FromMinorUnits(bill.UnallocatedSum + p.AllocatedAmount)
		return nil, conflict(fmt.Sprintf("amount exceeds the unallocated sum, at most %.2f can be assigned", maxAssignable))
	}

	newUnallocated := bill.UnallocatedSum - diff
	cs := &storage.ChangeSet{
		BillID:      billID,
		Bill:        &storage.BillFields{UnallocatedSum: &newUnallocated, SplitMode: ptr(model.SplitManual)},
		Allocations: map[int64]int64{p.ID: newAmount},
	}
	if err := s.store.Commit(ctx, cs); err != nil {
		return nil, err
	}

	bill.UnallocatedSum = newUnallocated
	bill.SplitMode = model.SplitManual
	slog.Info("split: assign", "bill_id", billID, "participant_id", participantID, "amount", newAmount)
	s.notifier.Broadcast(billID, MsgRefresh)
	return bill, nil
}

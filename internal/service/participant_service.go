package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/splitbill/split-the-bill/internal/model"
	"github.com/splitbill/split-the-bill/internal/money"
	"github.com/splitbill/split-the-bill/internal/queue"
	"github.com/splitbill/split-the-bill/internal/storage"
)

// ParticipantService owns the participant lifecycle: seating, removal,
// payment confirmation and bill closure. Membership changes on an equally
// split bill re-run the equal split inside the same commit so the ledger
// invariant holds at every point a reader can observe.
type ParticipantService struct {
	store     storage.Store
	notifier  Notifier
	publisher Publisher
}

func NewParticipantService(store storage.Store, notifier Notifier, publisher Publisher) *ParticipantService {
	return &ParticipantService{store: store, notifier: notifier, publisher: publisher}
}

// Add seats a registered user (userID set) or a named guest (guestName
// set); exactly one of the two must be provided. The new seat starts
// unpaid with a zero allocation. On an equally split bill the whole table
// is re-split including the new seat; otherwise the bill is forced to
// manual mode.
func (s *ParticipantService) Add(ctx context.Context, billID int64, userID *int64, guestName string) (*model.BillParticipant, error) {
	if (userID == nil) == (guestName == "") {
		return nil, invalidInput("provide either user_id or guest_name, not both")
	}
	bill, err := loadOpenBill(ctx, s.store, billID)
	if err != nil {
		return nil, err
	}
	if userID != nil {
		if _, err := s.store.GetUser(ctx, *userID); err != nil {
			if errors.Is(err, storage.ErrUserNotFound) {
				return nil, notFound("user not found")
			}
			return nil, err
		}
	}

	seat := &model.BillParticipant{
		BillID:    billID,
		UserID:    userID,
		GuestName: guestName,
	}
	cs := &storage.ChangeSet{
		BillID:          billID,
		AddParticipants: []*model.BillParticipant{seat},
	}

	if bill.SplitMode == model.SplitEqually {
		participants, err := s.store.GetParticipants(ctx, billID)
		if err != nil {
			return nil, err
		}
		touched, err := equalShares(bill.TotalSum, bill.OwnerID, append(participants, seat))
		if err != nil {
			return nil, err
		}
		cs.Bill = &storage.BillFields{UnallocatedSum: ptr(int64(0)), SplitMode: ptr(model.SplitEqually)}
		cs.Allocations = make(map[int64]int64, len(touched))
		for _, p := range touched {
			if p == seat {
				// The insert row carries its own share; there is no ID to
				// key an allocation update on yet.
				continue
			}
			cs.Allocations[p.ID] = p.AllocatedAmount
		}
	} else {
		cs.Bill = &storage.BillFields{SplitMode: ptr(model.SplitManual)}
	}

	if err := s.store.Commit(ctx, cs); err != nil {
		if errors.Is(err, storage.ErrDuplicateParticipant) {
			return nil, conflict("user already participates in this bill")
		}
		return nil, err
	}

	slog.Info("participant: added", "bill_id", billID, "participant_id", seat.ID, "guest", seat.GuestName != "")
	s.notifier.Broadcast(billID, MsgRefresh)
	return seat, nil
}

// Join is the self-service variant of Add: idempotent per (bill, user).
// An existing seat is returned unchanged with no side effect and no
// notification.
func (s *ParticipantService) Join(ctx context.Context, billID, userID int64) (*model.BillParticipant, error) {
	if _, err := loadOpenBill(ctx, s.store, billID); err != nil {
		return nil, err
	}
	existing, err := s.store.GetParticipantByUser(ctx, billID, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, storage.ErrParticipantNotFound) {
		return nil, err
	}
	return s.Add(ctx, billID, &userID, "")
}

// Remove deletes a seat. Only the bill owner or the seat's own user may
// do it. Item assignments pointing at the removed user are cleared, a
// manual bill gets the seat's allocation back into the unallocated sum,
// and an equally split bill is re-split over the remaining seats. All of
// it commits as one unit.
func (s *ParticipantService) Remove(ctx context.Context, billID, participantID, requesterID int64) error {
	bill, err := loadOpenBill(ctx, s.store, billID)
	if err != nil {
		return err
	}
	p, err := loadBillParticipant(ctx, s.store, billID, participantID)
	if err != nil {
		return err
	}
	if requesterID != bill.OwnerID && !p.BelongsTo(requesterID) {
		return notAuthorized("only the bill owner or the participant themselves can remove a participant")
	}

	cs := &storage.ChangeSet{
		BillID:               billID,
		RemoveParticipantIDs: []int64{p.ID},
		UnassignItemsOfUser:  p.UserID,
	}

	if bill.SplitMode == model.SplitEqually {
		participants, err := s.store.GetParticipants(ctx, billID)
		if err != nil {
			return err
		}
		remaining := make([]*model.BillParticipant, 0, len(participants))
		for _, other := range participants {
			if other.ID != p.ID {
				remaining = append(remaining, other)
			}
		}
		touched, err := equalShares(bill.TotalSum, bill.OwnerID, remaining)
		if err != nil {
			return err
		}
		cs.Bill = &storage.BillFields{UnallocatedSum: ptr(int64(0))}
		cs.Allocations = make(map[int64]int64, len(touched))
		for _, other := range touched {
			cs.Allocations[other.ID] = other.AllocatedAmount
		}
	} else {
		cs.Bill = &storage.BillFields{UnallocatedSum: ptr(bill.UnallocatedSum + p.AllocatedAmount)}
	}

	if err := s.store.Commit(ctx, cs); err != nil {
		return err
	}

	slog.Info("participant: removed", "bill_id", billID, "participant_id", participantID, "by", requesterID)
	s.notifier.Broadcast(billID, MsgRefresh)
	return nil
}

// SetPaid flips a seat's paid flag. Setting the flag to its current value
// is a silent no-op. The owner may move it either way on any seat; anyone
// else may only confirm their own payment. A seat with nothing allocated
// cannot be confirmed. When the last seat turns paid the bill advances
// from open to paid, decided by a fresh read of the whole table rather
// than a counter.
func (s *ParticipantService) SetPaid(ctx context.Context, billID, participantID int64, isPaid bool, requesterID int64) (*model.BillParticipant, error) {
	bill, err := loadBill(ctx, s.store, billID)
	if err != nil {
		return nil, err
	}
	if bill.Status == model.BillClosed {
		return nil, invalidState("bill is closed, no changes allowed")
	}
	p, err := loadBillParticipant(ctx, s.store, billID, participantID)
	if err != nil {
		return nil, err
	}
	if p.IsPaid == isPaid {
		return p, nil
	}

	if requesterID != bill.OwnerID {
		if !p.BelongsTo(requesterID) || !isPaid {
			return nil, notAuthorized("only the bill owner can change payment status of others or revert a payment")
		}
	}
	if isPaid && p.AllocatedAmount <= 0 {
		return nil, businessRule("cannot confirm a payment of zero amount")
	}

	cs := &storage.ChangeSet{
		BillID:    billID,
		PaidFlags: map[int64]bool{p.ID: isPaid},
	}
	if err := s.store.Commit(ctx, cs); err != nil {
		return nil, err
	}
	p.IsPaid = isPaid

	if isPaid && bill.Status == model.BillOpen {
		if err := s.advanceStatusIfSettled(ctx, billID); err != nil {
			return nil, err
		}
	}

	slog.Info("participant: paid flag changed", "bill_id", billID, "participant_id", participantID, "is_paid", isPaid, "by", requesterID)
	s.notifier.Broadcast(billID, MsgRefresh)
	return p, nil
}

// advanceStatusIfSettled re-reads the participant set and moves the bill
// from open to paid when every seat is settled.
func (s *ParticipantService) advanceStatusIfSettled(ctx context.Context, billID int64) error {
	participants, err := s.store.GetParticipants(ctx, billID)
	if err != nil {
		return err
	}
	if len(participants) == 0 {
		return nil
	}
	for _, p := range participants {
		if !p.IsPaid {
			return nil
		}
	}
	cs := &storage.ChangeSet{
		BillID: billID,
		Bill:   &storage.BillFields{Status: ptr(model.BillPaid)},
	}
	if err := s.store.Commit(ctx, cs); err != nil {
		return err
	}
	slog.Info("bill: all participants paid", "bill_id", billID)
	return nil
}

// Close finishes a bill. Owner only, from open or paid. The owner's own
// seat, if present, is forced to paid in the same commit; a bill the
// owner never joined simply closes without it. A bill.closed event goes
// to the broker best-effort after the commit.
func (s *ParticipantService) Close(ctx context.Context, billID, requesterID int64) (*model.Bill, error) {
	bill, err := loadBill(ctx, s.store, billID)
	if err != nil {
		return nil, err
	}
	if requesterID != bill.OwnerID {
		return nil, notAuthorized("only the bill owner can close the bill")
	}
	if bill.Status == model.BillClosed {
		return nil, invalidState("bill is already closed")
	}

	participants, err := s.store.GetParticipants(ctx, billID)
	if err != nil {
		return nil, err
	}

	cs := &storage.ChangeSet{
		BillID: billID,
		Bill:   &storage.BillFields{Status: ptr(model.BillClosed)},
	}
	for _, p := range participants {
		if p.BelongsTo(bill.OwnerID) && !p.IsPaid {
			cs.PaidFlags = map[int64]bool{p.ID: true}
			break
		}
	}
	if err := s.store.Commit(ctx, cs); err != nil {
		return nil, err
	}
	bill.Status = model.BillClosed

	slog.Info("bill: closed", "bill_id", billID, "owner_id", bill.OwnerID)
	s.notifier.Broadcast(billID, MsgRefresh)

	if s.publisher != nil {
		event := queue.BillClosedEvent{
			BillID:           bill.ID,
			OwnerID:          bill.OwnerID,
			Title:            bill.Title,
			Total:            money.FromMinorUnits(bill.TotalSum),
			ParticipantCount: len(participants),
			ClosedAt:         time.Now().UTC().Format(time.RFC3339),
		}
		if err := s.publisher.PublishBillClosed(ctx, event); err != nil {
			slog.Warn("bill: closed event not published", "bill_id", billID, "error", err)
		}
	}
	return bill, nil
}

package service

import (
	"context"
	"errors"

	"github.com/splitbill/split-the-bill/internal/model"
	"github.com/splitbill/split-the-bill/internal/queue"
	"github.com/splitbill/split-the-bill/internal/storage"
)

// MsgRefresh is the opaque hub message telling subscribers to re-fetch the
// bill. Every committed ledger mutation is followed by exactly one of these.
const MsgRefresh = "REFRESH"

// Notifier is the fan-out consumed by services. Satisfied by *notify.Hub.
type Notifier interface {
	Broadcast(billID int64, message string)
}

// Publisher delivers bill lifecycle events to the broker. Publication is
// best-effort; services log and swallow its errors.
type Publisher interface {
	PublishBillClosed(ctx context.Context, event queue.BillClosedEvent) error
}

// PublisherFunc adapts a plain function to the Publisher interface.
type PublisherFunc func(ctx context.Context, event queue.BillClosedEvent) error

func (f PublisherFunc) PublishBillClosed(ctx context.Context, event queue.BillClosedEvent) error {
	return f(ctx, event)
}

// loadBill fetches the bill, translating the store sentinel into a domain
// error.
func loadBill(ctx context.Context, store storage.Store, billID int64) (*model.Bill, error) {
	bill, err := store.GetBill(ctx, billID)
	if errors.Is(err, storage.ErrBillNotFound) {
		return nil, notFound("bill not found")
	}
	if err != nil {
		return nil, err
	}
	return bill, nil
}

// loadOpenBill fetches the bill and rejects it unless it still accepts
// ledger mutations.
func loadOpenBill(ctx context.Context, store storage.Store, billID int64) (*model.Bill, error) {
	bill, err := loadBill(ctx, store, billID)
	if err != nil {
		return nil, err
	}
	if !bill.Open() {
		return nil, invalidState("bill is " + string(bill.Status) + ", no changes allowed")
	}
	return bill, nil
}

// loadBillParticipant fetches a participant and verifies it belongs to the
// bill; a seat on another bill is indistinguishable from a missing one.
func loadBillParticipant(ctx context.Context, store storage.Store, billID, participantID int64) (*model.BillParticipant, error) {
	p, err := store.GetParticipant(ctx, participantID)
	if errors.Is(err, storage.ErrParticipantNotFound) {
		return nil, notFound("participant not found")
	}
	if err != nil {
		return nil, err
	}
	if p.BillID != billID {
		return nil, notFound("participant not found")
	}
	return p, nil
}

func ptr[T any](v T) *T { return &v }

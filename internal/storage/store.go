// Package storage defines the ledger store contract: durable persistence
// for bills, items and participants, with point lookups, listings and an
// atomic commit of a set of field mutations. Service code depends only on
// the Store interface so the backend can be swapped (MySQL in production,
// in-memory in tests) without touching business logic.
package storage

import (
	"context"
	"errors"

	"github.com/splitbill/split-the-bill/internal/model"
)

// Sentinel errors returned by lookups. Services translate these into
// typed domain errors; handlers never see them directly.
var (
	ErrBillNotFound        = errors.New("bill not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrItemNotFound        = errors.New("item not found")
	// ErrDuplicateParticipant is returned when an insert would give a
	// registered user a second seat on the same bill.
	ErrDuplicateParticipant = errors.New("participant already exists for this bill and user")
)

// BillFields carries optional bill column updates inside a ChangeSet.
// Nil pointers mean "leave the column untouched".
type BillFields struct {
	UnallocatedSum *int64
	SplitMode      *model.SplitMode
	Status         *model.BillStatus
}

// ChangeSet is one atomic unit of ledger mutation against a single bill.
// Commit applies every part of it in a single transaction: a concurrent
// reader never observes a state where the bill's unallocated sum reflects
// a new allocation while a participant row still carries the old one.
type ChangeSet struct {
	BillID int64

	// Bill column updates, applied first.
	Bill *BillFields

	// Allocations maps participant ID -> new allocated_amount.
	Allocations map[int64]int64

	// PaidFlags maps participant ID -> new is_paid value.
	PaidFlags map[int64]bool

	// AddParticipants are inserted; generated IDs are written back into
	// the records on success.
	AddParticipants []*model.BillParticipant

	// RemoveParticipantIDs are deleted.
	RemoveParticipantIDs []int64

	// UnassignItemsOfUser clears assigned_to_user_id on every item of the
	// bill currently assigned to this user. Nil means no unassignment.
	UnassignItemsOfUser *int64
}

// Empty reports whether the change set carries no mutation at all.
func (cs *ChangeSet) Empty() bool {
	return cs.Bill == nil && len(cs.Allocations) == 0 && len(cs.PaidFlags) == 0 &&
		len(cs.AddParticipants) == 0 && len(cs.RemoveParticipantIDs) == 0 &&
		cs.UnassignItemsOfUser == nil
}

// BillSummary pairs a bill with its participant count for list views.
type BillSummary struct {
	Bill             model.Bill
	ParticipantCount int
}

// Store is the ledger store consumed by the service layer. Every method
// is atomic per call; Commit either fully applies its ChangeSet or fails
// without any partial write.
type Store interface {
	// Users.
	UpsertUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id int64) (*model.User, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)

	// Bills. CreateBill inserts the bill and, when ownerSeat is non-nil,
	// the owner's participant row in the same transaction.
	CreateBill(ctx context.Context, bill *model.Bill, ownerSeat *model.BillParticipant) error
	GetBill(ctx context.Context, id int64) (*model.Bill, error)
	// ListUserBills returns bills the user owns or participates in,
	// newest first.
	ListUserBills(ctx context.Context, userID int64, offset, limit int) ([]BillSummary, error)

	// Participants. GetParticipants returns seats in insertion order;
	// split iteration order depends on it.
	GetParticipants(ctx context.Context, billID int64) ([]*model.BillParticipant, error)
	GetParticipant(ctx context.Context, id int64) (*model.BillParticipant, error)
	GetParticipantByUser(ctx context.Context, billID, userID int64) (*model.BillParticipant, error)

	// Items.
	CreateItem(ctx context.Context, item *model.BillItem) error
	GetItems(ctx context.Context, billID int64) ([]*model.BillItem, error)
	GetItemsByAssignee(ctx context.Context, billID, userID int64) ([]*model.BillItem, error)
	GetItem(ctx context.Context, id int64) (*model.BillItem, error)
	DeleteItem(ctx context.Context, id int64) error

	// Commit atomically applies one ChangeSet.
	Commit(ctx context.Context, cs *ChangeSet) error

	// Close releases any resources held by the store.
	Close() error
}

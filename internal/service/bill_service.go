package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/splitbill/split-the-bill/internal/model"
	"github.com/splitbill/split-the-bill/internal/storage"
)

// BillService covers bill creation, detail views and listings.
type BillService struct {
	store    storage.Store
	notifier Notifier
}

func NewBillService(store storage.Store, notifier Notifier) *BillService {
	return &BillService{store: store, notifier: notifier}
}

// ParticipantView is a seat with the registered user's profile resolved
// for display. Username and AvatarURL stay empty for guests.
type ParticipantView struct {
	Participant *model.BillParticipant
	Username    string
	AvatarURL   string
}

// BillDetails is the full view of one bill: the ledger row, the seats
// with profiles resolved and the itemization.
type BillDetails struct {
	Bill         *model.Bill
	Participants []ParticipantView
	Items        []*model.BillItem
}

// Create opens a new bill with the whole total unallocated. When
// includeOwner is set the owner gets a seat in the same transaction.
func (s *BillService) Create(ctx context.Context, ownerID, totalSum int64, title, paymentDetails string, includeOwner bool) (*model.Bill, error) {
	if totalSum <= 0 {
		return nil, invalidInput("bill total must be positive")
	}
	bill := &model.Bill{
		OwnerID:        ownerID,
		TotalSum:       totalSum,
		UnallocatedSum: totalSum,
		Title:          title,
		PaymentDetails: paymentDetails,
		SplitMode:      model.SplitManual,
		Status:         model.BillOpen,
	}
	var ownerSeat *model.BillParticipant
	if includeOwner {
		ownerSeat = &model.BillParticipant{UserID: &ownerID}
	}
	if err := s.store.CreateBill(ctx, bill, ownerSeat); err != nil {
		return nil, err
	}
	slog.Info("bill: created", "bill_id", bill.ID, "owner_id", ownerID, "total", totalSum)
	return bill, nil
}

// Get returns the bill with participants and items, resolving usernames
// and avatars for registered seats.
func (s *BillService) Get(ctx context.Context, billID int64) (*BillDetails, error) {
	bill, err := loadBill(ctx, s.store, billID)
	if err != nil {
		return nil, err
	}
	participants, err := s.store.GetParticipants(ctx, billID)
	if err != nil {
		return nil, err
	}
	items, err := s.store.GetItems(ctx, billID)
	if err != nil {
		return nil, err
	}

	users := make(map[int64]*model.User)
	views := make([]ParticipantView, 0, len(participants))
	for _, p := range participants {
		view := ParticipantView{Participant: p}
		if p.IsUser() {
			u, ok := users[*p.UserID]
			if !ok {
				u, err = s.store.GetUser(ctx, *p.UserID)
				if err != nil {
					return nil, err
				}
				users[*p.UserID] = u
			}
			view.Username = u.Username
			view.AvatarURL = u.AvatarURL
		}
		views = append(views, view)
	}
	return &BillDetails{Bill: bill, Participants: views, Items: items}, nil
}

// List returns bills the user owns or participates in, newest first.
// Limit is clamped to [1, 100] with a default of 20.
func (s *BillService) List(ctx context.Context, userID int64, offset, limit int) ([]storage.BillSummary, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return s.store.ListUserBills(ctx, userID, offset, limit)
}

// React broadcasts a reaction from a user to everyone watching the bill.
// Reactions never touch the ledger; the bill only has to exist.
func (s *BillService) React(ctx context.Context, billID, userID int64, emoji string) error {
	if emoji == "" {
		return invalidInput("emoji is required")
	}
	if _, err := loadBill(ctx, s.store, billID); err != nil {
		return err
	}
	s.notifier.Broadcast(billID, fmt.Sprintf("REACTION:%d:%s", userID, emoji))
	return nil
}

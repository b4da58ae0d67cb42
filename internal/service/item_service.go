package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/splitbill/split-the-bill/internal/model"
	"github.com/splitbill/split-the-bill/internal/storage"
)

// ItemService manages the optional itemization of a bill. Items exist for
// display and assignment only; they never move money in or out of the
// unallocated sum.
type ItemService struct {
	store    storage.Store
	notifier Notifier
}

func NewItemService(store storage.Store, notifier Notifier) *ItemService {
	return &ItemService{store: store, notifier: notifier}
}

// AddItem records one line of the bill. Price is in minor units, the item
// sum is price times count. An optional registered user can be assigned
// up front.
func (s *ItemService) AddItem(ctx context.Context, billID int64, name string, price int64, count int, assignedTo *int64) (*model.BillItem, error) {
	if name == "" {
		return nil, invalidInput("item name is required")
	}
	if price <= 0 {
		return nil, invalidInput("item price must be positive")
	}
	if count <= 0 {
		return nil, invalidInput("item count must be positive")
	}
	if _, err := loadOpenBill(ctx, s.store, billID); err != nil {
		return nil, err
	}
	if assignedTo != nil {
		if _, err := s.store.GetParticipantByUser(ctx, billID, *assignedTo); err != nil {
			if errors.Is(err, storage.ErrParticipantNotFound) {
				return nil, notFound("assignee does not participate in this bill")
			}
			return nil, err
		}
	}

	item := &model.BillItem{
		BillID:           billID,
		Name:             name,
		Price:            price,
		Count:            int64(count),
		ItemSum:          price * int64(count),
		AssignedToUserID: assignedTo,
	}
	if err := s.store.CreateItem(ctx, item); err != nil {
		return nil, err
	}

	slog.Info("item: added", "bill_id", billID, "item_id", item.ID, "sum", item.ItemSum)
	s.notifier.Broadcast(billID, MsgRefresh)
	return item, nil
}

// DeleteItem removes one line. Owner only; the unallocated sum is not
// affected.
func (s *ItemService) DeleteItem(ctx context.Context, billID, itemID, requesterID int64) error {
	bill, err := loadOpenBill(ctx, s.store, billID)
	if err != nil {
		return err
	}
	if requesterID != bill.OwnerID {
		return notAuthorized("only the bill owner can delete items")
	}
	item, err := s.store.GetItem(ctx, itemID)
	if errors.Is(err, storage.ErrItemNotFound) {
		return notFound("item not found")
	}
	if err != nil {
		return err
	}
	if item.BillID != billID {
		return notFound("item not found")
	}
	if err := s.store.DeleteItem(ctx, itemID); err != nil {
		return err
	}

	slog.Info("item: deleted", "bill_id", billID, "item_id", itemID)
	s.notifier.Broadcast(billID, MsgRefresh)
	return nil
}

// Package memory implements storage.Store entirely in memory. A single
// mutex serializes every call, which trivially satisfies the atomic-commit
// contract. It backs the service tests and is usable as a throwaway
// development store; nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/splitbill/split-the-bill/internal/model"
	"github.com/splitbill/split-the-bill/internal/storage"
)

var _ storage.Store = (*MemoryStore)(nil)

// MemoryStore keeps all records in maps guarded by one mutex.
type MemoryStore struct {
	mu sync.Mutex

	users        map[int64]*model.User
	bills        map[int64]*model.Bill
	items        map[int64]*model.BillItem
	participants map[int64]*model.BillParticipant

	nextID int64
}

// New returns an empty store.
func New() *MemoryStore {
	return &MemoryStore{
		users:        make(map[int64]*model.User),
		bills:        make(map[int64]*model.Bill),
		items:        make(map[int64]*model.BillItem),
		participants: make(map[int64]*model.BillParticipant),
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) nextSeq() int64 {
	s.nextID++
	return s.nextID
}

// ----- users -----

func (s *MemoryStore) UpsertUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.TelegramID == u.TelegramID {
			existing.Username = u.Username
			existing.AvatarURL = u.AvatarURL
			existing.UpdatedAt = time.Now().UTC()
			*u = *existing
			return nil
		}
	}
	u.ID = s.nextSeq()
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, id int64) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) GetUserByTelegramID(_ context.Context, telegramID int64) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.TelegramID == telegramID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

// ----- bills -----

func (s *MemoryStore) CreateBill(_ context.Context, bill *model.Bill, ownerSeat *model.BillParticipant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bill.ID = s.nextSeq()
	bill.CreatedAt = time.Now().UTC()
	bill.UpdatedAt = bill.CreatedAt
	cp := *bill
	s.bills[bill.ID] = &cp
	if ownerSeat != nil {
		ownerSeat.ID = s.nextSeq()
		ownerSeat.BillID = bill.ID
		ownerSeat.CreatedAt = bill.CreatedAt
		pcp := *ownerSeat
		s.participants[ownerSeat.ID] = &pcp
	}
	return nil
}

func (s *MemoryStore) GetBill(_ context.Context, id int64) (*model.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bills[id]
	if !ok {
		return nil, storage.ErrBillNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *MemoryStore) ListUserBills(_ context.Context, userID int64, offset, limit int) ([]storage.BillSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	memberOf := make(map[int64]bool)
	counts := make(map[int64]int)
	for _, p := range s.participants {
		counts[p.BillID]++
		if p.UserID != nil && *p.UserID == userID {
			memberOf[p.BillID] = true
		}
	}

	var all []storage.BillSummary
	for _, b := range s.bills {
		if b.OwnerID == userID || memberOf[b.ID] {
			all = append(all, storage.BillSummary{Bill: *b, ParticipantCount: counts[b.ID]})
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Bill.ID > all[j].Bill.ID })

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// ----- participants -----

// GetParticipants returns seats in insertion (ID) order.
func (s *MemoryStore) GetParticipants(_ context.Context, billID int64) ([]*model.BillParticipant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.BillParticipant
	for _, p := range s.participants {
		if p.BillID == billID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetParticipant(_ context.Context, id int64) (*model.BillParticipant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[id]
	if !ok {
		return nil, storage.ErrParticipantNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) GetParticipantByUser(_ context.Context, billID, userID int64) (*model.BillParticipant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.participants {
		if p.BillID == billID && p.UserID != nil && *p.UserID == userID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, storage.ErrParticipantNotFound
}

// ----- items -----

func (s *MemoryStore) CreateItem(_ context.Context, item *model.BillItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item.ID = s.nextSeq()
	item.CreatedAt = time.Now().UTC()
	cp := *item
	s.items[item.ID] = &cp
	return nil
}

func (s *MemoryStore) GetItems(_ context.Context, billID int64) ([]*model.BillItem, error) {
	return s.filterItems(func(it *model.BillItem) bool { return it.BillID == billID })
}

func (s *MemoryStore) GetItemsByAssignee(_ context.Context, billID, userID int64) ([]*model.BillItem, error) {
	return s.filterItems(func(it *model.BillItem) bool {
		return it.BillID == billID && it.AssignedToUserID != nil && *it.AssignedToUserID == userID
	})
}

func (s *MemoryStore) filterItems(keep func(*model.BillItem) bool) ([]*model.BillItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.BillItem
	for _, it := range s.items {
		if keep(it) {
			cp := *it
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetItem(_ context.Context, id int64) (*model.BillItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return nil, storage.ErrItemNotFound
	}
	cp := *it
	return &cp, nil
}

func (s *MemoryStore) DeleteItem(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return storage.ErrItemNotFound
	}
	delete(s.items, id)
	return nil
}

// ----- atomic commit -----

// Commit validates the whole ChangeSet first, then applies it under the
// lock, so a failing set leaves no partial write behind.
func (s *MemoryStore) Commit(_ context.Context, cs *storage.ChangeSet) error {
	if cs.Empty() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bills[cs.BillID]; !ok {
		return storage.ErrBillNotFound
	}
	for id := range cs.Allocations {
		if p, ok := s.participants[id]; !ok || p.BillID != cs.BillID {
			return storage.ErrParticipantNotFound
		}
	}
	for id := range cs.PaidFlags {
		if p, ok := s.participants[id]; !ok || p.BillID != cs.BillID {
			return storage.ErrParticipantNotFound
		}
	}
	for _, add := range cs.AddParticipants {
		if add.UserID == nil {
			continue
		}
		for _, p := range s.participants {
			if p.BillID == cs.BillID && p.UserID != nil && *p.UserID == *add.UserID {
				return storage.ErrDuplicateParticipant
			}
		}
	}

	if cs.UnassignItemsOfUser != nil {
		for _, it := range s.items {
			if it.BillID == cs.BillID && it.AssignedToUserID != nil && *it.AssignedToUserID == *cs.UnassignItemsOfUser {
				it.AssignedToUserID = nil
			}
		}
	}

	bill := s.bills[cs.BillID]
	if f := cs.Bill; f != nil {
		if f.UnallocatedSum != nil {
			bill.UnallocatedSum = *f.UnallocatedSum
		}
		if f.SplitMode != nil {
			bill.SplitMode = *f.SplitMode
		}
		if f.Status != nil {
			bill.Status = *f.Status
		}
		bill.UpdatedAt = time.Now().UTC()
	}

	for id, amount := range cs.Allocations {
		s.participants[id].AllocatedAmount = amount
	}
	for id, paid := range cs.PaidFlags {
		s.participants[id].IsPaid = paid
	}
	for _, add := range cs.AddParticipants {
		add.ID = s.nextSeq()
		add.BillID = cs.BillID
		add.CreatedAt = time.Now().UTC()
		cp := *add
		s.participants[add.ID] = &cp
	}
	for _, id := range cs.RemoveParticipantIDs {
		delete(s.participants, id)
	}
	return nil
}

package model

import "time"

// BillParticipant is one seat in a bill, occupied either by a registered
// user (UserID set, GuestName empty) or by a named guest (UserID nil,
// GuestName set). Exactly one of the two identifies the seat.
//
// A registered user occupies at most one seat per bill (unique index on
// bill_id + user_id); guests carry no such uniqueness constraint.
// AllocatedAmount is mutated only by the split service.
type BillParticipant struct {
	ID              int64     // bills_users.id
	BillID          int64     // bills_users.bill_id
	UserID          *int64    // bills_users.user_id (nullable, nil for guests)
	GuestName       string    // bills_users.guest_name (empty for registered users)
	AllocatedAmount int64     // bills_users.allocated_amount (minor units, >= 0)
	IsPaid          bool      // bills_users.is_paid
	CreatedAt       time.Time // bills_users.created_at
}

// IsUser reports whether the seat belongs to a registered user.
func (p *BillParticipant) IsUser() bool { return p.UserID != nil }

// BelongsTo reports whether the seat is occupied by the given user.
func (p *BillParticipant) BelongsTo(userID int64) bool {
	return p.UserID != nil && *p.UserID == userID
}

package model

import "time"

// BillItem is one line on a bill, kept for display and per-person
// assignment only. Items never participate in the allocation invariant:
// creating or deleting an item does not change the bill's unallocated sum.
//
// Fields:
//
//	ID               – primary key identifier.
//	BillID           – owning bill.
//	Name             – item label ("Pizza", "Beer").
//	Price            – unit price in minor units.
//	Count            – number of units.
//	ItemSum          – Price * Count, denormalized at insert time.
//	AssignedToUserID – registered user the item is assigned to (nil when
//	                   unassigned; guests cannot hold item assignments).
type BillItem struct {
	ID               int64     // bill_items.id
	BillID           int64     // bill_items.bill_id
	Name             string    // bill_items.name
	Price            int64     // bill_items.price (minor units)
	Count            int64     // bill_items.count
	ItemSum          int64     // bill_items.item_sum (minor units)
	AssignedToUserID *int64    // bill_items.assigned_to_user_id (nullable)
	CreatedAt        time.Time // bill_items.created_at
}

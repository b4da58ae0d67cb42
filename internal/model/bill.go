package model

import "time"

// SplitMode enumerates how a bill's total is being distributed among its
// participants. It maps to the `split_mode` column of the bills table.
type SplitMode string

const (
	// SplitManual means allocations are set individually; the bill keeps
	// an explicit unallocated remainder.
	SplitManual SplitMode = "manual"
	// SplitEqually means allocations are maintained as an even division
	// of the total and are recomputed whenever membership changes.
	SplitEqually SplitMode = "equally"
)

// BillStatus enumerates the lifecycle states of a bill. Transitions only
// move forward: open -> paid -> closed, or open -> closed directly.
type BillStatus string

const (
	BillOpen   BillStatus = "open"
	BillPaid   BillStatus = "paid"
	BillClosed BillStatus = "closed"
)

// Bill is one split session as stored in the `bills` table. All money
// fields are integer minor units. TotalSum is fixed at creation;
// UnallocatedSum is kept consistent with participant allocations by the
// split service on every mutation, never recomputed lazily.
//
// Invariant: UnallocatedSum + sum(participant.AllocatedAmount) == TotalSum
// whenever no operation is in flight.
type Bill struct {
	ID             int64      // bills.id
	OwnerID        int64      // bills.owner_id
	TotalSum       int64      // bills.total_sum (minor units)
	UnallocatedSum int64      // bills.unallocated_sum (minor units, >= 0)
	Title          string     // bills.title (optional, empty when unset)
	PaymentDetails string     // bills.payment_details (optional)
	SplitMode      SplitMode  // bills.split_mode
	Status         BillStatus // bills.status
	CreatedAt      time.Time  // bills.created_at
	UpdatedAt      time.Time  // bills.updated_at
}

// Open reports whether ledger mutations are still permitted on the bill.
func (b *Bill) Open() bool { return b.Status == BillOpen }

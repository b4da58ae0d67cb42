// Package queue contains the broker events published when bills settle,
// plus the publisher and the background consumer that records settled
// bills to logs/bills.log.
package queue

// BillClosedEvent is published when a bill's owner closes it. It carries
// enough information for downstream consumers (bot notifications,
// analytics) without querying the primary database. Money fields are in
// decimal units for human consumption.
type BillClosedEvent struct {
	BillID           int64   `json:"bill_id"`
	OwnerID          int64   `json:"owner_id"`
	Title            string  `json:"title"`
	Total            float64 `json:"total"`
	ParticipantCount int     `json:"participant_count"`
	ClosedAt         string  `json:"closed_at"`
}

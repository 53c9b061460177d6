package models

import "time"

type PayRail string

const (
	RailInternal PayRail = "internal"
	RailExternal PayRail = "external"
)

type OrderStatus string

const (
	OrderPending OrderStatus = "pending"
	OrderSuccess OrderStatus = "success"
	OrderFailed  OrderStatus = "failed"
)

// Order stores its own Amount, frozen at creation; it never re-reads the
// item price. Internal-rail orders are only ever inserted as Success:
// a rejected internal purchase writes no row at all. External-rail orders
// start Pending with the tx reference set and either flip to Success on a
// confirmed receipt or stay Pending until ExpiresAt passes.
type Order struct {
	ID             string      `json:"id"`
	BuyerAccountID string      `json:"buyer_account_id"`
	ItemID         string      `json:"item_id"`
	Amount         int64       `json:"amount"`
	PayRail        PayRail     `json:"pay_rail"`
	Status         OrderStatus `json:"status"`
	ExternalTxRef  *string     `json:"external_tx_ref,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	ExpiresAt      time.Time   `json:"expires_at"`
}

// Outcome is the tri-state result of resolving an external payment.
type Outcome int

const (
	// OutcomeConfirmed: the rail reported a successful, final settlement.
	OutcomeConfirmed Outcome = iota
	// OutcomeFailed: the rail reported a final failure.
	OutcomeFailed
	// OutcomeUnresolved: neither a receipt nor a definitive failure was
	// observed within the retry budget.
	OutcomeUnresolved
)

func (o Outcome) String() string {
	switch o {
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomeFailed:
		return "failed"
	default:
		return "unresolved"
	}
}

package models

import "time"

// RedemptionToken is a single-use download credential bound to a
// successful order. Redeeming it sets RedeemedAt; a second redemption
// fails.
type RedemptionToken struct {
	Token      string     `json:"token"`
	OrderID    string     `json:"order_id"`
	IssuedAt   time.Time  `json:"issued_at"`
	RedeemedAt *time.Time `json:"redeemed_at,omitempty"`
}

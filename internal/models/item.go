package models

import (
	"errors"
	"strings"
	"time"
)

type ItemStatus string

const (
	ItemActive   ItemStatus = "active"
	ItemInactive ItemStatus = "inactive"
)

// Item is a digital good listed by a seller. Price is in the smallest
// currency unit and is snapshotted into Order.Amount at order time, so
// editing it never changes an existing order.
type Item struct {
	ID              string     `json:"id"`
	SellerAccountID string     `json:"seller_account_id"`
	Title           string     `json:"title"`
	Price           int64      `json:"price"`
	Status          ItemStatus `json:"status"`
	RedemptionCount int64      `json:"redemption_count"`
	CreatedAt       time.Time  `json:"created_at"`
}

func (i *Item) Validate() error {
	if strings.TrimSpace(i.Title) == "" {
		return errors.New("title required")
	}
	if i.Price <= 0 {
		return errors.New("price must be > 0")
	}
	return nil
}

package models

import (
	"errors"
	"strings"
	"time"
)

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

type Account struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	PasswordHash    string    `json:"-"`
	Role            Role      `json:"role"`
	InternalBalance int64     `json:"internal_balance"`
	ExternalAddress string    `json:"external_address,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (a *Account) Validate() error {
	if !strings.Contains(a.Email, "@") {
		return errors.New("invalid email")
	}
	if a.Role != RoleBuyer && a.Role != RoleSeller {
		return errors.New("role must be buyer or seller")
	}
	return nil
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	UserRoleCustomer = "customer"
	UserRoleAdmin    = "admin"
)

type User struct {
	ID        int64
	Email     string
	FullName  string
	Role      string
	Balance   decimal.Decimal
	Currency  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

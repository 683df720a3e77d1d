package client

import (
	"time"

	"github.com/shopspring/decimal"
)

// Client is a customer that places orders and carries a standing discount rate.
type Client struct {
	ID              int64
	Number          *int64
	Name            string
	Address         *string
	Neighborhood    *string
	Phone           *string
	Salesperson     *string
	DiscountPercent decimal.NullDecimal
	Comment         *string
	Coordinates     *string
	DebtCents       int64
	DeliveryInfo    *string
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PhoneValue returns the stored phone or "".
func (c *Client) PhoneValue() string {
	if c == nil || c.Phone == nil {
		return ""
	}
	return *c.Phone
}

// CreateInput carries the fields accepted by the dedicated creation path.
type CreateInput struct {
	Name            string
	Address         *string
	Neighborhood    *string
	Phone           string
	Salesperson     *string
	DiscountPercent decimal.NullDecimal
	Comment         *string
	Coordinates     *string
	DeliveryInfo    *string
}

// UpdateInput lists every field a partial update may touch; nil means "leave as is".
type UpdateInput struct {
	Number          *int64
	Name            *string
	Address         *string
	Neighborhood    *string
	Phone           *string
	Salesperson     *string
	DiscountPercent *decimal.Decimal
	Comment         *string
	Coordinates     *string
	DebtCents       *int64
	DeliveryInfo    *string
}

type ListFilter struct {
	Query  string
	Limit  int
	Offset int
}

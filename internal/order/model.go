package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusNew       Status = "NUEVO"
	StatusConfirmed Status = "CONFIRMADO"
	StatusDelivered Status = "ENTREGADO"
	StatusCancelled Status = "CANCELADO"
)

// legacyPending is the pre-lifecycle spelling of StatusNew still found in old rows.
const legacyPending = "pendiente"

func (s Status) String() string {
	return string(s)
}

const (
	ChannelWeb      = "web"
	ChannelWhatsApp = "whatsapp"
	ChannelManual   = "manual"
)

type Item struct {
	ID               int64
	OrderID          int64
	ProductID        int64
	Quantity         int
	UnitPriceCents   int64
	SubtotalCents    int64
	ExtraDescription *string
}

type Order struct {
	ID              int64
	ClientID        int64
	Channel         string
	Status          Status
	GrossCents      int64
	DiscountPercent decimal.NullDecimal
	DiscountCents   int64
	NetCents        int64
	Observations    *string
	OriginRef       *string
	Items           []Item
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ObservationsText returns the observations log or "".
func (o *Order) ObservationsText() string {
	if o == nil || o.Observations == nil {
		return ""
	}
	return *o.Observations
}

type LineInput struct {
	ProductID        int64
	Quantity         int
	ExtraDescription *string
}

type CreateInput struct {
	ClientID     int64
	Channel      string
	Observations *string
	OriginRef    *string
	Lines        []LineInput
}

type ListFilter struct {
	Query    string
	Status   string
	ClientID *int64
	Limit    int
	Offset   int
}

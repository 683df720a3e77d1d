package order

import (
	"github.com/shopspring/decimal"

	"github.com/nortsur/pedidos/internal/apperror"
)

// PricedLine is a requested line resolved against the product's current price.
type PricedLine struct {
	ProductID        int64
	Quantity         int
	UnitPriceCents   int64
	ExtraDescription *string
}

type Totals struct {
	GrossCents      int64
	DiscountPercent decimal.NullDecimal
	DiscountCents   int64
	NetCents        int64
}

// DiscountCents floors gross * percent / 100. Percent carries up to two decimals.
func DiscountCents(gross int64, percent decimal.Decimal) int64 {
	if gross <= 0 || !percent.IsPositive() {
		return 0
	}
	return decimal.NewFromInt(gross).Mul(percent).Shift(-2).Floor().IntPart()
}

// Price builds the order items and totals. The discount snapshot is null when
// the client has no positive discount.
func Price(lines []PricedLine, discount decimal.NullDecimal) ([]Item, Totals, error) {
	if len(lines) == 0 {
		return nil, Totals{}, apperror.InvalidArgument("order must contain at least one item")
	}

	items := make([]Item, 0, len(lines))
	var gross int64
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, Totals{}, apperror.InvalidArgument("quantity for product id=%d must be positive, got %d", l.ProductID, l.Quantity)
		}
		subtotal := l.UnitPriceCents * int64(l.Quantity)
		items = append(items, Item{
			ProductID:        l.ProductID,
			Quantity:         l.Quantity,
			UnitPriceCents:   l.UnitPriceCents,
			SubtotalCents:    subtotal,
			ExtraDescription: l.ExtraDescription,
		})
		gross += subtotal
	}

	totals := Totals{GrossCents: gross}
	if discount.Valid && discount.Decimal.IsPositive() {
		totals.DiscountPercent = discount
		totals.DiscountCents = DiscountCents(gross, discount.Decimal)
	}
	totals.NetCents = gross - totals.DiscountCents

	return items, totals, nil
}

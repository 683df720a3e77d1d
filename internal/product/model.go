package product

import "time"

type Product struct {
	ID           int64     `db:"id"`
	Code         string    `db:"code"`
	Name         string    `db:"name"`
	Category     *string   `db:"category"`
	Presentation *string   `db:"presentation"`
	PriceCents   int64     `db:"price_cents"`
	Active       bool      `db:"active"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

type CreateInput struct {
	Code         string
	Name         string
	Category     *string
	Presentation *string
	PriceCents   int64
}

// UpdateInput fields left nil keep their stored value.
type UpdateInput struct {
	Name         *string
	Category     *string
	Presentation *string
	PriceCents   *int64
}

type ListFilter struct {
	Query      string
	ActiveOnly bool
	Limit      int
	Offset     int
}

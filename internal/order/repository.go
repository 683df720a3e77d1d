package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nortsur/pedidos/internal/db"
)

var ErrOrderNotFound = errors.New("order not found")

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	// Create inserts the order and its items, filling in generated ids and timestamps.
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id int64) (*Order, error)
	// GetForUpdate locks the order row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*Order, error)
	List(ctx context.Context, filter ListFilter) ([]Order, error)
	Search(ctx context.Context, query string, limit, offset int) ([]Order, error)
	UpdateState(ctx context.Context, id int64, status Status, observations *string) error
}

type postgresRepository struct {
	db   db.DBTX
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{db: pool, pool: pool}
}

const orderColumns = `o.id, o.client_id, o.channel, o.status, o.gross_cents, o.discount_percent, o.discount_cents,
	o.net_cents, o.observations, o.origin_ref, o.created_at, o.updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		o      Order
		status string
	)
	err := row.Scan(
		&o.ID,
		&o.ClientID,
		&o.Channel,
		&status,
		&o.GrossCents,
		&o.DiscountPercent,
		&o.DiscountCents,
		&o.NetCents,
		&o.Observations,
		&o.OriginRef,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Status = Normalize(status)
	o.Items = make([]Item, 0)
	return &o, nil
}

func (r *postgresRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &postgresRepository{db: tx, pool: r.pool})
	})
}

func (r *postgresRepository) Create(ctx context.Context, o *Order) error {
	queryOrder := `
		INSERT INTO orders (client_id, channel, status, gross_cents, discount_percent, discount_cents,
			net_cents, observations, origin_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, queryOrder,
		o.ClientID,
		o.Channel,
		string(o.Status),
		o.GrossCents,
		o.DiscountPercent,
		o.DiscountCents,
		o.NetCents,
		o.Observations,
		o.OriginRef,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("repository: failed to insert order: %w", err)
	}

	queryItem := `
		INSERT INTO order_items (order_id, product_id, quantity, unit_price_cents, subtotal_cents, extra_description)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	for i := range o.Items {
		item := &o.Items[i]
		item.OrderID = o.ID
		err := r.db.QueryRow(ctx, queryItem,
			item.OrderID,
			item.ProductID,
			item.Quantity,
			item.UnitPriceCents,
			item.SubtotalCents,
			item.ExtraDescription,
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("repository: failed to insert order item for order %d: %w", o.ID, err)
		}
	}

	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id int64) (*Order, error) {
	return r.getOne(ctx, id, "")
}

func (r *postgresRepository) GetForUpdate(ctx context.Context, id int64) (*Order, error) {
	return r.getOne(ctx, id, " FOR UPDATE")
}

func (r *postgresRepository) getOne(ctx context.Context, id int64, lock string) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders o WHERE o.id = $1` + lock

	o, err := scanOrder(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order by id %d: %w", id, err)
	}

	if err := r.loadItems(ctx, map[int64]*Order{o.ID: o}, []int64{o.ID}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *postgresRepository) List(ctx context.Context, filter ListFilter) ([]Order, error) {
	var (
		where []string
		args  []any
	)

	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		where = append(where, fmt.Sprintf("o.client_id = $%d", len(args)))
	}
	if strings.TrimSpace(filter.Status) != "" {
		status := Normalize(filter.Status)
		stored := []string{string(status)}
		if status == StatusNew {
			stored = append(stored, legacyPending)
		}
		args = append(args, stored)
		where = append(where, fmt.Sprintf("o.status = ANY($%d)", len(args)))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+q+"%")
		where = append(where, fmt.Sprintf(`EXISTS (
			SELECT 1 FROM clients c
			WHERE c.id = o.client_id AND (c.name ILIKE $%d OR c.phone ILIKE $%d))`, len(args), len(args)))
	}

	return r.selectOrders(ctx, where, args, filter.Limit, filter.Offset)
}

func (r *postgresRepository) Search(ctx context.Context, query string, limit, offset int) ([]Order, error) {
	args := []any{"%" + strings.TrimSpace(query) + "%"}
	where := []string{`(
		EXISTS (SELECT 1 FROM clients c WHERE c.id = o.client_id AND (c.name ILIKE $1 OR c.phone ILIKE $1))
		OR EXISTS (
			SELECT 1 FROM order_items i JOIN products p ON p.id = i.product_id
			WHERE i.order_id = o.id AND p.name ILIKE $1))`}

	return r.selectOrders(ctx, where, args, limit, offset)
}

func (r *postgresRepository) selectOrders(ctx context.Context, where []string, args []any, limit, offset int) ([]Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders o`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY o.id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders: %w", err)
	}
	defer rows.Close()

	ordersMap := make(map[int64]*Order)
	var orderIDs []int64
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order: %w", err)
		}
		ordersMap[o.ID] = o
		orderIDs = append(orderIDs, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating orders: %w", err)
	}

	if len(orderIDs) == 0 {
		return []Order{}, nil
	}

	if err := r.loadItems(ctx, ordersMap, orderIDs); err != nil {
		return nil, err
	}

	result := make([]Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		result = append(result, *ordersMap[id])
	}
	return result, nil
}

func (r *postgresRepository) loadItems(ctx context.Context, orders map[int64]*Order, ids []int64) error {
	query := `
		SELECT id, order_id, product_id, quantity, unit_price_cents, subtotal_cents, extra_description
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id
	`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("repository: failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item Item
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Quantity,
			&item.UnitPriceCents,
			&item.SubtotalCents,
			&item.ExtraDescription,
		)
		if err != nil {
			return fmt.Errorf("repository: failed to scan order item: %w", err)
		}
		if o, ok := orders[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("repository: failed iterating order items: %w", err)
	}
	return nil
}

func (r *postgresRepository) UpdateState(ctx context.Context, id int64, status Status, observations *string) error {
	query := `
		UPDATE orders
		SET status = $1, observations = $2, updated_at = now()
		WHERE id = $3
	`
	cmdTag, err := r.db.Exec(ctx, query, string(status), observations, id)
	if err != nil {
		return fmt.Errorf("repository: failed to update order %d: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

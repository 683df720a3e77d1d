package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nortsur/pedidos/internal/db"
	"github.com/nortsur/pedidos/internal/phone"
)

var ErrNotFound = errors.New("client not found")

// clientNumberLock serializes client number assignment across transactions.
const clientNumberLock = 70_001

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Create(ctx context.Context, c *Client) error
	GetByID(ctx context.Context, id int64) (*Client, error)
	List(ctx context.Context, filter ListFilter) ([]Client, error)
	// FindByPhoneDigits returns the lowest-id client with a non-empty phone whose
	// normalized digits equal digits.
	FindByPhoneDigits(ctx context.Context, digits string, activeOnly bool) (*Client, error)
	NextNumber(ctx context.Context) (int64, error)
	Update(ctx context.Context, c *Client) error
	SetActive(ctx context.Context, id int64, active bool) error
}

type postgresRepository struct {
	db   db.DBTX
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{db: pool, pool: pool}
}

const clientColumns = `id, client_number, name, address, neighborhood, phone, salesperson, discount_percent,
	comment, coordinates, debt_cents, delivery_info, active, created_at, updated_at`

func scanClient(row pgx.Row) (*Client, error) {
	var c Client
	err := row.Scan(
		&c.ID,
		&c.Number,
		&c.Name,
		&c.Address,
		&c.Neighborhood,
		&c.Phone,
		&c.Salesperson,
		&c.DiscountPercent,
		&c.Comment,
		&c.Coordinates,
		&c.DebtCents,
		&c.DeliveryInfo,
		&c.Active,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func phoneDigits(p *string) string {
	if p == nil {
		return ""
	}
	return phone.Normalize(*p)
}

func (r *postgresRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &postgresRepository{db: tx, pool: r.pool})
	})
}

func (r *postgresRepository) Create(ctx context.Context, c *Client) error {
	query := `
		INSERT INTO clients (client_number, name, address, neighborhood, phone, phone_digits, salesperson,
			discount_percent, comment, coordinates, debt_cents, delivery_info, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		c.Number,
		c.Name,
		c.Address,
		c.Neighborhood,
		c.Phone,
		phoneDigits(c.Phone),
		c.Salesperson,
		c.DiscountPercent,
		c.Comment,
		c.Coordinates,
		c.DebtCents,
		c.DeliveryInfo,
		c.Active,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("repository: failed to insert client: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id int64) (*Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`

	c, err := scanClient(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select client by id %d: %w", id, err)
	}
	return c, nil
}

func (r *postgresRepository) List(ctx context.Context, filter ListFilter) ([]Client, error) {
	var (
		where []string
		args  []any
	)

	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+q+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR phone ILIKE $%d)", len(args), len(args)))
	}

	query := `SELECT ` + clientColumns + ` FROM clients`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query clients: %w", err)
	}
	defer rows.Close()

	clients := make([]Client, 0)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan client: %w", err)
		}
		clients = append(clients, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating clients: %w", err)
	}

	return clients, nil
}

func (r *postgresRepository) FindByPhoneDigits(ctx context.Context, digits string, activeOnly bool) (*Client, error) {
	query := `
		SELECT ` + clientColumns + `
		FROM clients
		WHERE phone IS NOT NULL AND phone <> '' AND phone_digits = $1 AND ($2 = FALSE OR active)
		ORDER BY id
		LIMIT 1
	`

	c, err := scanClient(r.db.QueryRow(ctx, query, digits, activeOnly))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select client by phone digits %q: %w", digits, err)
	}
	return c, nil
}

func (r *postgresRepository) NextNumber(ctx context.Context) (int64, error) {
	if _, err := r.db.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, clientNumberLock); err != nil {
		return 0, fmt.Errorf("repository: failed to lock client numbers: %w", err)
	}

	var next int64
	err := r.db.QueryRow(ctx, `SELECT COALESCE(MAX(client_number), 0) + 1 FROM clients`).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to compute next client number: %w", err)
	}
	return next, nil
}

func (r *postgresRepository) Update(ctx context.Context, c *Client) error {
	query := `
		UPDATE clients
		SET client_number = $1, name = $2, address = $3, neighborhood = $4, phone = $5, phone_digits = $6,
			salesperson = $7, discount_percent = $8, comment = $9, coordinates = $10, debt_cents = $11,
			delivery_info = $12, updated_at = now()
		WHERE id = $13
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		c.Number,
		c.Name,
		c.Address,
		c.Neighborhood,
		c.Phone,
		phoneDigits(c.Phone),
		c.Salesperson,
		c.DiscountPercent,
		c.Comment,
		c.Coordinates,
		c.DebtCents,
		c.DeliveryInfo,
		c.ID,
	).Scan(&c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("repository: failed to update client %d: %w", c.ID, err)
	}
	return nil
}

func (r *postgresRepository) SetActive(ctx context.Context, id int64, active bool) error {
	cmdTag, err := r.db.Exec(ctx, `UPDATE clients SET active = $1, updated_at = now() WHERE id = $2`, active, id)
	if err != nil {
		return fmt.Errorf("repository: failed to set client %d active=%t: %w", id, active, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

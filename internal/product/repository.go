package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound      = errors.New("product not found")
	ErrDuplicateCode = errors.New("product code already exists")
)

// SearchLimit caps free-text product searches.
const SearchLimit = 5

type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id int64) (*Product, error)
	GetByCode(ctx context.Context, code string) (*Product, error)
	List(ctx context.Context, filter ListFilter) ([]Product, error)
	Search(ctx context.Context, text string) ([]Product, error)
	Update(ctx context.Context, p *Product) error
	SetActive(ctx context.Context, id int64, active bool) error
}

type PostgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const productColumns = `id, code, name, category, presentation, price_cents, active, created_at, updated_at`

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func (r *PostgresRepository) Create(ctx context.Context, p *Product) error {
	query, args, err := r.db.BindNamed(`
		INSERT INTO products (code, name, category, presentation, price_cents, active)
		VALUES (:code, :name, :category, :presentation, :price_cents, :active)
		RETURNING id, created_at, updated_at`, p)
	if err != nil {
		return fmt.Errorf("repository: failed to bind product insert: %w", err)
	}

	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCode
		}
		return fmt.Errorf("repository: failed to insert product %q: %w", p.Code, err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*Product, error) {
	var p Product
	err := r.db.GetContext(ctx, &p, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to get product by id %d: %w", id, err)
	}
	return &p, nil
}

func (r *PostgresRepository) GetByCode(ctx context.Context, code string) (*Product, error) {
	var p Product
	err := r.db.GetContext(ctx, &p, `SELECT `+productColumns+` FROM products WHERE code = $1`, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to get product by code %q: %w", code, err)
	}
	return &p, nil
}

func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]Product, error) {
	var (
		where []string
		args  []any
	)

	if q := strings.TrimSpace(filter.Query); q != "" {
		where = append(where, "(name ILIKE ? OR code ILIKE ?)")
		args = append(args, "%"+q+"%", "%"+q+"%")
	}
	if filter.ActiveOnly {
		where = append(where, "active")
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	products := make([]Product, 0)
	if err := r.db.SelectContext(ctx, &products, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("repository: failed to list products: %w", err)
	}
	return products, nil
}

func (r *PostgresRepository) Search(ctx context.Context, text string) ([]Product, error) {
	pattern := "%" + strings.TrimSpace(text) + "%"
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE name ILIKE $1 OR presentation ILIKE $1 OR category ILIKE $1
		ORDER BY name
		LIMIT $2`

	products := make([]Product, 0, SearchLimit)
	if err := r.db.SelectContext(ctx, &products, query, pattern, SearchLimit); err != nil {
		return nil, fmt.Errorf("repository: failed to search products: %w", err)
	}
	return products, nil
}

func (r *PostgresRepository) Update(ctx context.Context, p *Product) error {
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE products
		SET name = :name, category = :category, presentation = :presentation,
			price_cents = :price_cents, updated_at = now()
		WHERE id = :id`, p)
	if err != nil {
		return fmt.Errorf("repository: failed to update product %d: %w", p.ID, err)
	}
	return checkAffected(res)
}

func (r *PostgresRepository) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE products SET active = $1, updated_at = now() WHERE id = $2`, active, id)
	if err != nil {
		return fmt.Errorf("repository: failed to set product %d active=%t: %w", id, active, err)
	}
	return checkAffected(res)
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("repository: rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/nortsur/pedidos/internal/apperror"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

type Service interface {
	Create(ctx context.Context, in CreateInput) (*Product, error)
	Get(ctx context.Context, id int64) (*Product, error)
	GetByCode(ctx context.Context, code string) (*Product, error)
	List(ctx context.Context, filter ListFilter) ([]Product, error)
	// Search matches text against name, presentation and category; blank text
	// yields no results.
	Search(ctx context.Context, text string) ([]Product, error)
	Update(ctx context.Context, id int64, in UpdateInput) (*Product, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, in CreateInput) (*Product, error) {
	code := strings.TrimSpace(in.Code)
	if code == "" {
		return nil, apperror.InvalidArgument("product code is required")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperror.InvalidArgument("product name is required")
	}
	if in.PriceCents < 0 {
		return nil, apperror.InvalidArgument("product price must not be negative, got %d", in.PriceCents)
	}

	p := &Product{
		Code:         code,
		Name:         name,
		Category:     in.Category,
		Presentation: in.Presentation,
		PriceCents:   in.PriceCents,
		Active:       true,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, ErrDuplicateCode) {
			log.Warn().Str("code", code).Msg("service: duplicate product code")
			return nil, apperror.Conflict("product code %q already exists", code)
		}
		log.Error().Err(err).Str("code", code).Msg("service: failed to create product")
		return nil, fmt.Errorf("service: failed to create product: %w", err)
	}

	log.Info().Int64("product_id", p.ID).Str("code", p.Code).Msg("service: product created")
	return p, nil
}

func (s *service) Get(ctx context.Context, id int64) (*Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperror.NotFound("product id=%d not found", id)
		}
		log.Error().Err(err).Int64("product_id", id).Msg("service: failed to fetch product")
		return nil, fmt.Errorf("service: failed to fetch product: %w", err)
	}
	return p, nil
}

func (s *service) GetByCode(ctx context.Context, code string) (*Product, error) {
	code = strings.TrimSpace(code)
	p, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperror.NotFound("product code %q not found", code)
		}
		log.Error().Err(err).Str("code", code).Msg("service: failed to fetch product by code")
		return nil, fmt.Errorf("service: failed to fetch product by code: %w", err)
	}
	return p, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]Product, error) {
	if filter.Limit == 0 {
		filter.Limit = DefaultListLimit
	}
	if filter.Limit < 1 || filter.Limit > MaxListLimit {
		return nil, apperror.InvalidArgument("limit must be between 1 and %d, got %d", MaxListLimit, filter.Limit)
	}
	if filter.Offset < 0 {
		return nil, apperror.InvalidArgument("offset must not be negative, got %d", filter.Offset)
	}

	products, err := s.repo.List(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list products")
		return nil, fmt.Errorf("service: failed to list products: %w", err)
	}
	return products, nil
}

func (s *service) Search(ctx context.Context, text string) ([]Product, error) {
	if strings.TrimSpace(text) == "" {
		return []Product{}, nil
	}

	products, err := s.repo.Search(ctx, text)
	if err != nil {
		log.Error().Err(err).Str("text", text).Msg("service: failed to search products")
		return nil, fmt.Errorf("service: failed to search products: %w", err)
	}
	return products, nil
}

func (s *service) Update(ctx context.Context, id int64, in UpdateInput) (*Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperror.InvalidArgument("product name must not be empty")
		}
		p.Name = name
	}
	if in.PriceCents != nil {
		if *in.PriceCents < 0 {
			return nil, apperror.InvalidArgument("product price must not be negative, got %d", *in.PriceCents)
		}
		p.PriceCents = *in.PriceCents
	}
	if in.Category != nil {
		p.Category = in.Category
	}
	if in.Presentation != nil {
		p.Presentation = in.Presentation
	}

	if err := s.repo.Update(ctx, p); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperror.NotFound("product id=%d not found", id)
		}
		log.Error().Err(err).Int64("product_id", id).Msg("service: failed to update product")
		return nil, fmt.Errorf("service: failed to update product: %w", err)
	}

	log.Info().Int64("product_id", id).Msg("service: product updated")
	return p, nil
}

func (s *service) SetActive(ctx context.Context, id int64, active bool) error {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperror.NotFound("product id=%d not found", id)
		}
		log.Error().Err(err).Int64("product_id", id).Msg("service: failed to change product active flag")
		return fmt.Errorf("service: failed to change product active flag: %w", err)
	}

	log.Info().Int64("product_id", id).Bool("active", active).Msg("service: product active flag changed")
	return nil
}

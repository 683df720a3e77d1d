package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/nortsur/pedidos/internal/apperror"
	"github.com/nortsur/pedidos/internal/phone"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

var maxDiscount = decimal.NewFromInt(100)

// PhoneIndex caches normalized phone digits to client ids. Implementations may
// be lossy; every hit is verified against the database.
type PhoneIndex interface {
	Lookup(ctx context.Context, digits string) (int64, bool, error)
	Store(ctx context.Context, digits string, clientID int64) error
	Forget(ctx context.Context, digits ...string) error
}

type nopIndex struct{}

func (nopIndex) Lookup(context.Context, string) (int64, bool, error) { return 0, false, nil }
func (nopIndex) Store(context.Context, string, int64) error           { return nil }
func (nopIndex) Forget(context.Context, ...string) error              { return nil }

type Service interface {
	Create(ctx context.Context, in CreateInput) (*Client, error)
	Get(ctx context.Context, id int64) (*Client, error)
	List(ctx context.Context, filter ListFilter) ([]Client, error)
	// FindByPhone resolves the lowest-id client whose phone normalizes to the
	// same digits as raw.
	FindByPhone(ctx context.Context, raw string) (*Client, error)
	Update(ctx context.Context, id int64, in UpdateInput) (*Client, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

type Option func(*service)

func WithPhoneIndex(idx PhoneIndex) Option {
	return func(s *service) {
		if idx != nil {
			s.index = idx
		}
	}
}

type service struct {
	repo  Repository
	index PhoneIndex
}

func NewService(repo Repository, opts ...Option) Service {
	s := &service{repo: repo, index: nopIndex{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func notFound(id int64) error {
	return apperror.NotFound("client id=%d not found", id)
}

func validateDiscount(d decimal.Decimal) error {
	if d.IsNegative() || d.GreaterThan(maxDiscount) {
		return apperror.InvalidArgument("discount percent must be between 0 and 100, got %s", d.String())
	}
	return nil
}

func (s *service) Create(ctx context.Context, in CreateInput) (*Client, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperror.InvalidArgument("client name is required")
	}
	if strings.TrimSpace(in.Phone) == "" {
		return nil, apperror.InvalidArgument("client phone is required")
	}
	digits := phone.Normalize(in.Phone)
	if digits == "" {
		return nil, apperror.InvalidArgument("phone %q contains no digits", in.Phone)
	}
	if in.DiscountPercent.Valid {
		if err := validateDiscount(in.DiscountPercent.Decimal); err != nil {
			return nil, err
		}
	}

	c := &Client{
		Name:            name,
		Address:         in.Address,
		Neighborhood:    in.Neighborhood,
		Phone:           &digits,
		Salesperson:     in.Salesperson,
		DiscountPercent: in.DiscountPercent,
		Comment:         in.Comment,
		Coordinates:     in.Coordinates,
		DeliveryInfo:    in.DeliveryInfo,
		Active:          true,
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		existing, err := repo.FindByPhoneDigits(ctx, digits, true)
		switch {
		case err == nil:
			log.Warn().Int64("client_id", existing.ID).Str("phone", digits).Msg("service: active client with phone already exists")
			return apperror.Conflict("an active client with phone %s already exists (id=%d)", digits, existing.ID)
		case !errors.Is(err, ErrNotFound):
			return err
		}

		number, err := repo.NextNumber(ctx)
		if err != nil {
			return err
		}
		c.Number = &number

		return repo.Create(ctx, c)
	})
	if err != nil {
		if _, ok := apperror.KindOf(err); ok {
			return nil, err
		}
		log.Error().Err(err).Str("phone", digits).Msg("service: failed to create client")
		return nil, fmt.Errorf("service: failed to create client: %w", err)
	}

	log.Info().Int64("client_id", c.ID).Int64("client_number", *c.Number).Msg("service: client created")
	return c, nil
}

func (s *service) Get(ctx context.Context, id int64) (*Client, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn().Int64("client_id", id).Msg("service: client not found by id")
			return nil, notFound(id)
		}
		log.Error().Err(err).Int64("client_id", id).Msg("service: failed to fetch client")
		return nil, fmt.Errorf("service: failed to fetch client: %w", err)
	}
	return c, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]Client, error) {
	if filter.Limit == 0 {
		filter.Limit = DefaultListLimit
	}
	if filter.Limit < 1 || filter.Limit > MaxListLimit {
		return nil, apperror.InvalidArgument("limit must be between 1 and %d, got %d", MaxListLimit, filter.Limit)
	}
	if filter.Offset < 0 {
		return nil, apperror.InvalidArgument("offset must not be negative, got %d", filter.Offset)
	}

	clients, err := s.repo.List(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list clients")
		return nil, fmt.Errorf("service: failed to list clients: %w", err)
	}
	return clients, nil
}

func (s *service) FindByPhone(ctx context.Context, raw string) (*Client, error) {
	digits := phone.Normalize(raw)
	if digits == "" {
		return nil, apperror.NotFound("client with phone %q not found", raw)
	}

	if c := s.lookupCached(ctx, digits); c != nil {
		return c, nil
	}

	c, err := s.repo.FindByPhoneDigits(ctx, digits, false)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn().Str("phone", digits).Msg("service: client not found by phone")
			return nil, apperror.NotFound("client with phone %s not found", digits)
		}
		log.Error().Err(err).Str("phone", digits).Msg("service: failed to look up client by phone")
		return nil, fmt.Errorf("service: failed to look up client by phone: %w", err)
	}

	if err := s.index.Store(ctx, digits, c.ID); err != nil {
		log.Warn().Err(err).Str("phone", digits).Msg("service: failed to cache phone lookup")
	}
	return c, nil
}

// lookupCached returns the cached client for digits if the entry is still valid.
func (s *service) lookupCached(ctx context.Context, digits string) *Client {
	id, ok, err := s.index.Lookup(ctx, digits)
	if err != nil {
		log.Warn().Err(err).Str("phone", digits).Msg("service: phone index lookup failed")
		return nil
	}
	if !ok {
		return nil
	}

	c, err := s.repo.GetByID(ctx, id)
	if err == nil && phone.Normalize(c.PhoneValue()) == digits && strings.TrimSpace(c.PhoneValue()) != "" {
		return c
	}

	if err := s.index.Forget(ctx, digits); err != nil {
		log.Warn().Err(err).Str("phone", digits).Msg("service: failed to drop stale phone index entry")
	}
	return nil
}

func (s *service) Update(ctx context.Context, id int64, in UpdateInput) (*Client, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	oldDigits := phone.Normalize(c.PhoneValue())

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperror.InvalidArgument("client name must not be empty")
		}
		c.Name = name
	}
	if in.DiscountPercent != nil {
		if err := validateDiscount(*in.DiscountPercent); err != nil {
			return nil, err
		}
		c.DiscountPercent = decimal.NewNullDecimal(*in.DiscountPercent)
	}
	if in.Number != nil {
		c.Number = in.Number
	}
	if in.Address != nil {
		c.Address = in.Address
	}
	if in.Neighborhood != nil {
		c.Neighborhood = in.Neighborhood
	}
	if in.Phone != nil {
		c.Phone = in.Phone
	}
	if in.Salesperson != nil {
		c.Salesperson = in.Salesperson
	}
	if in.Comment != nil {
		c.Comment = in.Comment
	}
	if in.Coordinates != nil {
		c.Coordinates = in.Coordinates
	}
	if in.DebtCents != nil {
		c.DebtCents = *in.DebtCents
	}
	if in.DeliveryInfo != nil {
		c.DeliveryInfo = in.DeliveryInfo
	}

	if err := s.repo.Update(ctx, c); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFound(id)
		}
		log.Error().Err(err).Int64("client_id", id).Msg("service: failed to update client")
		return nil, fmt.Errorf("service: failed to update client: %w", err)
	}

	if newDigits := phone.Normalize(c.PhoneValue()); newDigits != oldDigits {
		if err := s.index.Forget(ctx, oldDigits, newDigits); err != nil {
			log.Warn().Err(err).Int64("client_id", id).Msg("service: failed to invalidate phone index")
		}
	}

	log.Info().Int64("client_id", id).Msg("service: client updated")
	return c, nil
}

func (s *service) SetActive(ctx context.Context, id int64, active bool) error {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn().Int64("client_id", id).Bool("active", active).Msg("service: client not found, cannot change active flag")
			return notFound(id)
		}
		log.Error().Err(err).Int64("client_id", id).Msg("service: failed to change client active flag")
		return fmt.Errorf("service: failed to change client active flag: %w", err)
	}

	log.Info().Int64("client_id", id).Bool("active", active).Msg("service: client active flag changed")
	return nil
}

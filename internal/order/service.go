package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nortsur/pedidos/internal/apperror"
	"github.com/nortsur/pedidos/internal/client"
	"github.com/nortsur/pedidos/internal/product"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200

	tagCancelled = "[CANCELADO]"
	tagReopened  = "[REABIERTO]"
)

type ClientReader interface {
	Get(ctx context.Context, id int64) (*client.Client, error)
}

type ProductReader interface {
	Get(ctx context.Context, id int64) (*product.Product, error)
}

// Observer is notified after order changes are committed.
type Observer interface {
	OrderCreated(channel string)
	OrderTransitioned(from, to Status)
}

type nopObserver struct{}

func (nopObserver) OrderCreated(string)              {}
func (nopObserver) OrderTransitioned(Status, Status) {}

type Service interface {
	// Create prices the requested lines against current product prices and the
	// client's discount, then stores the order as NUEVO.
	Create(ctx context.Context, in CreateInput) (*Order, error)
	Get(ctx context.Context, id int64) (*Order, error)
	List(ctx context.Context, filter ListFilter) ([]Order, error)
	Search(ctx context.Context, query string, limit, offset int) ([]Order, error)
	// UpdateObservations replaces the observations text; only NUEVO orders are editable.
	UpdateObservations(ctx context.Context, id int64, observations *string) (*Order, error)
	ChangeStatus(ctx context.Context, id int64, status string) (*Order, error)
	Confirm(ctx context.Context, id int64) (*Order, error)
	Deliver(ctx context.Context, id int64) (*Order, error)
	Cancel(ctx context.Context, id int64, reason string) (*Order, error)
	Reopen(ctx context.Context, id int64, reason string) (*Order, error)
	Summary(ctx context.Context, o *Order) (string, error)
	Lifecycle() *Lifecycle
}

type Option func(*service)

func WithObserver(o Observer) Option {
	return func(s *service) {
		if o != nil {
			s.observer = o
		}
	}
}

func WithLifecycle(l *Lifecycle) Option {
	return func(s *service) {
		if l != nil {
			s.lifecycle = l
		}
	}
}

// WithClock overrides the time source used for observation stamps.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

type service struct {
	repo      Repository
	clients   ClientReader
	products  ProductReader
	lifecycle *Lifecycle
	observer  Observer
	now       func() time.Time
}

func NewService(repo Repository, clients ClientReader, products ProductReader, opts ...Option) Service {
	s := &service{
		repo:      repo,
		clients:   clients,
		products:  products,
		lifecycle: DefaultLifecycle(),
		observer:  nopObserver{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func orderNotFound(id int64) error {
	return apperror.NotFound("order id=%d not found", id)
}

func (s *service) Create(ctx context.Context, in CreateInput) (*Order, error) {
	if len(in.Lines) == 0 {
		log.Warn().Int64("client_id", in.ClientID).Msg("service: attempt to create order with no items")
		return nil, apperror.InvalidArgument("order must contain at least one item")
	}
	for _, l := range in.Lines {
		if l.Quantity <= 0 {
			return nil, apperror.InvalidArgument("quantity for product id=%d must be positive, got %d", l.ProductID, l.Quantity)
		}
	}

	c, err := s.clients.Get(ctx, in.ClientID)
	if err != nil {
		return nil, err
	}

	priced := make([]PricedLine, 0, len(in.Lines))
	for _, l := range in.Lines {
		p, err := s.products.Get(ctx, l.ProductID)
		if err != nil {
			return nil, err
		}
		priced = append(priced, PricedLine{
			ProductID:        p.ID,
			Quantity:         l.Quantity,
			UnitPriceCents:   p.PriceCents,
			ExtraDescription: l.ExtraDescription,
		})
	}

	items, totals, err := Price(priced, c.DiscountPercent)
	if err != nil {
		return nil, err
	}

	channel := strings.TrimSpace(in.Channel)
	if channel == "" {
		channel = ChannelWeb
	}

	o := &Order{
		ClientID:        c.ID,
		Channel:         channel,
		Status:          StatusNew,
		GrossCents:      totals.GrossCents,
		DiscountPercent: totals.DiscountPercent,
		DiscountCents:   totals.DiscountCents,
		NetCents:        totals.NetCents,
		Observations:    trimmedOrNil(in.Observations),
		OriginRef:       trimmedOrNil(in.OriginRef),
		Items:           items,
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		return repo.Create(ctx, o)
	})
	if err != nil {
		log.Error().Err(err).Int64("client_id", c.ID).Msg("service: failed to create order in repository")
		return nil, fmt.Errorf("service: failed to create order: %w", err)
	}

	s.observer.OrderCreated(o.Channel)
	log.Info().
		Int64("order_id", o.ID).
		Int64("client_id", o.ClientID).
		Str("channel", o.Channel).
		Int64("net_cents", o.NetCents).
		Msg("service: order created")

	return o, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func (s *service) Get(ctx context.Context, id int64) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warn().Int64("order_id", id).Msg("service: order not found by id")
			return nil, orderNotFound(id)
		}
		log.Error().Err(err).Int64("order_id", id).Msg("service: failed to fetch order by id")
		return nil, fmt.Errorf("service: failed to fetch order by id: %w", err)
	}
	return o, nil
}

func validatePage(limit, offset int) (int, error) {
	if limit == 0 {
		limit = DefaultListLimit
	}
	if limit < 1 || limit > MaxListLimit {
		return 0, apperror.InvalidArgument("limit must be between 1 and %d, got %d", MaxListLimit, limit)
	}
	if offset < 0 {
		return 0, apperror.InvalidArgument("offset must not be negative, got %d", offset)
	}
	return limit, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]Order, error) {
	limit, err := validatePage(filter.Limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	filter.Limit = limit

	orders, err := s.repo.List(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list orders")
		return nil, fmt.Errorf("service: failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *service) Search(ctx context.Context, query string, limit, offset int) ([]Order, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperror.InvalidArgument("search query is required")
	}
	limit, err := validatePage(limit, offset)
	if err != nil {
		return nil, err
	}

	orders, err := s.repo.Search(ctx, query, limit, offset)
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("service: failed to search orders")
		return nil, fmt.Errorf("service: failed to search orders: %w", err)
	}
	return orders, nil
}

func (s *service) UpdateObservations(ctx context.Context, id int64, observations *string) (*Order, error) {
	var updated *Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		o, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if o.Status != StatusNew {
			log.Warn().Int64("order_id", id).Stringer("status", o.Status).Msg("service: edit attempted outside NUEVO")
			return apperror.Conflict("order %d can only be edited in status %s (current: %s)", id, StatusNew, o.Status)
		}
		if observations != nil {
			o.Observations = observations
		}
		if err := repo.UpdateState(ctx, id, o.Status, o.Observations); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, s.mapTxError(err, id, "failed to update order")
	}

	log.Info().Int64("order_id", id).Msg("service: order observations updated")
	return updated, nil
}

func (s *service) ChangeStatus(ctx context.Context, id int64, status string) (*Order, error) {
	to, err := s.lifecycle.Parse(status)
	if err != nil {
		log.Warn().Int64("order_id", id).Str("status", status).Msg("service: invalid status requested")
		return nil, err
	}
	return s.transition(ctx, id, to, "")
}

func (s *service) Confirm(ctx context.Context, id int64) (*Order, error) {
	return s.transition(ctx, id, StatusConfirmed, "")
}

func (s *service) Deliver(ctx context.Context, id int64) (*Order, error) {
	return s.transition(ctx, id, StatusDelivered, "")
}

func (s *service) Cancel(ctx context.Context, id int64, reason string) (*Order, error) {
	return s.transition(ctx, id, StatusCancelled, taggedNote(tagCancelled, reason))
}

func (s *service) Reopen(ctx context.Context, id int64, reason string) (*Order, error) {
	return s.transition(ctx, id, StatusNew, taggedNote(tagReopened, reason))
}

func taggedNote(tag, reason string) string {
	if reason = strings.TrimSpace(reason); reason != "" {
		return tag + " " + reason
	}
	return tag
}

// transition moves the locked order to status to, appending note to the
// observations log when non-empty.
func (s *service) transition(ctx context.Context, id int64, to Status, note string) (*Order, error) {
	var (
		updated *Order
		from    Status
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		o, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from = o.Status
		if !s.lifecycle.known(from) {
			return apperror.Conflict("order %d has unknown stored status %q", id, from)
		}
		if err := s.lifecycle.Check(from, to); err != nil {
			return err
		}

		observations := o.Observations
		if note != "" {
			observations = AppendObservation(observations, note, s.now())
		}
		if err := repo.UpdateState(ctx, id, to, observations); err != nil {
			return err
		}

		o.Status = to
		o.Observations = observations
		updated = o
		return nil
	})
	if err != nil {
		var terr *TransitionError
		if errors.As(err, &terr) {
			log.Warn().
				Int64("order_id", id).
				Stringer("from", terr.From).
				Stringer("to", terr.To).
				Msg("service: invalid status transition attempt")
			return nil, err
		}
		return nil, s.mapTxError(err, id, "failed to update order status")
	}

	s.observer.OrderTransitioned(from, to)
	log.Info().Int64("order_id", id).Stringer("from", from).Stringer("to", to).Msg("service: order status updated")
	return updated, nil
}

func (s *service) mapTxError(err error, id int64, msg string) error {
	if errors.Is(err, ErrOrderNotFound) {
		log.Warn().Int64("order_id", id).Msg("service: order not found")
		return orderNotFound(id)
	}
	if _, ok := apperror.KindOf(err); ok {
		return err
	}
	log.Error().Err(err).Int64("order_id", id).Msg("service: " + msg)
	return fmt.Errorf("service: %s: %w", msg, err)
}

func (s *service) Summary(ctx context.Context, o *Order) (string, error) {
	c, err := s.clients.Get(ctx, o.ClientID)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return "", err
	}

	names := make(map[int64]string, len(o.Items))
	for _, it := range o.Items {
		if _, seen := names[it.ProductID]; seen {
			continue
		}
		p, err := s.products.Get(ctx, it.ProductID)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				continue
			}
			return "", err
		}
		names[p.ID] = p.Name
	}

	return RenderSummary(o, c, names), nil
}

func (s *service) Lifecycle() *Lifecycle {
	return s.lifecycle
}

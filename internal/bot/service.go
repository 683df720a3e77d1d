// Package bot implements the chat-bot facing operations: phone lookup,
// product search and order placement by product code.
package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/nortsur/pedidos/internal/apperror"
	"github.com/nortsur/pedidos/internal/client"
	"github.com/nortsur/pedidos/internal/order"
	"github.com/nortsur/pedidos/internal/product"
)

const originPrefix = "whatsapp:"

type ClientFinder interface {
	FindByPhone(ctx context.Context, raw string) (*client.Client, error)
}

type Catalog interface {
	GetByCode(ctx context.Context, code string) (*product.Product, error)
	Search(ctx context.Context, text string) ([]product.Product, error)
}

type Orders interface {
	Create(ctx context.Context, in order.CreateInput) (*order.Order, error)
	Summary(ctx context.Context, o *order.Order) (string, error)
}

type ItemRequest struct {
	Code     string
	Quantity int
}

type OrderRequest struct {
	Phone        string
	Observations *string
	MessageID    string
	Items        []ItemRequest
}

type OrderResult struct {
	Order   *order.Order
	Client  *client.Client
	Reply   string
	Summary string
}

type Service interface {
	FindClient(ctx context.Context, phone string) (*client.Client, error)
	SearchProducts(ctx context.Context, text string) ([]product.Product, error)
	CreateOrder(ctx context.Context, req OrderRequest) (*OrderResult, error)
}

type service struct {
	clients  ClientFinder
	products Catalog
	orders   Orders
}

func NewService(clients ClientFinder, products Catalog, orders Orders) Service {
	return &service{clients: clients, products: products, orders: orders}
}

func (s *service) FindClient(ctx context.Context, phone string) (*client.Client, error) {
	return s.clients.FindByPhone(ctx, phone)
}

func (s *service) SearchProducts(ctx context.Context, text string) ([]product.Product, error) {
	return s.products.Search(ctx, text)
}

func (s *service) CreateOrder(ctx context.Context, req OrderRequest) (*OrderResult, error) {
	if len(req.Items) == 0 {
		return nil, apperror.InvalidArgument("order must contain at least one item")
	}

	c, err := s.clients.FindByPhone(ctx, req.Phone)
	if err != nil {
		log.Warn().Err(err).Str("wa_phone", req.Phone).Msg("bot: client lookup failed")
		return nil, err
	}

	byID := make(map[int64]*product.Product, len(req.Items))
	lines := make([]order.LineInput, 0, len(req.Items))
	for _, it := range req.Items {
		p, err := s.products.GetByCode(ctx, it.Code)
		if err != nil {
			return nil, err
		}
		byID[p.ID] = p
		lines = append(lines, order.LineInput{ProductID: p.ID, Quantity: it.Quantity})
	}

	originRef, err := originReference(req.MessageID)
	if err != nil {
		return nil, err
	}

	o, err := s.orders.Create(ctx, order.CreateInput{
		ClientID:     c.ID,
		Channel:      order.ChannelWhatsApp,
		Observations: req.Observations,
		OriginRef:    &originRef,
		Lines:        lines,
	})
	if err != nil {
		return nil, err
	}

	summary, err := s.orders.Summary(ctx, o)
	if err != nil {
		return nil, err
	}

	log.Info().Int64("order_id", o.ID).Int64("client_id", c.ID).Str("origin_ref", originRef).Msg("bot: order registered")

	return &OrderResult{
		Order:   o,
		Client:  c,
		Reply:   Reply(c.Name, o, byID),
		Summary: summary,
	}, nil
}

func originReference(messageID string) (string, error) {
	if id := strings.TrimSpace(messageID); id != "" {
		return originPrefix + id, nil
	}
	id, err := uuid.NewV4()
	if err != nil {
		return "", fmt.Errorf("bot: generate origin reference: %w", err)
	}
	return originPrefix + id.String(), nil
}

// Reply is the confirmation text sent back to the customer.
func Reply(clientName string, o *order.Order, products map[int64]*product.Product) string {
	lines := []string{
		fmt.Sprintf("Hola %s, tu pedido #%d fue registrado ✅", clientName, o.ID),
		"",
		"Detalle:",
	}
	for _, it := range o.Items {
		desc := fmt.Sprintf("ID %d", it.ProductID)
		if p, ok := products[it.ProductID]; ok {
			desc = p.Code + " " + p.Name
		}
		lines = append(lines, fmt.Sprintf("- x%d %s = $%s", it.Quantity, desc, plainAmount(it.SubtotalCents)))
	}
	lines = append(lines, "", "TOTAL: $"+plainAmount(o.NetCents))

	return strings.Join(lines, "\n")
}

func plainAmount(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

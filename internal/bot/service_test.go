package bot_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nortsur/pedidos/internal/apperror"
	"github.com/nortsur/pedidos/internal/bot"
	"github.com/nortsur/pedidos/internal/client"
	"github.com/nortsur/pedidos/internal/order"
	"github.com/nortsur/pedidos/internal/product"
)

type MockClients struct{ mock.Mock }

func (m *MockClients) FindByPhone(ctx context.Context, raw string) (*client.Client, error) {
	args := m.Called(ctx, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.Client), args.Error(1)
}

type MockCatalog struct{ mock.Mock }

func (m *MockCatalog) GetByCode(ctx context.Context, code string) (*product.Product, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Product), args.Error(1)
}

func (m *MockCatalog) Search(ctx context.Context, text string) ([]product.Product, error) {
	args := m.Called(ctx, text)
	return args.Get(0).([]product.Product), args.Error(1)
}

type MockOrders struct{ mock.Mock }

func (m *MockOrders) Create(ctx context.Context, in order.CreateInput) (*order.Order, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrders) Summary(ctx context.Context, o *order.Order) (string, error) {
	args := m.Called(ctx, o)
	return args.String(0), args.Error(1)
}

func TestService_CreateOrder(t *testing.T) {
	clients := new(MockClients)
	catalog := new(MockCatalog)
	orders := new(MockOrders)
	svc := bot.NewService(clients, catalog, orders)

	luis := &client.Client{ID: 3, Name: "Luis"}
	clients.On("FindByPhone", mock.Anything, "5491155732845").Return(luis, nil).Once()
	catalog.On("GetByCode", mock.Anything, "YER1").Return(&product.Product{ID: 10, Code: "YER1", Name: "Yerba Suave"}, nil).Once()
	catalog.On("GetByCode", mock.Anything, "ACE9").Return(&product.Product{ID: 11, Code: "ACE9", Name: "Aceite"}, nil).Once()

	created := &order.Order{
		ID:       120,
		ClientID: 3,
		NetCents: 225050,
		Items: []order.Item{
			{ProductID: 10, Quantity: 2, SubtotalCents: 200000},
			{ProductID: 11, Quantity: 1, SubtotalCents: 50050},
		},
	}
	orders.On("Create", mock.Anything, mock.MatchedBy(func(in order.CreateInput) bool {
		return in.ClientID == 3 &&
			in.Channel == order.ChannelWhatsApp &&
			*in.OriginRef == "whatsapp:wamid.HBgM" &&
			len(in.Lines) == 2 &&
			in.Lines[0].ProductID == 10 && in.Lines[0].Quantity == 2
	})).Return(created, nil).Once()
	orders.On("Summary", mock.Anything, created).Return("Pedido #120 – NUEVO", nil).Once()

	res, err := svc.CreateOrder(context.Background(), bot.OrderRequest{
		Phone:     "5491155732845",
		MessageID: "wamid.HBgM",
		Items:     []bot.ItemRequest{{Code: "YER1", Quantity: 2}, {Code: "ACE9", Quantity: 1}},
	})
	require.NoError(t, err)

	want := "Hola Luis, tu pedido #120 fue registrado ✅\n" +
		"\n" +
		"Detalle:\n" +
		"- x2 YER1 Yerba Suave = $2000.00\n" +
		"- x1 ACE9 Aceite = $500.50\n" +
		"\n" +
		"TOTAL: $2250.50"
	if diff := cmp.Diff(want, res.Reply); diff != "" {
		t.Errorf("reply mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "Pedido #120 – NUEVO", res.Summary)
	assert.Same(t, luis, res.Client)
	clients.AssertExpectations(t)
	catalog.AssertExpectations(t)
	orders.AssertExpectations(t)
}

func TestService_CreateOrder_GeneratesOriginRef(t *testing.T) {
	clients := new(MockClients)
	catalog := new(MockCatalog)
	orders := new(MockOrders)
	svc := bot.NewService(clients, catalog, orders)

	clients.On("FindByPhone", mock.Anything, "1155732845").Return(&client.Client{ID: 1, Name: "Ana"}, nil).Once()
	catalog.On("GetByCode", mock.Anything, "YER1").Return(&product.Product{ID: 10, Code: "YER1", Name: "Yerba"}, nil).Once()

	var ref string
	orders.On("Create", mock.Anything, mock.AnythingOfType("order.CreateInput")).
		Run(func(args mock.Arguments) { ref = *args.Get(1).(order.CreateInput).OriginRef }).
		Return(&order.Order{ID: 1}, nil).Once()
	orders.On("Summary", mock.Anything, mock.Anything).Return("", nil).Once()

	_, err := svc.CreateOrder(context.Background(), bot.OrderRequest{
		Phone: "1155732845",
		Items: []bot.ItemRequest{{Code: "YER1", Quantity: 1}},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "whatsapp:"))
	assert.Len(t, strings.TrimPrefix(ref, "whatsapp:"), 36)
}

func TestService_CreateOrder_Failures(t *testing.T) {
	t.Run("no_items", func(t *testing.T) {
		svc := bot.NewService(new(MockClients), new(MockCatalog), new(MockOrders))
		_, err := svc.CreateOrder(context.Background(), bot.OrderRequest{Phone: "1155732845"})
		assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
	})

	t.Run("unknown_phone", func(t *testing.T) {
		clients := new(MockClients)
		orders := new(MockOrders)
		svc := bot.NewService(clients, new(MockCatalog), orders)

		clients.On("FindByPhone", mock.Anything, "000").Return(nil, apperror.NotFound("client with phone 000 not found")).Once()

		_, err := svc.CreateOrder(context.Background(), bot.OrderRequest{Phone: "000", Items: []bot.ItemRequest{{Code: "X", Quantity: 1}}})
		assert.ErrorIs(t, err, apperror.ErrNotFound)
		orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("unknown_code", func(t *testing.T) {
		clients := new(MockClients)
		catalog := new(MockCatalog)
		orders := new(MockOrders)
		svc := bot.NewService(clients, catalog, orders)

		clients.On("FindByPhone", mock.Anything, "1155732845").Return(&client.Client{ID: 1}, nil).Once()
		catalog.On("GetByCode", mock.Anything, "NOPE").Return(nil, apperror.NotFound(`product code "NOPE" not found`)).Once()

		_, err := svc.CreateOrder(context.Background(), bot.OrderRequest{
			Phone: "1155732845",
			Items: []bot.ItemRequest{{Code: "NOPE", Quantity: 1}},
		})
		assert.ErrorIs(t, err, apperror.ErrNotFound)
		assert.EqualError(t, err, `product code "NOPE" not found`)
		orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestReply_UnknownProduct(t *testing.T) {
	o := &order.Order{ID: 4, NetCents: 5, Items: []order.Item{{ProductID: 9, Quantity: 1, SubtotalCents: 5}}}

	got := bot.Reply("Ana", o, nil)
	assert.Contains(t, got, "- x1 ID 9 = $0.05")
	assert.True(t, strings.HasSuffix(got, "TOTAL: $0.05"))
}

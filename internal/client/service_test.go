package client_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nortsur/pedidos/internal/apperror"
	"github.com/nortsur/pedidos/internal/cache"
	"github.com/nortsur/pedidos/internal/client"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) WithTx(ctx context.Context, fn func(context.Context, client.Repository) error) error {
	return fn(ctx, m)
}

func (m *MockRepository) Create(ctx context.Context, c *client.Client) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id int64) (*client.Client, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.Client), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, filter client.ListFilter) ([]client.Client, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]client.Client), args.Error(1)
}

func (m *MockRepository) FindByPhoneDigits(ctx context.Context, digits string, activeOnly bool) (*client.Client, error) {
	args := m.Called(ctx, digits, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.Client), args.Error(1)
}

func (m *MockRepository) NextNumber(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, c *client.Client) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockRepository) SetActive(ctx context.Context, id int64, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

func strPtr(s string) *string { return &s }

func TestService_Create_Success(t *testing.T) {
	repo := new(MockRepository)
	svc := client.NewService(repo)

	repo.On("FindByPhoneDigits", mock.Anything, "1155732845", true).Return(nil, client.ErrNotFound).Once()
	repo.On("NextNumber", mock.Anything).Return(int64(17), nil).Once()
	repo.On("Create", mock.Anything, mock.MatchedBy(func(c *client.Client) bool {
		return c.Name == "Almacén Don Luis" && c.PhoneValue() == "1155732845" && c.Active && *c.Number == 17
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*client.Client).ID = 5
	}).Return(nil).Once()

	created, err := svc.Create(context.Background(), client.CreateInput{
		Name:            "  Almacén Don Luis ",
		Phone:           "+54 9 11 5573-2845",
		DiscountPercent: decimal.NewNullDecimal(decimal.RequireFromString("10.5")),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), created.ID)
	assert.Equal(t, "10.5", created.DiscountPercent.Decimal.String())
	repo.AssertExpectations(t)
}

func TestService_Create_Validation(t *testing.T) {
	tests := []struct {
		name  string
		input client.CreateInput
	}{
		{name: "empty_name", input: client.CreateInput{Name: " ", Phone: "1155732845"}},
		{name: "missing_phone", input: client.CreateInput{Name: "Kiosco"}},
		{name: "phone_without_digits", input: client.CreateInput{Name: "Kiosco", Phone: "n/a"}},
		{
			name: "discount_over_100",
			input: client.CreateInput{
				Name:            "Kiosco",
				Phone:           "1155732845",
				DiscountPercent: decimal.NewNullDecimal(decimal.NewFromInt(101)),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			svc := client.NewService(repo)

			_, err := svc.Create(context.Background(), tt.input)
			assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
			repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestService_Create_DuplicateActivePhone(t *testing.T) {
	repo := new(MockRepository)
	svc := client.NewService(repo)

	repo.On("FindByPhoneDigits", mock.Anything, "1155732845", true).
		Return(&client.Client{ID: 3, Phone: strPtr("11 5573 2845"), Active: true}, nil).Once()

	_, err := svc.Create(context.Background(), client.CreateInput{Name: "Otro", Phone: "5491155732845"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrConflict)
	assert.Contains(t, err.Error(), "id=3")
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestService_Get_NotFound(t *testing.T) {
	repo := new(MockRepository)
	svc := client.NewService(repo)

	repo.On("GetByID", mock.Anything, int64(99)).Return(nil, client.ErrNotFound).Once()

	_, err := svc.Get(context.Background(), 99)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.EqualError(t, err, "client id=99 not found")
}

func TestService_List_Limits(t *testing.T) {
	tests := []struct {
		name      string
		filter    client.ListFilter
		wantLimit int
		wantErr   bool
	}{
		{name: "default_limit", filter: client.ListFilter{}, wantLimit: client.DefaultListLimit},
		{name: "max_limit", filter: client.ListFilter{Limit: 200}, wantLimit: 200},
		{name: "over_max", filter: client.ListFilter{Limit: 201}, wantErr: true},
		{name: "negative_offset", filter: client.ListFilter{Limit: 10, Offset: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			svc := client.NewService(repo)

			if !tt.wantErr {
				repo.On("List", mock.Anything, mock.MatchedBy(func(f client.ListFilter) bool {
					return f.Limit == tt.wantLimit
				})).Return([]client.Client{{ID: 1}}, nil).Once()
			}

			got, err := svc.List(context.Background(), tt.filter)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, 1)
			repo.AssertExpectations(t)
		})
	}
}

func newPhoneIndex(t *testing.T) (*cache.PhoneIndex, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return cache.NewPhoneIndex(rdb, time.Minute), mr
}

func TestService_FindByPhone_CachesResult(t *testing.T) {
	repo := new(MockRepository)
	idx, mr := newPhoneIndex(t)
	svc := client.NewService(repo, client.WithPhoneIndex(idx))

	stored := &client.Client{ID: 8, Name: "Despensa", Phone: strPtr("011 5573-2845")}
	repo.On("FindByPhoneDigits", mock.Anything, "1155732845", false).Return(stored, nil).Once()
	repo.On("GetByID", mock.Anything, int64(8)).Return(stored, nil).Once()

	got, err := svc.FindByPhone(context.Background(), "+5491155732845")
	require.NoError(t, err)
	assert.Equal(t, int64(8), got.ID)

	cached, err := mr.Get("pedidos:phone:1155732845")
	require.NoError(t, err)
	assert.Equal(t, "8", cached)

	got, err = svc.FindByPhone(context.Background(), "11-5573-2845")
	require.NoError(t, err)
	assert.Equal(t, int64(8), got.ID)
	repo.AssertExpectations(t)
}

func TestService_FindByPhone_StaleCacheEntry(t *testing.T) {
	repo := new(MockRepository)
	idx, _ := newPhoneIndex(t)
	svc := client.NewService(repo, client.WithPhoneIndex(idx))
	ctx := context.Background()

	require.NoError(t, idx.Store(ctx, "1155732845", 8))
	repo.On("GetByID", mock.Anything, int64(8)).
		Return(&client.Client{ID: 8, Phone: strPtr("2214445566")}, nil).Once()
	repo.On("FindByPhoneDigits", mock.Anything, "1155732845", false).
		Return(&client.Client{ID: 12, Phone: strPtr("1155732845")}, nil).Once()

	got, err := svc.FindByPhone(ctx, "1155732845")
	require.NoError(t, err)
	assert.Equal(t, int64(12), got.ID)

	id, ok, err := idx.Lookup(ctx, "1155732845")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(12), id)
}

func TestService_FindByPhone_NotFound(t *testing.T) {
	repo := new(MockRepository)
	svc := client.NewService(repo)

	repo.On("FindByPhoneDigits", mock.Anything, "1155732845", false).Return(nil, client.ErrNotFound).Once()

	_, err := svc.FindByPhone(context.Background(), "1155732845")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = svc.FindByPhone(context.Background(), "---")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	repo.AssertExpectations(t)
}

func TestService_Update(t *testing.T) {
	repo := new(MockRepository)
	idx, _ := newPhoneIndex(t)
	svc := client.NewService(repo, client.WithPhoneIndex(idx))
	ctx := context.Background()

	require.NoError(t, idx.Store(ctx, "1155732845", 4))
	require.NoError(t, idx.Store(ctx, "2214445566", 9))

	repo.On("GetByID", mock.Anything, int64(4)).
		Return(&client.Client{ID: 4, Name: "Viejo", Phone: strPtr("1155732845")}, nil).Once()
	repo.On("Update", mock.Anything, mock.MatchedBy(func(c *client.Client) bool {
		return c.Name == "Nuevo" && c.PhoneValue() == "221 444-5566" && c.DiscountPercent.Decimal.Equal(decimal.NewFromInt(15))
	})).Return(nil).Once()

	pct := decimal.NewFromInt(15)
	updated, err := svc.Update(ctx, 4, client.UpdateInput{
		Name:            strPtr("Nuevo"),
		Phone:           strPtr("221 444-5566"),
		DiscountPercent: &pct,
	})
	require.NoError(t, err)
	assert.Equal(t, "Nuevo", updated.Name)

	for _, digits := range []string{"1155732845", "2214445566"} {
		_, ok, err := idx.Lookup(ctx, digits)
		require.NoError(t, err)
		assert.False(t, ok, digits)
	}
	repo.AssertExpectations(t)
}

func TestService_Update_EmptyName(t *testing.T) {
	repo := new(MockRepository)
	svc := client.NewService(repo)

	repo.On("GetByID", mock.Anything, int64(4)).Return(&client.Client{ID: 4, Name: "Viejo"}, nil).Once()

	_, err := svc.Update(context.Background(), 4, client.UpdateInput{Name: strPtr("   ")})
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestService_SetActive(t *testing.T) {
	repo := new(MockRepository)
	svc := client.NewService(repo)

	repo.On("SetActive", mock.Anything, int64(4), false).Return(nil).Once()
	repo.On("SetActive", mock.Anything, int64(5), true).Return(client.ErrNotFound).Once()
	repo.On("SetActive", mock.Anything, int64(6), true).Return(errors.New("connection reset")).Once()

	assert.NoError(t, svc.SetActive(context.Background(), 4, false))
	assert.ErrorIs(t, svc.SetActive(context.Background(), 5, true), apperror.ErrNotFound)

	err := svc.SetActive(context.Background(), 6, true)
	require.Error(t, err)
	_, typed := apperror.KindOf(err)
	assert.False(t, typed)
	repo.AssertExpectations(t)
}

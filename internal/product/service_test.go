package product_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nortsur/pedidos/internal/apperror"
	"github.com/nortsur/pedidos/internal/product"
)

type mockProductRepository struct {
	createFunc    func(ctx context.Context, p *product.Product) error
	getByIDFunc   func(ctx context.Context, id int64) (*product.Product, error)
	getByCodeFunc func(ctx context.Context, code string) (*product.Product, error)
	listFunc      func(ctx context.Context, filter product.ListFilter) ([]product.Product, error)
	searchFunc    func(ctx context.Context, text string) ([]product.Product, error)
	updateFunc    func(ctx context.Context, p *product.Product) error
	setActiveFunc func(ctx context.Context, id int64, active bool) error
}

func (m *mockProductRepository) Create(ctx context.Context, p *product.Product) error {
	return m.createFunc(ctx, p)
}

func (m *mockProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockProductRepository) GetByCode(ctx context.Context, code string) (*product.Product, error) {
	return m.getByCodeFunc(ctx, code)
}

func (m *mockProductRepository) List(ctx context.Context, filter product.ListFilter) ([]product.Product, error) {
	return m.listFunc(ctx, filter)
}

func (m *mockProductRepository) Search(ctx context.Context, text string) ([]product.Product, error) {
	return m.searchFunc(ctx, text)
}

func (m *mockProductRepository) Update(ctx context.Context, p *product.Product) error {
	return m.updateFunc(ctx, p)
}

func (m *mockProductRepository) SetActive(ctx context.Context, id int64, active bool) error {
	return m.setActiveFunc(ctx, id, active)
}

func TestProductService_Create(t *testing.T) {
	tests := []struct {
		name       string
		input      product.CreateInput
		createFunc func(ctx context.Context, p *product.Product) error
		wantErrIs  error
		wantErrMsg string
	}{
		{
			name:       "missing_code",
			input:      product.CreateInput{Name: "Yerba 1kg", PriceCents: 350000},
			wantErrIs:  apperror.ErrInvalidArgument,
			wantErrMsg: "product code is required",
		},
		{
			name:       "missing_name",
			input:      product.CreateInput{Code: "YER1", PriceCents: 350000},
			wantErrIs:  apperror.ErrInvalidArgument,
			wantErrMsg: "product name is required",
		},
		{
			name:       "negative_price",
			input:      product.CreateInput{Code: "YER1", Name: "Yerba 1kg", PriceCents: -1},
			wantErrIs:  apperror.ErrInvalidArgument,
			wantErrMsg: "product price must not be negative, got -1",
		},
		{
			name:  "duplicate_code",
			input: product.CreateInput{Code: "YER1", Name: "Yerba 1kg", PriceCents: 350000},
			createFunc: func(ctx context.Context, p *product.Product) error {
				return product.ErrDuplicateCode
			},
			wantErrIs:  apperror.ErrConflict,
			wantErrMsg: `product code "YER1" already exists`,
		},
		{
			name:  "successful_creation",
			input: product.CreateInput{Code: " YER1 ", Name: "Yerba 1kg", PriceCents: 350000},
			createFunc: func(ctx context.Context, p *product.Product) error {
				if p.Code != "YER1" || !p.Active {
					return errors.New("unexpected product")
				}
				p.ID = 1
				return nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockProductRepository{createFunc: tt.createFunc}
			svc := product.NewService(repo)

			got, err := svc.Create(context.Background(), tt.input)
			if tt.wantErrIs != nil {
				assert.ErrorIs(t, err, tt.wantErrIs)
				assert.EqualError(t, err, tt.wantErrMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(1), got.ID)
		})
	}
}

func TestProductService_Search(t *testing.T) {
	called := false
	repo := &mockProductRepository{
		searchFunc: func(ctx context.Context, text string) ([]product.Product, error) {
			called = true
			return []product.Product{{ID: 3, Code: "ACE900", Name: "Aceite"}}, nil
		},
	}
	svc := product.NewService(repo)

	got, err := svc.Search(context.Background(), "   ")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.False(t, called)

	got, err = svc.Search(context.Background(), "aceite")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.True(t, called)
}

func TestProductService_GetByCode_NotFound(t *testing.T) {
	repo := &mockProductRepository{
		getByCodeFunc: func(ctx context.Context, code string) (*product.Product, error) {
			return nil, product.ErrNotFound
		},
	}
	svc := product.NewService(repo)

	_, err := svc.GetByCode(context.Background(), "XX")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.EqualError(t, err, `product code "XX" not found`)
}

func TestProductService_Update(t *testing.T) {
	stored := &product.Product{ID: 9, Code: "AZU1", Name: "Azúcar", PriceCents: 120000, Active: true}
	var saved *product.Product
	repo := &mockProductRepository{
		getByIDFunc: func(ctx context.Context, id int64) (*product.Product, error) {
			if id != 9 {
				return nil, product.ErrNotFound
			}
			cp := *stored
			return &cp, nil
		},
		updateFunc: func(ctx context.Context, p *product.Product) error {
			saved = p
			return nil
		},
	}
	svc := product.NewService(repo)

	price := int64(130000)
	got, err := svc.Update(context.Background(), 9, product.UpdateInput{PriceCents: &price})
	require.NoError(t, err)
	assert.Equal(t, int64(130000), got.PriceCents)
	assert.Equal(t, "Azúcar", saved.Name)

	negative := int64(-5)
	_, err = svc.Update(context.Background(), 9, product.UpdateInput{PriceCents: &negative})
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)

	empty := " "
	_, err = svc.Update(context.Background(), 9, product.UpdateInput{Name: &empty})
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)

	_, err = svc.Update(context.Background(), 10, product.UpdateInput{})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestProductService_List(t *testing.T) {
	repo := &mockProductRepository{
		listFunc: func(ctx context.Context, filter product.ListFilter) ([]product.Product, error) {
			assert.Equal(t, product.DefaultListLimit, filter.Limit)
			assert.True(t, filter.ActiveOnly)
			return []product.Product{}, nil
		},
	}
	svc := product.NewService(repo)

	_, err := svc.List(context.Background(), product.ListFilter{ActiveOnly: true})
	require.NoError(t, err)

	_, err = svc.List(context.Background(), product.ListFilter{Limit: 500})
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
}

func TestProductService_SetActive(t *testing.T) {
	repo := &mockProductRepository{
		setActiveFunc: func(ctx context.Context, id int64, active bool) error {
			if id == 404 {
				return product.ErrNotFound
			}
			return nil
		},
	}
	svc := product.NewService(repo)

	assert.NoError(t, svc.SetActive(context.Background(), 1, false))
	assert.ErrorIs(t, svc.SetActive(context.Background(), 404, true), apperror.ErrNotFound)
}

package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/nortsur/pedidos/internal/product"
)

type CreateProductRequest struct {
	Codigo         string  `json:"codigo"`
	Nombre         string  `json:"nombre"`
	Categoria      *string `json:"categoria"`
	Presentacion   *string `json:"presentacion"`
	PrecioCentavos int64   `json:"precio_centavos"`
}

type UpdateProductRequest struct {
	Nombre         *string `json:"nombre"`
	Categoria      *string `json:"categoria"`
	Presentacion   *string `json:"presentacion"`
	PrecioCentavos *int64  `json:"precio_centavos"`
}

type ProductResponse struct {
	ID             int64     `json:"id"`
	Codigo         string    `json:"codigo"`
	Nombre         string    `json:"nombre"`
	Categoria      *string   `json:"categoria"`
	Presentacion   *string   `json:"presentacion"`
	PrecioCentavos int64     `json:"precio_centavos"`
	Activo         bool      `json:"activo"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func newProductResponse(p *product.Product) ProductResponse {
	return ProductResponse{
		ID:             p.ID,
		Codigo:         p.Code,
		Nombre:         p.Name,
		Categoria:      p.Category,
		Presentacion:   p.Presentation,
		PrecioCentavos: p.PriceCents,
		Activo:         p.Active,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

type ProductHandler struct {
	service  product.Service
	validate *validator.Validate
}

func NewProductHandler(service product.Service) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: newValidator(),
	}
}

func (h *ProductHandler) RegisterRoutes(router chi.Router) {
	router.Get("/productos", h.handleListProducts)
	router.Post("/productos", h.handleCreateProduct)
	router.Get("/productos/{id}", h.handleGetProduct)
	router.Patch("/productos/{id}", h.handleUpdateProduct)
	router.Patch("/productos/{id}/activar", h.handleSetActive(true))
	router.Patch("/productos/{id}/desactivar", h.handleSetActive(false))
}

func (h *ProductHandler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pageParams(w, r)
	if !ok {
		return
	}
	activeOnly, ok := queryBool(w, r, "solo_activos")
	if !ok {
		return
	}

	products, err := h.service.List(r.Context(), product.ListFilter{
		Query:      r.URL.Query().Get("q"),
		ActiveOnly: activeOnly,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to list products")
		return
	}

	resp := make([]ProductResponse, 0, len(products))
	for i := range products {
		resp = append(resp, newProductResponse(&products[i]))
	}
	respondWithJSON(w, http.StatusOK, resp)
}

func (h *ProductHandler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	created, err := h.service.Create(r.Context(), product.CreateInput{
		Code:         req.Codigo,
		Name:         req.Nombre,
		Category:     req.Categoria,
		Presentation: req.Presentacion,
		PriceCents:   req.PrecioCentavos,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to create product")
		return
	}
	respondWithJSON(w, http.StatusCreated, newProductResponse(created))
}

func (h *ProductHandler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	found, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get product")
		return
	}
	respondWithJSON(w, http.StatusOK, newProductResponse(found))
}

func (h *ProductHandler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateProductRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	updated, err := h.service.Update(r.Context(), id, product.UpdateInput{
		Name:         req.Nombre,
		Category:     req.Categoria,
		Presentation: req.Presentacion,
		PriceCents:   req.PrecioCentavos,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to update product")
		return
	}
	respondWithJSON(w, http.StatusOK, newProductResponse(updated))
}

func (h *ProductHandler) handleSetActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		if err := h.service.SetActive(r.Context(), id, active); err != nil {
			respondWithServiceError(w, err, "Failed to change product active flag")
			return
		}
		respondWithJSON(w, http.StatusOK, ActiveResponse{OK: true, ProductoID: &id, Activo: active})
	}
}

package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/nortsur/pedidos/internal/client"
)

type CreateClientRequest struct {
	Nombre              string           `json:"nombre"`
	Direccion           *string          `json:"direccion"`
	Barrio              *string          `json:"barrio"`
	Telefono            string           `json:"telefono"`
	Vendedor            *string          `json:"vendedor"`
	DescuentoPorcentaje *decimal.Decimal `json:"descuento_porcentaje"`
	Comentario          *string          `json:"comentario"`
	Coordenadas         *string          `json:"coordenadas"`
	EntregaInfo         *string          `json:"entrega_info"`
}

// UpdateClientRequest only touches the fields present in the body.
type UpdateClientRequest struct {
	NumeroCliente       *int64           `json:"numero_cliente"`
	Nombre              *string          `json:"nombre"`
	Direccion           *string          `json:"direccion"`
	Barrio              *string          `json:"barrio"`
	Telefono            *string          `json:"telefono"`
	Vendedor            *string          `json:"vendedor"`
	DescuentoPorcentaje *decimal.Decimal `json:"descuento_porcentaje"`
	Comentario          *string          `json:"comentario"`
	Coordenadas         *string          `json:"coordenadas"`
	DeudaCentavos       *int64           `json:"deuda_centavos" validate:"omitempty,gte=0"`
	EntregaInfo         *string          `json:"entrega_info"`
}

type ClientResponse struct {
	ID                  int64     `json:"id"`
	NumeroCliente       *int64    `json:"numero_cliente"`
	Nombre              string    `json:"nombre"`
	Direccion           *string   `json:"direccion"`
	Barrio              *string   `json:"barrio"`
	Telefono            *string   `json:"telefono"`
	Vendedor            *string   `json:"vendedor"`
	DescuentoPorcentaje *float64  `json:"descuento_porcentaje"`
	Comentario          *string   `json:"comentario"`
	Coordenadas         *string   `json:"coordenadas"`
	DeudaCentavos       int64     `json:"deuda_centavos"`
	EntregaInfo         *string   `json:"entrega_info"`
	Activo              bool      `json:"activo"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func percentOrNil(d decimal.NullDecimal) *float64 {
	if !d.Valid {
		return nil
	}
	f := d.Decimal.InexactFloat64()
	return &f
}

func newClientResponse(c *client.Client) ClientResponse {
	return ClientResponse{
		ID:                  c.ID,
		NumeroCliente:       c.Number,
		Nombre:              c.Name,
		Direccion:           c.Address,
		Barrio:              c.Neighborhood,
		Telefono:            c.Phone,
		Vendedor:            c.Salesperson,
		DescuentoPorcentaje: percentOrNil(c.DiscountPercent),
		Comentario:          c.Comment,
		Coordenadas:         c.Coordinates,
		DeudaCentavos:       c.DebtCents,
		EntregaInfo:         c.DeliveryInfo,
		Activo:              c.Active,
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
	}
}

type ClientHandler struct {
	service  client.Service
	validate *validator.Validate
}

func NewClientHandler(service client.Service) *ClientHandler {
	return &ClientHandler{
		service:  service,
		validate: newValidator(),
	}
}

func (h *ClientHandler) RegisterRoutes(router chi.Router) {
	router.Get("/clientes", h.handleListClients)
	router.Post("/clientes", h.handleCreateClient)
	router.Get("/clientes/by-phone/{telefono}", h.handleGetClientByPhone)
	router.Get("/clientes/{id}", h.handleGetClient)
	router.Patch("/clientes/{id}", h.handleUpdateClient)
	router.Patch("/clientes/{id}/activar", h.handleSetActive(true))
	router.Patch("/clientes/{id}/desactivar", h.handleSetActive(false))
}

func (h *ClientHandler) handleListClients(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pageParams(w, r)
	if !ok {
		return
	}

	clients, err := h.service.List(r.Context(), client.ListFilter{
		Query:  r.URL.Query().Get("q"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to list clients")
		return
	}

	resp := make([]ClientResponse, 0, len(clients))
	for i := range clients {
		resp = append(resp, newClientResponse(&clients[i]))
	}
	respondWithJSON(w, http.StatusOK, resp)
}

func (h *ClientHandler) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var req CreateClientRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	in := client.CreateInput{
		Name:         req.Nombre,
		Address:      req.Direccion,
		Neighborhood: req.Barrio,
		Phone:        req.Telefono,
		Salesperson:  req.Vendedor,
		Comment:      req.Comentario,
		Coordinates:  req.Coordenadas,
		DeliveryInfo: req.EntregaInfo,
	}
	if req.DescuentoPorcentaje != nil {
		in.DiscountPercent = decimal.NewNullDecimal(*req.DescuentoPorcentaje)
	}

	created, err := h.service.Create(r.Context(), in)
	if err != nil {
		respondWithServiceError(w, err, "Failed to create client")
		return
	}

	respondWithJSON(w, http.StatusCreated, newClientResponse(created))
}

func (h *ClientHandler) handleGetClientByPhone(w http.ResponseWriter, r *http.Request) {
	found, err := h.service.FindByPhone(r.Context(), chi.URLParam(r, "telefono"))
	if err != nil {
		respondWithServiceError(w, err, "Failed to find client by phone")
		return
	}
	respondWithJSON(w, http.StatusOK, newClientResponse(found))
}

func (h *ClientHandler) handleGetClient(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	found, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get client")
		return
	}
	respondWithJSON(w, http.StatusOK, newClientResponse(found))
}

func (h *ClientHandler) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateClientRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	updated, err := h.service.Update(r.Context(), id, client.UpdateInput{
		Number:          req.NumeroCliente,
		Name:            req.Nombre,
		Address:         req.Direccion,
		Neighborhood:    req.Barrio,
		Phone:           req.Telefono,
		Salesperson:     req.Vendedor,
		DiscountPercent: req.DescuentoPorcentaje,
		Comment:         req.Comentario,
		Coordinates:     req.Coordenadas,
		DebtCents:       req.DeudaCentavos,
		DeliveryInfo:    req.EntregaInfo,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to update client")
		return
	}
	respondWithJSON(w, http.StatusOK, newClientResponse(updated))
}

func (h *ClientHandler) handleSetActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		if err := h.service.SetActive(r.Context(), id, active); err != nil {
			respondWithServiceError(w, err, "Failed to change client active flag")
			return
		}
		respondWithJSON(w, http.StatusOK, ActiveResponse{OK: true, ClienteID: &id, Activo: active})
	}
}

package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/nortsur/pedidos/internal/order"
)

type CreateOrderItemRequest struct {
	ProductoID       int64   `json:"producto_id" validate:"required,gt=0"`
	Cantidad         int     `json:"cantidad"`
	DescripcionExtra *string `json:"descripcion_extra"`
}

type CreateOrderRequest struct {
	ClienteID     int64                    `json:"cliente_id" validate:"required,gt=0"`
	Canal         string                   `json:"canal"`
	Observaciones *string                  `json:"observaciones"`
	Items         []CreateOrderItemRequest `json:"items" validate:"dive"`
}

type UpdateOrderRequest struct {
	Observaciones *string `json:"observaciones"`
}

type ChangeStatusRequest struct {
	Estado string `json:"estado" validate:"required"`
}

type ReasonRequest struct {
	Motivo string `json:"motivo"`
}

type OrderItemResponse struct {
	ID                 int64   `json:"id"`
	ProductoID         int64   `json:"producto_id"`
	Cantidad           int     `json:"cantidad"`
	PrecioUnitarioCent int64   `json:"precio_unitario_cent"`
	SubtotalCent       int64   `json:"subtotal_cent"`
	DescripcionExtra   *string `json:"descripcion_extra"`
}

type OrderResponse struct {
	ID                 int64               `json:"id"`
	ClienteID          int64               `json:"cliente_id"`
	FechaCreacion      time.Time           `json:"fecha_creacion"`
	Canal              string              `json:"canal"`
	Estado             string              `json:"estado"`
	TotalBrutoCent     int64               `json:"total_bruto_cent"`
	DescuentoCliente   *float64            `json:"descuento_cliente"`
	TotalDescuentoCent int64               `json:"total_descuento_cent"`
	TotalNetoCent      int64               `json:"total_neto_cent"`
	Observaciones      *string             `json:"observaciones"`
	OrigenRef          *string             `json:"origen_ref"`
	Items              []OrderItemResponse `json:"items"`
}

type SummaryResponse struct {
	PedidoID int64  `json:"pedido_id"`
	Texto    string `json:"texto"`
}

// TransitionResponse acknowledges a lifecycle action.
type TransitionResponse struct {
	OK       bool          `json:"ok"`
	PedidoID int64         `json:"pedido_id"`
	Estado   string        `json:"estado"`
	Resumen  string        `json:"resumen"`
	Pedido   OrderResponse `json:"pedido"`
}

func newOrderResponse(o *order.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemResponse{
			ID:                 it.ID,
			ProductoID:         it.ProductID,
			Cantidad:           it.Quantity,
			PrecioUnitarioCent: it.UnitPriceCents,
			SubtotalCent:       it.SubtotalCents,
			DescripcionExtra:   it.ExtraDescription,
		})
	}
	return OrderResponse{
		ID:                 o.ID,
		ClienteID:          o.ClientID,
		FechaCreacion:      o.CreatedAt,
		Canal:              o.Channel,
		Estado:             o.Status.String(),
		TotalBrutoCent:     o.GrossCents,
		DescuentoCliente:   percentOrNil(o.DiscountPercent),
		TotalDescuentoCent: o.DiscountCents,
		TotalNetoCent:      o.NetCents,
		Observaciones:      o.Observations,
		OrigenRef:          o.OriginRef,
		Items:              items,
	}
}

func newOrderListResponse(orders []order.Order) []OrderResponse {
	resp := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, newOrderResponse(&orders[i]))
	}
	return resp
}

type OrderHandler struct {
	service  order.Service
	validate *validator.Validate
}

func NewOrderHandler(service order.Service) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: newValidator(),
	}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router) {
	router.Post("/pedidos", h.handleCreateOrder)
	router.Get("/pedidos", h.handleListOrders)
	router.Get("/pedidos/search", h.handleSearchOrders)
	router.Get("/pedidos/estados", h.handleStatuses)
	router.Get("/pedidos/transiciones", h.handleTransitions)
	router.Get("/pedidos/{id}", h.handleGetOrder)
	router.Patch("/pedidos/{id}", h.handleUpdateOrder)
	router.Get("/pedidos/{id}/resumen", h.handleSummary)
	router.Patch("/pedidos/{id}/estado", h.handleChangeStatus)
	router.Post("/pedidos/{id}/confirmar", h.handleAction(func(r *http.Request, id int64) (*order.Order, error) {
		return h.service.Confirm(r.Context(), id)
	}))
	router.Post("/pedidos/{id}/entregar", h.handleAction(func(r *http.Request, id int64) (*order.Order, error) {
		return h.service.Deliver(r.Context(), id)
	}))
	router.Post("/pedidos/{id}/cancelar", h.handleReasonAction(h.service.Cancel))
	router.Post("/pedidos/{id}/reabrir", h.handleReasonAction(h.service.Reopen))
}

func (h *OrderHandler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	lines := make([]order.LineInput, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, order.LineInput{
			ProductID:        it.ProductoID,
			Quantity:         it.Cantidad,
			ExtraDescription: it.DescripcionExtra,
		})
	}

	created, err := h.service.Create(r.Context(), order.CreateInput{
		ClientID:     req.ClienteID,
		Channel:      req.Canal,
		Observations: req.Observaciones,
		Lines:        lines,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to create order")
		return
	}
	respondWithJSON(w, http.StatusCreated, newOrderResponse(created))
}

func (h *OrderHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pageParams(w, r)
	if !ok {
		return
	}

	filter := order.ListFilter{
		Query:  r.URL.Query().Get("q"),
		Status: r.URL.Query().Get("estado"),
		Limit:  limit,
		Offset: offset,
	}
	if r.URL.Query().Has("cliente_id") {
		clientID, ok := queryInt(w, r, "cliente_id")
		if !ok {
			return
		}
		id := int64(clientID)
		filter.ClientID = &id
	}

	orders, err := h.service.List(r.Context(), filter)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list orders")
		return
	}
	respondWithJSON(w, http.StatusOK, newOrderListResponse(orders))
}

func (h *OrderHandler) handleSearchOrders(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pageParams(w, r)
	if !ok {
		return
	}

	orders, err := h.service.Search(r.Context(), r.URL.Query().Get("q"), limit, offset)
	if err != nil {
		respondWithServiceError(w, err, "Failed to search orders")
		return
	}
	respondWithJSON(w, http.StatusOK, newOrderListResponse(orders))
}

func (h *OrderHandler) handleStatuses(w http.ResponseWriter, r *http.Request) {
	statuses := h.service.Lifecycle().Statuses()
	resp := make([]string, len(statuses))
	for i, s := range statuses {
		resp[i] = s.String()
	}
	respondWithJSON(w, http.StatusOK, resp)
}

func (h *OrderHandler) handleTransitions(w http.ResponseWriter, r *http.Request) {
	table := h.service.Lifecycle().Table()
	resp := make(map[string][]string, len(table))
	for from, dests := range table {
		names := make([]string, len(dests))
		for i, d := range dests {
			names[i] = d.String()
		}
		resp[from.String()] = names
	}
	respondWithJSON(w, http.StatusOK, resp)
}

func (h *OrderHandler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	found, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get order")
		return
	}
	respondWithJSON(w, http.StatusOK, newOrderResponse(found))
}

func (h *OrderHandler) handleUpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateOrderRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	updated, err := h.service.UpdateObservations(r.Context(), id, req.Observaciones)
	if err != nil {
		respondWithServiceError(w, err, "Failed to update order")
		return
	}
	respondWithJSON(w, http.StatusOK, newOrderResponse(updated))
}

func (h *OrderHandler) handleSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	found, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get order")
		return
	}
	text, err := h.service.Summary(r.Context(), found)
	if err != nil {
		respondWithServiceError(w, err, "Failed to render order summary")
		return
	}
	respondWithJSON(w, http.StatusOK, SummaryResponse{PedidoID: found.ID, Texto: text})
}

func (h *OrderHandler) handleChangeStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var req ChangeStatusRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	updated, err := h.service.ChangeStatus(r.Context(), id, req.Estado)
	if err != nil {
		respondWithServiceError(w, err, "Failed to change order status")
		return
	}
	respondWithJSON(w, http.StatusOK, newOrderResponse(updated))
}

type actionFunc func(r *http.Request, id int64) (*order.Order, error)

func (h *OrderHandler) handleAction(action actionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		updated, err := action(r, id)
		if err != nil {
			respondWithServiceError(w, err, "Failed to change order status")
			return
		}
		h.respondTransition(w, r, updated)
	}
}

// handleReasonAction accepts an optional {"motivo": "..."} body.
func (h *OrderHandler) handleReasonAction(action func(ctx context.Context, id int64, reason string) (*order.Order, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		var req ReasonRequest
		if r.ContentLength != 0 && !decodeAndValidate(w, r, h.validate, &req) {
			return
		}

		updated, err := action(r.Context(), id, req.Motivo)
		if err != nil {
			respondWithServiceError(w, err, "Failed to change order status")
			return
		}
		h.respondTransition(w, r, updated)
	}
}

func (h *OrderHandler) respondTransition(w http.ResponseWriter, r *http.Request, o *order.Order) {
	text, err := h.service.Summary(r.Context(), o)
	if err != nil {
		respondWithServiceError(w, err, "Failed to render order summary")
		return
	}
	respondWithJSON(w, http.StatusOK, TransitionResponse{
		OK:       true,
		PedidoID: o.ID,
		Estado:   o.Status.String(),
		Resumen:  text,
		Pedido:   newOrderResponse(o),
	})
}

package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/nortsur/pedidos/internal/bot"
)

type BotItemRequest struct {
	Codigo   string `json:"codigo" validate:"required"`
	Cantidad int    `json:"cantidad"`
}

type BotOrderRequest struct {
	WaPhone       string           `json:"wa_phone" validate:"required"`
	Observaciones *string          `json:"observaciones"`
	MessageID     string           `json:"message_id"`
	Items         []BotItemRequest `json:"items" validate:"dive"`
}

type BotOrderResponse struct {
	OK               bool   `json:"ok"`
	PedidoID         int64  `json:"pedido_id"`
	ClienteID        int64  `json:"cliente_id"`
	MensajeRespuesta string `json:"mensaje_respuesta"`
	Resumen          string `json:"resumen"`
}

type BotProductResponse struct {
	Codigo         string  `json:"codigo"`
	Nombre         string  `json:"nombre"`
	Presentacion   *string `json:"presentacion"`
	PrecioCentavos int64   `json:"precio_centavos"`
}

type BotHandler struct {
	service  bot.Service
	validate *validator.Validate
}

func NewBotHandler(service bot.Service) *BotHandler {
	return &BotHandler{
		service:  service,
		validate: newValidator(),
	}
}

// RegisterRoutes mounts the bot endpoints relative to router, which is
// expected to be the /bot sub-router.
func (h *BotHandler) RegisterRoutes(router chi.Router) {
	router.Get("/productos/buscar", h.handleSearchProducts)
	router.Post("/pedidos/from-whatsapp", h.handleOrderFromWhatsApp)
}

func (h *BotHandler) handleSearchProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.SearchProducts(r.Context(), r.URL.Query().Get("texto"))
	if err != nil {
		respondWithServiceError(w, err, "Failed to search products")
		return
	}

	resp := make([]BotProductResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, BotProductResponse{
			Codigo:         p.Code,
			Nombre:         p.Name,
			Presentacion:   p.Presentation,
			PrecioCentavos: p.PriceCents,
		})
	}
	respondWithJSON(w, http.StatusOK, resp)
}

func (h *BotHandler) handleOrderFromWhatsApp(w http.ResponseWriter, r *http.Request) {
	var req BotOrderRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	items := make([]bot.ItemRequest, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, bot.ItemRequest{Code: it.Codigo, Quantity: it.Cantidad})
	}

	res, err := h.service.CreateOrder(r.Context(), bot.OrderRequest{
		Phone:        req.WaPhone,
		Observations: req.Observaciones,
		MessageID:    req.MessageID,
		Items:        items,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to create order from whatsapp")
		return
	}

	respondWithJSON(w, http.StatusOK, BotOrderResponse{
		OK:               true,
		PedidoID:         res.Order.ID,
		ClienteID:        res.Client.ID,
		MensajeRespuesta: res.Reply,
		Resumen:          res.Summary,
	})
}

package transport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/nortsur/pedidos/internal/bot"
	"github.com/nortsur/pedidos/internal/client"
	"github.com/nortsur/pedidos/internal/config"
	pedidosHttp "github.com/nortsur/pedidos/internal/handler/http"
	"github.com/nortsur/pedidos/internal/observability"
	"github.com/nortsur/pedidos/internal/order"
	"github.com/nortsur/pedidos/internal/product"
)

type Services struct {
	Clients  client.Service
	Products product.Service
	Orders   order.Service
	Bot      bot.Service
}

func NewRouter(cfg config.HTTPConfig, metrics *observability.Metrics, svc Services) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}).Handler)
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	pedidosHttp.NewClientHandler(svc.Clients).RegisterRoutes(r)
	pedidosHttp.NewProductHandler(svc.Products).RegisterRoutes(r)
	pedidosHttp.NewOrderHandler(svc.Orders).RegisterRoutes(r)

	r.Route("/bot", func(br chi.Router) {
		br.Use(httprate.Limit(cfg.BotRateLimit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		pedidosHttp.NewBotHandler(svc.Bot).RegisterRoutes(br)
	})

	return r
}

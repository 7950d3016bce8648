package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"vr-theatre-marketplace/internal/middleware"
)

// Handlers groups every HTTP handler of the service
type Handlers struct {
	Checkout *CheckoutHandler
	Orders   *OrderHandler
	Webhook  *WebhookHandler
	Tickets  *TicketHandler
	Health   *HealthHandler
}

// RouterConfig carries the cross-cutting settings of the router
type RouterConfig struct {
	Logger         *slog.Logger
	AllowedOrigins []string
	Identity       middleware.IdentityConfig
	RedeemLimiter  *middleware.RateLimiter
	RequestTimeout time.Duration
}

// NewRouter wires handlers and middleware into a chi router
func NewRouter(h Handlers, cfg RouterConfig) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer(cfg.Logger))
	r.Use(chimw.Timeout(cfg.RequestTimeout))

	r.NotFound(middleware.NotFound())
	r.MethodNotAllowed(middleware.MethodNotAllowed())

	r.Get("/health", h.Health.Health)

	// Signed server-to-server callback; no browser identity or CORS
	r.Post("/payment-webhook", h.Webhook.PaymentWebhook)

	r.Group(func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
		r.Use(middleware.Identity(cfg.Identity, cfg.Logger))

		r.Post("/purchase", h.Checkout.Purchase)
		r.Route("/purchase/cart", func(r chi.Router) {
			r.Post("/", h.Checkout.CheckoutCart)
			r.Post("/quote", h.Checkout.QuoteCart)
		})

		r.Route("/order-group/{id}", func(r chi.Router) {
			r.Get("/", h.Orders.GroupReceipt)
			r.Post("/pay", h.Checkout.PayGroup)
		})
		r.Route("/orders/{id}", func(r chi.Router) {
			r.Get("/", h.Orders.OrderReceipt)
			r.Post("/pay", h.Checkout.PayOrder)
		})

		r.Get("/tickets/{code}/qr", h.Tickets.QRCode)

		r.Group(func(r chi.Router) {
			if cfg.RedeemLimiter != nil {
				r.Use(cfg.RedeemLimiter.Middleware)
			}
			r.Post("/redeem", h.Tickets.Redeem)
		})
	})

	return r
}

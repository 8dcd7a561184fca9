package service

import (
	"storefront/internal/app"
	"storefront/internal/pkg/logger"

	"github.com/go-chi/chi/v5"
)

// Service is the storefront gateway: one shopper's App behind a JSON API.
type Service struct {
	handlers   *handlers
	app        *app.App
	runAddress string
	log        *logger.Logger
}

// NewService creates a Service for app listening on runAddress.
func NewService(app *app.App, runAddress string, l *logger.Logger) *Service {
	handlers := newHandlers(app, l)
	return &Service{handlers: handlers, app: app, runAddress: runAddress, log: l}
}

// NewRouter returns the gateway routes. Views go through the route guard;
// order and payment calls are gated like the orders view, profile edits
// like the profile view.
func (service *Service) NewRouter() chi.Router {
	h := service.handlers
	router := chi.NewRouter()
	router.Use(service.log.WithLogging())

	router.Route("/session", func(r chi.Router) {
		r.Get("/", h.sessionHandler)
		r.Post("/login", h.loginHandler)
		r.Post("/register", h.registerHandler)
		r.Post("/login-by-sms", h.smsLoginHandler)
		r.Post("/sms-code", h.smsCodeHandler)
		r.Post("/logout", h.logoutHandler)
		r.With(h.gate("/profile")).Put("/profile", h.updateProfileHandler)
	})

	router.Route("/cart", func(r chi.Router) {
		r.Get("/", h.cartHandler)
		r.Delete("/", h.clearCartHandler)
		r.Post("/items", h.addItemHandler)
		r.Put("/items/{id}/quantity", h.updateQuantityHandler)
		r.Put("/items/{id}/selected", h.selectItemHandler)
		r.Delete("/items/{id}", h.removeItemHandler)
		r.Post("/items/batch-delete", h.removeSelectedHandler)
		r.Put("/selection", h.selectAllHandler)
		r.Post("/refresh", h.refreshCartHandler)
		r.Post("/checkout-preview", h.checkoutPreviewHandler)
	})

	router.With(h.app.Guard.Middleware("/views", h.denyView)).Get("/views/*", h.viewHandler)

	router.Group(func(r chi.Router) {
		r.Use(h.gate("/orders"))
		r.Get("/orders", h.listOrdersHandler)
		r.Post("/orders", h.placeOrderHandler)
		r.Get("/orders/{no}", h.orderHandler)
		r.Post("/orders/{no}/cancel", h.cancelOrderHandler)
		r.Post("/payments", h.startPaymentHandler)
		r.Get("/payments/{no}/status", h.paymentStatusHandler)
	})
	return router
}

// Package fakeapi is an in-memory reference implementation of the storefront
// REST API. It follows the API's envelope conventions: every body carries a
// business code (0 on success) and a message, and requests without a login
// get code 401 with "未登录". It backs local development and end-to-end tests.
package fakeapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"storefront/internal/pkg/auth"
	"storefront/internal/pkg/logger"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Business codes.
const (
	codeOK           = 0
	codeBadRequest   = 400
	codeForbidden    = 403
	codeNotFound     = 404
	codeUserExists   = 1001
	codeBadLogin     = 1002
	codeBadSMSCode   = 1003
	codeNoSuchUser   = 1004
	codeOutOfStock   = 3001
	codeUnavailable  = 3002
	codeNoSuchLine   = 3003
	codeDuplicate    = 4001
	codeBadOrderStat = 4002
)

const (
	smsCodeTTL       = 5 * time.Minute
	tokenExpireHint  = 600
	freeShippingFrom = 99
	maxBodySize      = 1 << 20
)

// Server is the reference backend. It is safe for concurrent use.
type Server struct {
	issuer *auth.Issuer
	log    *logger.Logger

	mu sync.Mutex
	st *state
}

// New creates a Server with a seeded catalog. secret signs the issued tokens.
func New(secret string, l *logger.Logger) *Server {
	st := newState()
	st.seed()
	return &Server{issuer: auth.NewIssuer(secret, auth.TokenTTL), log: l.Named("fakeapi"), st: st}
}

// Router returns the API routes, to be mounted under the API base path.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(s.log.WithLogging())

	r.Post("/users/register", s.register)
	r.Post("/users/login", s.login)
	r.Post("/users/login-by-sms", s.loginBySMS)
	r.Post("/users/sms-code", s.sendSMSCode)

	r.Get("/product/products", s.listProducts)
	r.Get("/product/products/{id}", s.getProduct)
	r.Get("/product/skus/{id}", s.getSKU)
	r.Get("/product/search", s.searchProducts)
	r.Get("/product/categories", s.listCategories)
	r.Get("/product/brands", s.listBrands)

	r.Group(func(r chi.Router) {
		r.Use(s.issuer.Middleware(s.isRevoked))

		r.Get("/users/{id}", s.getUser)
		r.Put("/users/{id}", s.updateUser)
		r.Post("/users/logout", s.logout)

		r.Get("/cart", s.getCart)
		r.Get("/cart/summary", s.cartSummary)
		r.Post("/cart/items", s.addCartItem)
		r.Put("/cart/items/{id}/quantity", s.updateCartItem)
		r.Delete("/cart/items/{id}", s.removeCartItem)
		r.Post("/cart/items/batch-delete", s.batchDeleteCartItems)
		r.Delete("/cart", s.clearCart)
		r.Post("/cart/refresh", s.refreshCart)
		r.Post("/cart/checkout-preview", s.checkoutPreview)

		r.Get("/orders/token", s.orderToken)
		r.Post("/orders", s.createOrder)
		r.Get("/orders", s.listOrders)
		r.Get("/orders/{no}", s.getOrder)
		r.Post("/orders/{no}/cancel", s.cancelOrder)

		r.Get("/payments/token", s.paymentToken)
		r.Post("/payments", s.createPayment)
		r.Get("/payments/{no}/status", s.paymentStatus)
	})
	return r
}

func (s *Server) isRevoked(tokenID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.revoked[tokenID]
}

func (s *Server) nextID(prefix string) string {
	s.st.sequence++
	return prefix + time.Now().Format("20060102") + strconv.Itoa(100000+s.st.sequence)
}

// flexID accepts a JSON string or number.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

type body map[string]any

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ok writes a success envelope with extra top-level fields.
func ok(w http.ResponseWriter, message string, fields body) {
	out := body{"code": codeOK, "message": message}
	for k, v := range fields {
		out[k] = v
	}
	writeJSON(w, http.StatusOK, out)
}

// fail writes a business failure. The HTTP status is 200.
func fail(w http.ResponseWriter, code int, message string) {
	writeJSON(w, http.StatusOK, body{"code": code, "message": message})
}

// decode reads a JSON request body into v. An empty body leaves v unchanged.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, body{"code": codeBadRequest, "message": err.Error()})
		return false
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return true
	}
	if err := json.Unmarshal(raw, v); err != nil {
		writeJSON(w, http.StatusBadRequest, body{"code": codeBadRequest, "message": "请求参数错误"})
		return false
	}
	return true
}

func currentUser(r *http.Request) string {
	id, _ := auth.UserID(r.Context())
	return id
}

func queryInt(r *http.Request, key string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func (s *Server) logError(msg string, err error) {
	s.log.Error(msg, zap.Error(err))
}

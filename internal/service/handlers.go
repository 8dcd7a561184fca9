// Package service is the storefront gateway. It exposes one shopper's
// session, cart, views and checkout as a JSON API over chi, and drains the
// shopper's notifications and pending navigation into every response.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"storefront/internal/app"
	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/models"
	"storefront/internal/pkg/logger"
	"storefront/internal/pkg/notify"
	"storefront/internal/router"
	"storefront/internal/session"
	"storefront/internal/transport"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	requestTimeout = 10 * time.Second
	maxBodySize    = 1 << 20
)

var errEmptyBody = errors.New("service: empty request body")

// response is the body of every gateway answer.
type response struct {
	Data          any                   `json:"data"`
	Notifications []notify.Notification `json:"notifications"`
	Redirect      string                `json:"redirect,omitempty"`
	Error         string                `json:"error,omitempty"`
}

type handlers struct {
	app *app.App
	log *logger.Logger
}

func newHandlers(app *app.App, l *logger.Logger) *handlers {
	return &handlers{app: app, log: l.Named("gateway")}
}

func (handlers *handlers) respond(res http.ResponseWriter, status int, data any, errorInfo string) {
	body := response{
		Data:          data,
		Notifications: handlers.app.Notifier.Drain(),
		Redirect:      handlers.app.History.TakePending(),
		Error:         errorInfo,
	}
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(status)
	if err := json.NewEncoder(res).Encode(body); err != nil {
		handlers.log.Error("write response", zap.Error(err))
	}
}

func (handlers *handlers) ok(res http.ResponseWriter, data any) {
	handlers.respond(res, http.StatusOK, data, "")
}

// failure answers a failed store call. Notifications the transport queued
// for the failure travel in the same body.
func (handlers *handlers) failure(res http.ResponseWriter, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		handlers.log.Warn("request failed", zap.Error(err))
	}
	handlers.respond(res, status, nil, transport.MessageOf(err, err.Error()))
}

func statusOf(err error) int {
	var te *transport.Error
	switch {
	case errors.Is(err, checkout.ErrNoItems), errors.Is(err, checkout.ErrMissingOrderNo):
		return http.StatusBadRequest
	case !errors.As(err, &te):
		return http.StatusInternalServerError
	case te.AuthFailure():
		return http.StatusUnauthorized
	case te.Kind == transport.KindBusiness:
		return http.StatusUnprocessableEntity
	case te.Kind == transport.KindHTTP && (te.Status == http.StatusForbidden || te.Status == http.StatusNotFound):
		return te.Status
	default:
		return http.StatusBadGateway
	}
}

func writeErrorResponse(res http.ResponseWriter, errorInfo string, statusCode int) {
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(statusCode)
	json.NewEncoder(res).Encode(models.ErrorResponse{Errors: errorInfo})
}

// readJSON decodes the request body into v. It writes the 400 answer itself
// and reports false when the body is unreadable, or empty while required.
func readJSON(res http.ResponseWriter, req *http.Request, v any, required bool) bool {
	requestBody, err := io.ReadAll(io.LimitReader(req.Body, maxBodySize))
	if err != nil {
		writeErrorResponse(res, err.Error(), http.StatusBadRequest)
		return false
	}
	if len(strings.TrimSpace(string(requestBody))) == 0 {
		if required {
			writeErrorResponse(res, errEmptyBody.Error(), http.StatusBadRequest)
			return false
		}
		return true
	}
	if err := json.Unmarshal(requestBody, v); err != nil {
		writeErrorResponse(res, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func queryInt(req *http.Request, key string) int {
	n, _ := strconv.Atoi(req.URL.Query().Get(key))
	return n
}

// gate guards API calls as if the shopper navigated to location.
func (handlers *handlers) gate(location string) func(h http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		fn := func(res http.ResponseWriter, req *http.Request) {
			d, err := handlers.app.Guard.Check(req.Context(), location)
			if err != nil {
				handlers.log.Error("route guard", zap.Error(err))
			}
			if !d.Allow {
				handlers.denyView(res, req, d)
				return
			}
			h.ServeHTTP(res, req)
		}
		return http.HandlerFunc(fn)
	}
}

func (handlers *handlers) denyView(res http.ResponseWriter, _ *http.Request, d router.Decision) {
	handlers.app.History.Push(d.Redirect)
	handlers.respond(res, http.StatusUnauthorized, d, "")
}

// session

type sessionView struct {
	LoggedIn bool                `json:"logged_in"`
	User     *models.UserProfile `json:"user"`
}

type credentialsRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
	SMSCode  string `json:"sms_code"`
}

func (handlers *handlers) currentSession() sessionView {
	return sessionView{
		LoggedIn: handlers.app.Session.IsLoggedIn(),
		User:     handlers.app.Session.UserInfo(),
	}
}

func (handlers *handlers) sessionHandler(res http.ResponseWriter, _ *http.Request) {
	handlers.ok(res, handlers.currentSession())
}

// sessionResult answers an interactive session operation. A successful
// login loads the shopper's cart.
func (handlers *handlers) sessionResult(ctx context.Context, res http.ResponseWriter, result session.Result, login bool) {
	if !result.Success {
		handlers.respond(res, http.StatusUnprocessableEntity, result, "")
		return
	}
	if login {
		handlers.app.Cart.LoadCart(ctx)
	}
	handlers.ok(res, result)
}

func (handlers *handlers) loginHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	var in credentialsRequest
	if !readJSON(res, req, &in, true) {
		return
	}
	result := handlers.app.Session.Login(ctx, in.Phone, in.Password)
	handlers.sessionResult(ctx, res, result, true)
}

func (handlers *handlers) registerHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	var in credentialsRequest
	if !readJSON(res, req, &in, true) {
		return
	}
	result := handlers.app.Session.Register(ctx, in.Phone, in.Password, in.SMSCode)
	handlers.sessionResult(ctx, res, result, true)
}

func (handlers *handlers) smsLoginHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	var in credentialsRequest
	if !readJSON(res, req, &in, true) {
		return
	}
	result := handlers.app.Session.LoginBySMS(ctx, in.Phone, in.SMSCode)
	handlers.sessionResult(ctx, res, result, true)
}

func (handlers *handlers) smsCodeHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	var in credentialsRequest
	if !readJSON(res, req, &in, true) {
		return
	}
	result := handlers.app.Session.SendSMSCode(ctx, in.Phone)
	handlers.sessionResult(ctx, res, result, false)
}

func (handlers *handlers) logoutHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	handlers.app.Session.Logout(ctx)
	handlers.app.Cart.Reset()
	handlers.ok(res, handlers.currentSession())
}

func (handlers *handlers) updateProfileHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	var patch models.UpdateUserRequest
	if !readJSON(res, req, &patch, true) {
		return
	}
	result := handlers.app.Session.UpdateUserInfo(ctx, patch)
	if !result.Success {
		handlers.respond(res, http.StatusUnprocessableEntity, result, "")
		return
	}
	handlers.ok(res, handlers.currentSession())
}

// cart

type cartView struct {
	Items        []models.CartItem  `json:"items"`
	Summary      models.CartSummary `json:"summary"`
	TotalCount   int                `json:"total_count"`
	TotalPrice   string             `json:"total_price"`
	InvalidItems []models.CartItem  `json:"invalid_items"`
	SelectedIDs  []string           `json:"selected_ids"`
}

func (handlers *handlers) cartState() cartView {
	c := handlers.app.Cart
	selected := c.SelectedIDs()
	if selected == nil {
		selected = []string{}
	}
	return cartView{
		Items:        c.Items(),
		Summary:      c.Summary(),
		TotalCount:   c.TotalCount(),
		TotalPrice:   c.TotalPrice().StringFixed(2),
		InvalidItems: c.InvalidItems(),
		SelectedIDs:  selected,
	}
}

// cartResult answers a cart mutation with the reconciled cart.
func (handlers *handlers) cartResult(res http.ResponseWriter, err error) {
	if err != nil {
		handlers.failure(res, err)
		return
	}
	handlers.ok(res, handlers.cartState())
}

// cartLine finds the line named by the id URL parameter, answering 404 when
// the local cart has no such line.
func (handlers *handlers) cartLine(res http.ResponseWriter, req *http.Request) (models.CartItem, bool) {
	id := chi.URLParam(req, "id")
	for _, item := range handlers.app.Cart.Items() {
		if item.ID == id {
			return item, true
		}
	}
	writeErrorResponse(res, "cart line not found", http.StatusNotFound)
	return models.CartItem{}, false
}

func (handlers *handlers) cartHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	handlers.app.Cart.LoadCart(ctx)
	handlers.ok(res, handlers.cartState())
}

type addItemRequest struct {
	ProductID models.ID `json:"product_id"`
	SKUID     models.ID `json:"sku_id"`
	Quantity  int       `json:"quantity"`
}

func (handlers *handlers) addItemHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	var in addItemRequest
	if !readJSON(res, req, &in, true) {
		return
	}
	if in.ProductID == "" {
		writeErrorResponse(res, "missing product_id", http.StatusBadRequest)
		return
	}
	err := handlers.app.Cart.AddItem(ctx, cart.AddItemInput{
		ProductID: string(in.ProductID),
		SKUID:     string(in.SKUID),
		Quantity:  in.Quantity,
	})
	handlers.cartResult(res, err)
}

func (handlers *handlers) updateQuantityHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	var in models.UpdateQuantityRequest
	if !readJSON(res, req, &in, true) {
		return
	}
	item, ok := handlers.cartLine(res, req)
	if !ok {
		return
	}
	handlers.cartResult(res, handlers.app.Cart.UpdateQuantity(ctx, item, in.Quantity))
}

func (handlers *handlers) removeItemHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	item, ok := handlers.cartLine(res, req)
	if !ok {
		return
	}
	handlers.cartResult(res, handlers.app.Cart.RemoveItem(ctx, item))
}

type selectRequest struct {
	Selected bool `json:"selected"`
}

func (handlers *handlers) selectItemHandler(res http.ResponseWriter, req *http.Request) {
	var in selectRequest
	if !readJSON(res, req, &in, true) {
		return
	}
	if !handlers.app.Cart.SetSelected(chi.URLParam(req, "id"), in.Selected) {
		writeErrorResponse(res, "cart line not found", http.StatusNotFound)
		return
	}
	handlers.ok(res, handlers.cartState())
}

func (handlers *handlers) selectAllHandler(res http.ResponseWriter, req *http.Request) {
	var in selectRequest
	if !readJSON(res, req, &in, true) {
		return
	}
	handlers.app.Cart.SelectAll(in.Selected)
	handlers.ok(res, handlers.cartState())
}

func (handlers *handlers) removeSelectedHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	handlers.cartResult(res, handlers.app.Cart.RemoveSelectedItems(ctx))
}

func (handlers *handlers) clearCartHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	handlers.cartResult(res, handlers.app.Cart.ClearCart(ctx))
}

func (handlers *handlers) refreshCartHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	payload, err := handlers.app.Cart.RefreshCart(ctx)
	if err != nil {
		handlers.failure(res, err)
		return
	}
	view := handlers.cartState()
	handlers.ok(res, struct {
		Message string `json:"message,omitempty"`
		cartView
	}{Message: payload.Message, cartView: view})
}

func (handlers *handlers) checkoutPreviewHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	var in models.CheckoutPreviewRequest
	if !readJSON(res, req, &in, false) {
		return
	}
	if len(in.ItemIDs) == 0 {
		in.ItemIDs = handlers.app.Cart.SelectedIDs()
	}
	preview, err := handlers.app.Cart.PreviewCheckout(ctx, in)
	if err != nil {
		handlers.failure(res, err)
		return
	}
	handlers.ok(res, preview)
}

// views

type homeView struct {
	Categories []models.Category   `json:"categories"`
	Brands     []models.Brand      `json:"brands"`
	Products   *models.ProductPage `json:"products"`
}

type routeView struct {
	Match router.Match `json:"match"`
	Data  any          `json:"data,omitempty"`
}

func (handlers *handlers) viewHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	d, _ := router.DecisionFromContext(req.Context())
	location := "/" + chi.URLParam(req, "*")
	if req.URL.RawQuery != "" {
		location += "?" + req.URL.RawQuery
	}
	handlers.app.History.Push(location)
	handlers.app.History.TakePending()

	data, err := handlers.viewData(ctx, req, d.Match)
	if err != nil {
		handlers.failure(res, err)
		return
	}
	status := http.StatusOK
	if d.Match.Route.Name == router.NotFound {
		status = http.StatusNotFound
	}
	handlers.respond(res, status, routeView{Match: d.Match, Data: data}, "")
}

func (handlers *handlers) viewData(ctx context.Context, req *http.Request, m router.Match) (any, error) {
	products := handlers.app.API.Products
	switch m.Route.Name {
	case router.Home:
		var view homeView
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			view.Categories, err = products.ListCategories(gctx)
			return err
		})
		g.Go(func() (err error) {
			view.Brands, err = products.ListBrands(gctx)
			return err
		})
		g.Go(func() (err error) {
			view.Products, err = products.ListProducts(gctx, models.ProductQuery{})
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return view, nil
	case router.Products:
		q := models.ProductQuery{
			Keyword:    req.URL.Query().Get("keyword"),
			CategoryID: req.URL.Query().Get("category_id"),
			BrandID:    req.URL.Query().Get("brand_id"),
			Page:       queryInt(req, "page"),
			PageSize:   queryInt(req, "page_size"),
		}
		if q.Keyword != "" {
			return products.Search(ctx, q)
		}
		return products.ListProducts(ctx, q)
	case router.ProductDetail:
		return products.GetProduct(ctx, m.Params["id"])
	case router.Cart:
		handlers.app.Cart.LoadCart(ctx)
		return handlers.cartState(), nil
	case router.Profile:
		handlers.app.Session.FetchUserInfo(ctx)
		return handlers.currentSession(), nil
	case router.Orders:
		return handlers.app.Checkout.ListOrders(ctx, models.OrderQuery{
			Status:   queryInt(req, "status"),
			Page:     queryInt(req, "page"),
			PageSize: queryInt(req, "page_size"),
		})
	default:
		return nil, nil
	}
}

// orders and payments

func (handlers *handlers) listOrdersHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	page, err := handlers.app.Checkout.ListOrders(ctx, models.OrderQuery{
		Status:   queryInt(req, "status"),
		Page:     queryInt(req, "page"),
		PageSize: queryInt(req, "page_size"),
	})
	if err != nil {
		handlers.failure(res, err)
		return
	}
	handlers.ok(res, page)
}

// placeOrderHandler orders the given lines, or the selected cart lines when
// the body names none.
func (handlers *handlers) placeOrderHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	var in checkout.PlaceOrderInput
	if !readJSON(res, req, &in, false) {
		return
	}
	if len(in.Items) == 0 {
		var selected []models.CartItem
		for _, item := range handlers.app.Cart.Items() {
			if item.Selected {
				selected = append(selected, item)
			}
		}
		in.Items = checkout.OrderLines(selected)
	}
	order, err := handlers.app.Checkout.PlaceOrder(ctx, in)
	if err != nil {
		handlers.failure(res, err)
		return
	}
	handlers.respond(res, http.StatusCreated, order, "")
}

func (handlers *handlers) orderHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	order, err := handlers.app.Checkout.GetOrder(ctx, chi.URLParam(req, "no"))
	if err != nil {
		handlers.failure(res, err)
		return
	}
	handlers.ok(res, order)
}

func (handlers *handlers) cancelOrderHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	var in models.CancelOrderRequest
	if !readJSON(res, req, &in, false) {
		return
	}
	orderNo := chi.URLParam(req, "no")
	if err := handlers.app.Checkout.CancelOrder(ctx, orderNo, in.Reason); err != nil {
		handlers.failure(res, err)
		return
	}
	order, err := handlers.app.Checkout.GetOrder(ctx, orderNo)
	if err != nil {
		handlers.failure(res, err)
		return
	}
	handlers.ok(res, order)
}

func (handlers *handlers) startPaymentHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	var in models.CreatePaymentRequest
	if !readJSON(res, req, &in, true) {
		return
	}
	payment, err := handlers.app.Checkout.StartPayment(ctx, in.OrderNo, in.PayChannel, in.ReturnURL)
	if err != nil {
		handlers.failure(res, err)
		return
	}
	handlers.respond(res, http.StatusCreated, payment, "")
}

func (handlers *handlers) paymentStatusHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	status, err := handlers.app.Checkout.PaymentStatus(ctx, chi.URLParam(req, "no"))
	if err != nil {
		handlers.failure(res, err)
		return
	}
	handlers.ok(res, status)
}

// Package checkout places orders from cart lines and starts payments.
// Order and payment creation each use a one-shot token fetched right before
// the create call. Nothing is retried or polled.
package checkout

import (
	"context"
	"errors"

	"storefront/internal/models"
	"storefront/internal/pkg/logger"

	"go.uber.org/zap"
)

//go:generate mockgen -destination=mocks/mock_checkout.go -package=mocks storefront/internal/checkout OrderAPI,PaymentAPI

var (
	// ErrNoItems is returned when an order would have no lines.
	ErrNoItems = errors.New("checkout: no items to order")
	// ErrMissingOrderNo is returned when a payment names no order.
	ErrMissingOrderNo = errors.New("checkout: missing order number")
)

// OrderAPI is the order endpoint surface. *api.Orders implements it.
type OrderAPI interface {
	OrderToken(ctx context.Context) (*models.IssuedToken, error)
	CreateOrder(ctx context.Context, req models.CreateOrderRequest) (*models.Order, error)
	GetOrder(ctx context.Context, orderNo string) (*models.Order, error)
	ListOrders(ctx context.Context, q models.OrderQuery) (*models.OrderPage, error)
	CancelOrder(ctx context.Context, orderNo, reason string) error
}

// PaymentAPI is the payment endpoint surface. *api.Payments implements it.
type PaymentAPI interface {
	PaymentToken(ctx context.Context) (*models.IssuedToken, error)
	CreatePayment(ctx context.Context, req models.CreatePaymentRequest) (*models.Payment, error)
	PaymentStatus(ctx context.Context, paymentNo string) (*models.PaymentStatus, error)
}

// Cart is reloaded after an order consumes cart lines. *cart.Store implements it.
type Cart interface {
	LoadCart(ctx context.Context)
	RefreshSummary(ctx context.Context)
}

// PlaceOrderInput describes an order.
type PlaceOrderInput struct {
	Items       []models.OrderLine `json:"items"`
	AddressID   string             `json:"address_id"`
	CouponID    string             `json:"coupon_id"`
	BuyerRemark string             `json:"buyer_remark"`
}

// Service runs checkout flows.
type Service struct {
	orders   OrderAPI
	payments PaymentAPI
	cart     Cart
	log      *logger.Logger
}

// New creates a Service.
func New(orders OrderAPI, payments PaymentAPI, cart Cart, l *logger.Logger) *Service {
	return &Service{orders: orders, payments: payments, cart: cart, log: l.Named("checkout")}
}

// OrderLines turns valid cart lines into order lines.
func OrderLines(items []models.CartItem) []models.OrderLine {
	lines := make([]models.OrderLine, 0, len(items))
	for _, item := range items {
		if !item.Valid || item.Quantity <= 0 {
			continue
		}
		lines = append(lines, models.OrderLine{ProductID: item.ProductID, SKUID: item.SKUID, Quantity: item.Quantity})
	}
	return lines
}

// PlaceOrder creates an order and then reloads the cart, from which the
// server has removed the ordered lines.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, ErrNoItems
	}
	token, err := s.orders.OrderToken(ctx)
	if err != nil {
		return nil, err
	}
	order, err := s.orders.CreateOrder(ctx, models.CreateOrderRequest{
		Items:       in.Items,
		AddressID:   in.AddressID,
		CouponID:    in.CouponID,
		BuyerRemark: in.BuyerRemark,
		Token:       token.Token,
	})
	if err != nil {
		s.log.Info("create order failed", zap.Error(err))
		return nil, err
	}
	s.log.Info("order placed", zap.String("order_no", order.OrderNo))

	s.cart.LoadCart(ctx)
	s.cart.RefreshSummary(ctx)
	return order, nil
}

// GetOrder fetches one order.
func (s *Service) GetOrder(ctx context.Context, orderNo string) (*models.Order, error) {
	return s.orders.GetOrder(ctx, orderNo)
}

// ListOrders lists orders.
func (s *Service) ListOrders(ctx context.Context, q models.OrderQuery) (*models.OrderPage, error) {
	return s.orders.ListOrders(ctx, q)
}

// CancelOrder cancels a pending order.
func (s *Service) CancelOrder(ctx context.Context, orderNo, reason string) error {
	return s.orders.CancelOrder(ctx, orderNo, reason)
}

// StartPayment creates a payment for orderNo on channel.
func (s *Service) StartPayment(ctx context.Context, orderNo, channel, returnURL string) (*models.Payment, error) {
	if orderNo == "" {
		return nil, ErrMissingOrderNo
	}
	token, err := s.payments.PaymentToken(ctx)
	if err != nil {
		return nil, err
	}
	payment, err := s.payments.CreatePayment(ctx, models.CreatePaymentRequest{
		OrderNo:    orderNo,
		PayChannel: channel,
		ReturnURL:  returnURL,
		Token:      token.Token,
	})
	if err != nil {
		s.log.Info("create payment failed", zap.String("order_no", orderNo), zap.Error(err))
		return nil, err
	}
	return payment, nil
}

// PaymentStatus fetches the state of a payment.
func (s *Service) PaymentStatus(ctx context.Context, paymentNo string) (*models.PaymentStatus, error) {
	return s.payments.PaymentStatus(ctx, paymentNo)
}

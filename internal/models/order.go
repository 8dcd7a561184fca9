package models

import "github.com/shopspring/decimal"

// OrderLine is one product line of an order request.
type OrderLine struct {
	ProductID string `json:"product_id"`
	SKUID     string `json:"sku_id"`
	Quantity  int    `json:"quantity"`
}

// CreateOrderRequest is the body of POST /orders. Token is the idempotency
// token issued by GET /orders/token.
type CreateOrderRequest struct {
	Items       []OrderLine `json:"items"`
	AddressID   string      `json:"address_id"`
	CouponID    string      `json:"coupon_id"`
	BuyerRemark string      `json:"buyer_remark"`
	Token       string      `json:"token"`
}

// OrderItem is one line of a placed order.
type OrderItem struct {
	ProductID    string          `json:"product_id"`
	SKUID        string          `json:"sku_id"`
	ProductTitle string          `json:"product_title"`
	SKUName      string          `json:"sku_name,omitempty"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"`
}

// Order statuses.
const (
	OrderStatusAll       = 0
	OrderStatusPending   = 1
	OrderStatusPaid      = 2
	OrderStatusCancelled = 5
)

// Order is a placed order.
type Order struct {
	OrderNo      string          `json:"order_no"`
	Status       int             `json:"status"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	PayAmount    decimal.Decimal `json:"pay_amount"`
	AddressID    string          `json:"address_id,omitempty"`
	BuyerRemark  string          `json:"buyer_remark,omitempty"`
	CancelReason string          `json:"cancel_reason,omitempty"`
	Items        []OrderItem     `json:"items"`
}

// OrderQuery filters GET /orders. Zero values mean status 0 (all), page 1, page size 20.
type OrderQuery struct {
	Status   int
	Page     int
	PageSize int
}

// OrderPage is one page of orders.
type OrderPage struct {
	Orders   []Order `json:"orders"`
	Total    int     `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
}

// CancelOrderRequest is the body of POST /orders/{no}/cancel.
type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

// CreatePaymentRequest is the body of POST /payments.
type CreatePaymentRequest struct {
	OrderNo    string `json:"order_no"`
	PayChannel string `json:"pay_channel"`
	ReturnURL  string `json:"return_url"`
	Token      string `json:"token,omitempty"`
}

// Payment statuses.
const (
	PaymentStatusPending = 1
	PaymentStatusSuccess = 2
	PaymentStatusFailed  = 3
)

// Payment is a created payment and where to complete it.
type Payment struct {
	PaymentNo string          `json:"payment_no"`
	OrderNo   string          `json:"order_no"`
	Amount    decimal.Decimal `json:"amount"`
	Status    int             `json:"status"`
	PayURL    string          `json:"pay_url,omitempty"`
}

// PaymentStatus is the answer of GET /payments/{no}/status.
type PaymentStatus struct {
	PaymentNo string `json:"payment_no"`
	OrderNo   string `json:"order_no"`
	Status    int    `json:"status"`
	PaidAt    string `json:"paid_at,omitempty"`
}

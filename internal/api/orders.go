package api

import (
	"context"
	"net/url"
	"strconv"

	"storefront/internal/models"
)

// Orders wraps the /orders endpoints.
type Orders struct {
	c Caller
}

// OrderToken fetches a one-shot token for CreateOrder.
func (o *Orders) OrderToken(ctx context.Context) (*models.IssuedToken, error) {
	env, err := o.c.Get(ctx, "/orders/token", nil)
	if err != nil {
		return nil, err
	}
	return models.DecodeIssuedToken(env)
}

// CreateOrder places an order. req.Token must come from OrderToken.
func (o *Orders) CreateOrder(ctx context.Context, req models.CreateOrderRequest) (*models.Order, error) {
	env, err := o.c.Post(ctx, "/orders", req)
	if err != nil {
		return nil, err
	}
	var order models.Order
	if err := env.Decode(&order, "data"); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrder fetches one order.
func (o *Orders) GetOrder(ctx context.Context, orderNo string) (*models.Order, error) {
	env, err := o.c.Get(ctx, "/orders/"+segment(orderNo), nil)
	if err != nil {
		return nil, err
	}
	var order models.Order
	if err := env.Decode(&order, "data"); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrders lists the shopper's orders.
func (o *Orders) ListOrders(ctx context.Context, q models.OrderQuery) (*models.OrderPage, error) {
	values := url.Values{}
	values.Set("status", strconv.Itoa(q.Status))
	setPositive(values, "page", q.Page, 1)
	setPositive(values, "page_size", q.PageSize, 20)

	env, err := o.c.Get(ctx, "/orders", values)
	if err != nil {
		return nil, err
	}
	var page models.OrderPage
	if err := env.Decode(&page, "data"); err != nil {
		return nil, err
	}
	if page.Orders == nil {
		page.Orders = []models.Order{}
	}
	return &page, nil
}

// CancelOrder cancels a pending order.
func (o *Orders) CancelOrder(ctx context.Context, orderNo, reason string) error {
	_, err := o.c.Post(ctx, "/orders/"+segment(orderNo)+"/cancel", models.CancelOrderRequest{Reason: reason})
	return err
}

package api

import (
	"context"

	"storefront/internal/models"
)

// Payments wraps the /payments endpoints.
type Payments struct {
	c Caller
}

// PaymentToken fetches a one-shot token for CreatePayment.
func (p *Payments) PaymentToken(ctx context.Context) (*models.IssuedToken, error) {
	env, err := p.c.Get(ctx, "/payments/token", nil)
	if err != nil {
		return nil, err
	}
	return models.DecodeIssuedToken(env)
}

// CreatePayment starts paying an order.
func (p *Payments) CreatePayment(ctx context.Context, req models.CreatePaymentRequest) (*models.Payment, error) {
	env, err := p.c.Post(ctx, "/payments", req)
	if err != nil {
		return nil, err
	}
	var payment models.Payment
	if err := env.Decode(&payment, "data"); err != nil {
		return nil, err
	}
	return &payment, nil
}

// PaymentStatus fetches the state of a payment.
func (p *Payments) PaymentStatus(ctx context.Context, paymentNo string) (*models.PaymentStatus, error) {
	env, err := p.c.Get(ctx, "/payments/"+segment(paymentNo)+"/status", nil)
	if err != nil {
		return nil, err
	}
	var status models.PaymentStatus
	if err := env.Decode(&status, "data"); err != nil {
		return nil, err
	}
	return &status, nil
}

// Package api holds typed wrappers over the storefront REST API, one file per
// backend area. Each wrapper decodes its endpoint's payload into the explicit
// schemas of the models package; failures are the transport's *Error values.
package api

import (
	"context"
	"net/url"
	"strconv"

	"storefront/internal/models"
)

// Caller performs API calls. *transport.Client implements it.
type Caller interface {
	Get(ctx context.Context, path string, query url.Values) (*models.Envelope, error)
	Post(ctx context.Context, path string, body any) (*models.Envelope, error)
	Put(ctx context.Context, path string, body any) (*models.Envelope, error)
	Delete(ctx context.Context, path string) (*models.Envelope, error)
}

// API groups the wrappers of every backend area.
type API struct {
	Users    *Users
	Products *Products
	Cart     *Cart
	Orders   *Orders
	Payments *Payments
}

// New returns wrappers that call through c.
func New(c Caller) *API {
	return &API{
		Users:    &Users{c: c},
		Products: &Products{c: c},
		Cart:     &Cart{c: c},
		Orders:   &Orders{c: c},
		Payments: &Payments{c: c},
	}
}

func segment(id string) string {
	return url.PathEscape(id)
}

func setPositive(q url.Values, key string, v, def int) {
	if v <= 0 {
		v = def
	}
	q.Set(key, strconv.Itoa(v))
}

// Package app wires one shopper's storefront client together: the transport
// over the durable credential, the endpoint wrappers, the session and cart
// stores, checkout, and the route guard. A page reload is a new App over the
// same durable storage.
package app

import (
	"context"
	"time"

	"storefront/internal/api"
	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/pkg/i18n"
	"storefront/internal/pkg/logger"
	"storefront/internal/pkg/notify"
	"storefront/internal/router"
	"storefront/internal/session"
	"storefront/internal/storage"
	"storefront/internal/transport"

	"go.uber.org/zap"
)

// Options configures the remote API and the notification language.
type Options struct {
	BaseURL  string
	Timeout  time.Duration
	Language string
}

// App holds the stores of one page load.
type App struct {
	Notifier *notify.Queue
	History  *router.History
	Messages *i18n.Messages
	Client   *transport.Client
	API      *api.API
	Session  *session.Store
	Cart     *cart.Store
	Checkout *checkout.Service
	Guard    *router.Guard

	db   storage.Storage
	opts Options
	log  *logger.Logger
}

// NewApp creates an App at the home location.
func NewApp(ctx context.Context, db storage.Storage, opts Options, log *logger.Logger) *App {
	return newApp(ctx, db, opts, "/", log)
}

func newApp(ctx context.Context, db storage.Storage, opts Options, location string, log *logger.Logger) *App {
	msgs := i18n.New(opts.Language)
	queue := notify.NewQueue(log)
	history := router.NewHistory(location)

	client := transport.New(transport.Config{
		BaseURL:   opts.BaseURL,
		Timeout:   opts.Timeout,
		LoginPath: router.LoginPath,
		Messages:  msgs,
	}, transport.NewStoredCredentials(db, log), queue, history, log)
	endpoints := api.New(client)

	sess := session.New(ctx, endpoints.Users, db, msgs, log)
	client.OnAuthFailure(sess.ExpireCredential)

	carts := cart.New(endpoints.Cart, queue, msgs, log)

	// The cart used to live only in the browser; the server cart replaced it.
	if err := db.Remove(ctx, storage.KeyCart); err != nil {
		log.Warn("failed to purge legacy cart slot", zap.Error(err))
	}

	return &App{
		Notifier: queue,
		History:  history,
		Messages: msgs,
		Client:   client,
		API:      endpoints,
		Session:  sess,
		Cart:     carts,
		Checkout: checkout.New(endpoints.Orders, endpoints.Payments, carts, log),
		Guard:    router.NewGuard(router.NewTable(router.Routes), sess, db, log),
		db:       db,
		opts:     opts,
		log:      log,
	}
}

// Reload discards the in-memory stores and starts over from durable storage
// at the current location.
func (a *App) Reload(ctx context.Context) *App {
	return newApp(ctx, a.db, a.opts, a.History.Current(), a.log)
}

// Bootstrap runs the page-load fetches: a logged-in shopper gets their cart.
func (a *App) Bootstrap(ctx context.Context) {
	if a.Session.IsLoggedIn() {
		a.Cart.LoadCart(ctx)
	}
}

// Storage returns the durable storage the App runs over.
func (a *App) Storage() storage.Storage {
	return a.db
}

package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"storefront/internal/pkg/logger"
	"storefront/internal/storage"

	"go.uber.org/zap"
)

// LoginPath is the login view.
const LoginPath = "/login"

// Session is what the guard needs from the session store.
type Session interface {
	IsLoggedIn() bool
	SetToken(ctx context.Context, token string) error
}

// Decision is the outcome of one navigation attempt.
type Decision struct {
	Allow    bool   `json:"allow"`
	Redirect string `json:"redirect,omitempty"`
	Match    Match  `json:"match"`
}

// Guard decides whether a location may be entered.
type Guard struct {
	table   *Table
	session Session
	db      storage.Storage
	log     *logger.Logger
}

// NewGuard creates a Guard over table. db is read directly when the session
// has no credential yet.
func NewGuard(table *Table, session Session, db storage.Storage, l *logger.Logger) *Guard {
	return &Guard{table: table, session: session, db: db, log: l.Named("guard")}
}

// LoginRedirect is the login location that forwards back to location afterwards.
func LoginRedirect(location string) string {
	return LoginPath + "?" + url.Values{"redirect": {location}}.Encode()
}

// Check decides on location (path plus optional query). Ungated routes are
// always allowed. A gated route is allowed when the session holds a
// credential, or when the durable slot still has one; in that case the
// credential is copied into the session first. Otherwise the decision
// redirects to the login view.
func (g *Guard) Check(ctx context.Context, location string) (Decision, error) {
	m := g.table.Resolve(location)
	if !m.Route.RequiresAuth || g.session.IsLoggedIn() {
		return Decision{Allow: true, Match: m}, nil
	}

	deny := Decision{Redirect: LoginRedirect(location), Match: m}
	token, ok, err := g.db.Get(ctx, storage.KeyToken)
	if err != nil {
		return deny, fmt.Errorf("guard: read credential: %w", err)
	}
	if !ok || strings.TrimSpace(token) == "" {
		g.log.Debug("redirecting to login", zap.String("location", location))
		return deny, nil
	}

	if err := g.session.SetToken(ctx, token); err != nil {
		g.log.Warn("sync durable credential", zap.Error(err))
	}
	return Decision{Allow: true, Match: m}, nil
}

// Navigate checks location and moves h there, or to the login redirect.
func (g *Guard) Navigate(ctx context.Context, h *History, location string) (Decision, error) {
	d, err := g.Check(ctx, location)
	if d.Allow {
		h.Push(location)
	} else {
		h.Push(d.Redirect)
	}
	return d, err
}

type contextKey string

const decisionKey contextKey = "routeDecision"

// DecisionFromContext returns the decision the guard middleware stored for an allowed request.
func DecisionFromContext(ctx context.Context) (Decision, bool) {
	d, ok := ctx.Value(decisionKey).(Decision)
	return d, ok
}

// DenyFunc answers a request the guard refused.
type DenyFunc func(w http.ResponseWriter, r *http.Request, d Decision)

// Middleware guards HTTP requests whose path, after prefix, is a storefront
// location. Refused requests go to deny; a nil deny answers 302 to the
// login redirect, or a JSON body when the client accepts only JSON.
func (g *Guard) Middleware(prefix string, deny DenyFunc) func(h http.Handler) http.Handler {
	if deny == nil {
		deny = redirect
	}
	return func(h http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			location := strings.TrimPrefix(r.URL.Path, prefix)
			if !strings.HasPrefix(location, "/") {
				location = "/" + location
			}
			if r.URL.RawQuery != "" {
				location += "?" + r.URL.RawQuery
			}

			d, err := g.Check(r.Context(), location)
			if err != nil {
				g.log.Error("route guard", zap.Error(err))
			}
			if !d.Allow {
				deny(w, r, d)
				return
			}
			h.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), decisionKey, d)))
		}
		return http.HandlerFunc(fn)
	}
}

func redirect(w http.ResponseWriter, r *http.Request, d Decision) {
	if r.Header.Get("Accept") == "application/json" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"redirect": d.Redirect})
		return
	}
	http.Redirect(w, r, d.Redirect, http.StatusFound)
}

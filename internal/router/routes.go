// Package router holds the storefront route table and the navigation guard
// that keeps credential-gated views behind a login.
package router

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Route is one entry of the route table.
type Route struct {
	Name         string `json:"name"`
	Pattern      string `json:"pattern"`
	RequiresAuth bool   `json:"requires_auth"`
}

// Route names.
const (
	Home          = "Home"
	Products      = "Products"
	ProductDetail = "ProductDetail"
	Cart          = "Cart"
	Profile       = "Profile"
	Orders        = "Orders"
	Addresses     = "Addresses"
	Login         = "Login"
	Register      = "Register"
	NotFound      = "NotFound"
)

// Routes is the storefront route table. Paths that match none of them
// resolve to NotFound, which is never gated.
var Routes = []Route{
	{Name: Home, Pattern: "/"},
	{Name: Products, Pattern: "/product/products"},
	{Name: ProductDetail, Pattern: "/product/products/{id}"},
	{Name: Cart, Pattern: "/cart"},
	{Name: Profile, Pattern: "/profile", RequiresAuth: true},
	{Name: Orders, Pattern: "/orders", RequiresAuth: true},
	{Name: Addresses, Pattern: "/addresses", RequiresAuth: true},
	{Name: Login, Pattern: "/login"},
	{Name: Register, Pattern: "/register"},
}

var notFound = Route{Name: NotFound, Pattern: "/*"}

// Match is a resolved route plus its path parameters.
type Match struct {
	Route  Route             `json:"route"`
	Params map[string]string `json:"params,omitempty"`
}

// Table resolves locations against a route list using a chi tree.
type Table struct {
	mux       *chi.Mux
	byPattern map[string]Route
}

// NewTable builds a Table from routes.
func NewTable(routes []Route) *Table {
	t := &Table{mux: chi.NewRouter(), byPattern: make(map[string]Route, len(routes))}
	for _, r := range routes {
		t.mux.Get(strings.ToLower(r.Pattern), http.NotFound)
		t.byPattern[strings.ToLower(r.Pattern)] = r
	}
	return t
}

// Resolve matches the path of a location such as "/orders?status=1".
// Matching ignores case and a trailing slash.
func (t *Table) Resolve(location string) Match {
	path := location
	if u, err := url.Parse(location); err == nil {
		path = u.Path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	if path == "" {
		path = "/"
	}

	if m, ok := t.match(path); ok {
		return m
	}
	if m, ok := t.match(strings.ToLower(path)); ok {
		return m
	}
	return Match{Route: notFound}
}

func (t *Table) match(path string) (Match, bool) {
	rctx := chi.NewRouteContext()
	if !t.mux.Match(rctx, http.MethodGet, path) || len(rctx.RoutePatterns) == 0 {
		return Match{}, false
	}
	route, ok := t.byPattern[rctx.RoutePatterns[len(rctx.RoutePatterns)-1]]
	if !ok {
		return Match{}, false
	}
	m := Match{Route: route}
	if n := len(rctx.URLParams.Keys); n > 0 {
		m.Params = make(map[string]string, n)
		for i, key := range rctx.URLParams.Keys {
			m.Params[key] = rctx.URLParams.Values[i]
		}
	}
	return m, true
}

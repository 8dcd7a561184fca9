package fakeapi

import (
	"sort"
	"time"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
)

// Product statuses.
const (
	productDelisted = 0
	productOnSale   = 1
)

type user struct {
	profile      models.UserProfile
	passwordHash string
}

type cartLine struct {
	ID        string
	ProductID string
	SKUID     string
	Quantity  int
	// Price is the unit price when the line was added.
	Price   decimal.Decimal
	AddedAt time.Time
}

type smsCode struct {
	code    string
	expires time.Time
}

// state is the whole backend. Every handler holds Server.mu while using it.
type state struct {
	users   map[string]*user // by id
	byPhone map[string]string

	categories []models.Category
	brands     []models.Brand
	products   map[string]*models.Product
	skus       map[string]*models.SKU

	carts map[string][]*cartLine // by user id

	orders        map[string]*order
	orderTokens   map[string]string // token -> user id
	payments      map[string]*payment
	paymentTokens map[string]string

	smsCodes map[string]smsCode
	revoked  map[string]bool
	sequence int
}

type order struct {
	models.Order
	UserID    string
	CreatedAt time.Time
}

type payment struct {
	models.Payment
	UserID string
	PaidAt time.Time
}

func newState() *state {
	return &state{
		users:         map[string]*user{},
		byPhone:       map[string]string{},
		products:      map[string]*models.Product{},
		skus:          map[string]*models.SKU{},
		carts:         map[string][]*cartLine{},
		orders:        map[string]*order{},
		orderTokens:   map[string]string{},
		payments:      map[string]*payment{},
		paymentTokens: map[string]string{},
		smsCodes:      map[string]smsCode{},
		revoked:       map[string]bool{},
	}
}

// seed fills the catalog with a few products.
func (st *state) seed() {
	st.categories = []models.Category{
		{ID: "1", Name: "手机数码", Level: 1},
		{ID: "2", Name: "手机", ParentID: "1", Level: 2},
		{ID: "3", Name: "服饰", Level: 1},
	}
	st.brands = []models.Brand{
		{ID: "1", Name: "Xiaomi"},
		{ID: "2", Name: "Uniqlo"},
	}

	st.addProduct(models.Product{ID: "1", Title: "Redmi Note", Subtitle: "5G", MainImage: "/img/redmi.png",
		CategoryID: "2", BrandID: "1", Status: productOnSale},
		models.SKU{ID: "101", Name: "8+128G 黑色", Price: decimal.RequireFromString("1299.00"), Stock: 50},
		models.SKU{ID: "102", Name: "8+256G 白色", Price: decimal.RequireFromString("1499.00"), Stock: 5},
	)
	st.addProduct(models.Product{ID: "2", Title: "Xiaomi Band", MainImage: "/img/band.png",
		CategoryID: "1", BrandID: "1", Status: productOnSale},
		models.SKU{ID: "201", Name: "标准版", Price: decimal.RequireFromString("249.00"), Stock: 100},
	)
	st.addProduct(models.Product{ID: "3", Title: "Supima Cotton T-Shirt", MainImage: "/img/tee.png",
		CategoryID: "3", BrandID: "2", Status: productOnSale},
		models.SKU{ID: "301", Name: "M 白色", Price: decimal.RequireFromString("79.00"), Stock: 20},
		models.SKU{ID: "302", Name: "L 黑色", Price: decimal.RequireFromString("79.00"), Stock: 0},
	)
}

func (st *state) addProduct(p models.Product, skus ...models.SKU) {
	product := p
	product.SKUs = nil
	for _, sku := range skus {
		s := sku
		s.ProductID = p.ID
		s.Status = productOnSale
		st.skus[s.ID] = &s
		if product.Price.IsZero() || s.Price.LessThan(product.Price) {
			product.Price = s.Price
		}
	}
	st.products[p.ID] = &product
}

// productView returns a copy of a product with its current SKUs.
func (st *state) productView(id string) (models.Product, bool) {
	p, ok := st.products[id]
	if !ok {
		return models.Product{}, false
	}
	view := *p
	view.SKUs = []models.SKU{}
	for _, sku := range st.skus {
		if sku.ProductID == id {
			view.SKUs = append(view.SKUs, *sku)
		}
	}
	sort.Slice(view.SKUs, func(i, j int) bool { return view.SKUs[i].ID < view.SKUs[j].ID })
	return view, true
}

func (st *state) sortedProducts() []models.Product {
	out := make([]models.Product, 0, len(st.products))
	for id := range st.products {
		view, _ := st.productView(id)
		out = append(out, view)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

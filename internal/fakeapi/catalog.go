package fakeapi

import (
	"net/http"
	"strings"

	"storefront/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// SetStock changes the stock of a SKU.
func (s *Server) SetStock(skuID string, stock int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sku, found := s.st.skus[skuID]
	if found {
		sku.Stock = stock
	}
	return found
}

// SetPrice changes the price of a SKU.
func (s *Server) SetPrice(skuID string, price decimal.Decimal) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sku, found := s.st.skus[skuID]
	if found {
		sku.Price = price
	}
	return found
}

// Delist takes a product off sale.
func (s *Server) Delist(productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, found := s.st.products[productID]
	if found {
		p.Status = productDelisted
	}
	return found
}

func (s *Server) productPage(w http.ResponseWriter, r *http.Request, match func(models.Product) bool) {
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 20)

	s.mu.Lock()
	all := s.st.sortedProducts()
	s.mu.Unlock()

	matched := []models.Product{}
	for _, p := range all {
		if p.Status == productOnSale && match(p) {
			matched = append(matched, p)
		}
	}
	start := (page - 1) * pageSize
	if start > len(matched) {
		start = len(matched)
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	ok(w, "success", body{"data": models.ProductPage{
		Products: matched[start:end],
		Total:    len(matched),
		Page:     page,
		PageSize: pageSize,
	}})
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category_id")
	brand := r.URL.Query().Get("brand_id")
	s.productPage(w, r, func(p models.Product) bool {
		return (category == "" || p.CategoryID == category) && (brand == "" || p.BrandID == brand)
	})
}

func (s *Server) searchProducts(w http.ResponseWriter, r *http.Request) {
	keyword := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("keyword")))
	s.productPage(w, r, func(p models.Product) bool {
		return keyword == "" ||
			strings.Contains(strings.ToLower(p.Title), keyword) ||
			strings.Contains(strings.ToLower(p.Subtitle), keyword)
	})
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	p, found := s.st.productView(chi.URLParam(r, "id"))
	s.mu.Unlock()
	if !found {
		fail(w, codeNotFound, "商品不存在")
		return
	}
	ok(w, "success", body{"data": p})
}

func (s *Server) getSKU(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	sku, found := s.st.skus[chi.URLParam(r, "id")]
	var view models.SKU
	if found {
		view = *sku
	}
	s.mu.Unlock()
	if !found {
		fail(w, codeNotFound, "SKU不存在")
		return
	}
	ok(w, "success", body{"data": view})
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	categories := append([]models.Category{}, s.st.categories...)
	s.mu.Unlock()
	ok(w, "success", body{"data": categories})
}

func (s *Server) listBrands(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	brands := append([]models.Brand{}, s.st.brands...)
	s.mu.Unlock()
	ok(w, "success", body{"data": brands})
}

package fakeapi

import (
	"fmt"
	"net/http"
	"time"

	"storefront/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	reasonDelisted   = "商品已下架"
	reasonNoSKU      = "商品规格不存在"
	reasonOutOfStock = "库存不足"
)

var (
	shippingFee     = decimal.NewFromInt(10)
	freeShipping    = decimal.NewFromInt(freeShippingFrom)
	welcomeCoupon   = "NEW10"
	welcomeDiscount = decimal.NewFromInt(10)
)

type lineView struct {
	ID            string          `json:"id"`
	ProductID     string          `json:"product_id"`
	SKUID         string          `json:"sku_id"`
	ProductTitle  string          `json:"product_title"`
	ProductImage  string          `json:"product_image"`
	SKUName       string          `json:"sku_name"`
	Price         decimal.Decimal `json:"price"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	Quantity      int             `json:"quantity"`
	Stock         int             `json:"stock"`
	IsValid       bool            `json:"is_valid"`
	InvalidReason string          `json:"invalid_reason,omitempty"`
}

type summaryView struct {
	TotalItems      int             `json:"total_items"`
	TotalQuantity   int             `json:"total_quantity"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	HasInvalidItems bool            `json:"has_invalid_items"`
}

// view renders a line against the current catalog. Callers hold s.mu.
func (st *state) view(l *cartLine) lineView {
	v := lineView{
		ID:        l.ID,
		ProductID: l.ProductID,
		SKUID:     l.SKUID,
		Price:     l.Price,
		Quantity:  l.Quantity,
		IsValid:   true,
	}
	p, productFound := st.products[l.ProductID]
	sku, skuFound := st.skus[l.SKUID]
	if productFound {
		v.ProductTitle = p.Title
		v.ProductImage = p.MainImage
	}
	v.CurrentPrice = l.Price
	if skuFound {
		v.SKUName = sku.Name
		v.CurrentPrice = sku.Price
		v.Stock = sku.Stock
	}
	switch {
	case !productFound || p.Status != productOnSale:
		v.IsValid, v.InvalidReason = false, reasonDelisted
	case !skuFound || sku.ProductID != l.ProductID:
		v.IsValid, v.InvalidReason = false, reasonNoSKU
	case sku.Stock <= 0 || l.Quantity > sku.Stock:
		v.IsValid, v.InvalidReason = false, reasonOutOfStock
	}
	return v
}

func (st *state) cartViews(userID string) []lineView {
	lines := st.carts[userID]
	out := make([]lineView, 0, len(lines))
	for _, l := range lines {
		out = append(out, st.view(l))
	}
	return out
}

func summarize(views []lineView) summaryView {
	var s summaryView
	for _, v := range views {
		if !v.IsValid {
			s.HasInvalidItems = true
			continue
		}
		s.TotalItems++
		s.TotalQuantity += v.Quantity
		s.TotalPrice = s.TotalPrice.Add(v.CurrentPrice.Mul(decimal.NewFromInt(int64(v.Quantity))))
	}
	return s
}

func (st *state) findLine(userID, lineID string) (*cartLine, int) {
	for i, l := range st.carts[userID] {
		if l.ID == lineID {
			return l, i
		}
	}
	return nil, -1
}

func (st *state) removeLines(userID string, drop func(*cartLine) bool) int {
	kept := st.carts[userID][:0]
	removed := 0
	for _, l := range st.carts[userID] {
		if drop(l) {
			removed++
			continue
		}
		kept = append(kept, l)
	}
	st.carts[userID] = kept
	return removed
}

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	views := s.st.cartViews(currentUser(r))
	s.mu.Unlock()
	ok(w, "success", body{"items": views, "summary": summarize(views)})
}

func (s *Server) cartSummary(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	views := s.st.cartViews(currentUser(r))
	s.mu.Unlock()
	ok(w, "success", body{"data": summarize(views)})
}

type addItemRequest struct {
	ProductID flexID `json:"product_id"`
	SKUID     flexID `json:"sku_id"`
	Quantity  int    `json:"quantity"`
}

func (s *Server) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Quantity <= 0 {
		fail(w, codeBadRequest, "数量必须大于0")
		return
	}
	userID := currentUser(r)
	productID, skuID := string(req.ProductID), string(req.SKUID)

	s.mu.Lock()
	defer s.mu.Unlock()
	p, found := s.st.products[productID]
	if !found || p.Status != productOnSale {
		fail(w, codeUnavailable, "商品不存在或已下架")
		return
	}
	sku, found := s.st.skus[skuID]
	if !found || sku.ProductID != productID {
		fail(w, codeUnavailable, "商品规格不存在")
		return
	}

	for _, l := range s.st.carts[userID] {
		if l.ProductID == productID && l.SKUID == skuID {
			if l.Quantity+req.Quantity > sku.Stock {
				fail(w, codeOutOfStock, reasonOutOfStock)
				return
			}
			l.Quantity += req.Quantity
			ok(w, "添加成功", nil)
			return
		}
	}
	if req.Quantity > sku.Stock {
		fail(w, codeOutOfStock, reasonOutOfStock)
		return
	}
	s.st.carts[userID] = append(s.st.carts[userID], &cartLine{
		ID:        uuid.NewString(),
		ProductID: productID,
		SKUID:     skuID,
		Quantity:  req.Quantity,
		Price:     sku.Price,
		AddedAt:   time.Now(),
	})
	ok(w, "添加成功", nil)
}

func (s *Server) updateCartItem(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateQuantityRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Quantity <= 0 {
		fail(w, codeBadRequest, "数量必须大于0")
		return
	}
	userID := currentUser(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	l, _ := s.st.findLine(userID, chi.URLParam(r, "id"))
	if l == nil {
		fail(w, codeNoSuchLine, "购物车商品不存在")
		return
	}
	if sku, found := s.st.skus[l.SKUID]; found && req.Quantity > sku.Stock {
		fail(w, codeOutOfStock, reasonOutOfStock)
		return
	}
	l.Quantity = req.Quantity
	ok(w, "更新成功", nil)
}

func (s *Server) removeCartItem(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r)
	lineID := chi.URLParam(r, "id")

	s.mu.Lock()
	removed := s.st.removeLines(userID, func(l *cartLine) bool { return l.ID == lineID })
	s.mu.Unlock()
	if removed == 0 {
		fail(w, codeNoSuchLine, "购物车商品不存在")
		return
	}
	ok(w, "删除成功", nil)
}

func (s *Server) batchDeleteCartItems(w http.ResponseWriter, r *http.Request) {
	var req models.BatchDeleteRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.ItemIDs) == 0 {
		fail(w, codeBadRequest, "请选择要删除的商品")
		return
	}
	ids := make(map[string]bool, len(req.ItemIDs))
	for _, id := range req.ItemIDs {
		ids[id] = true
	}

	s.mu.Lock()
	removed := s.st.removeLines(currentUser(r), func(l *cartLine) bool { return ids[l.ID] })
	s.mu.Unlock()
	ok(w, fmt.Sprintf("已删除%d件商品", removed), nil)
}

func (s *Server) clearCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	delete(s.st.carts, currentUser(r))
	s.mu.Unlock()
	ok(w, "购物车已清空", nil)
}

// refreshCart re-prices every line from the catalog and reports how many
// lines are no longer purchasable.
func (s *Server) refreshCart(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r)

	s.mu.Lock()
	repriced := 0
	for _, l := range s.st.carts[userID] {
		if sku, found := s.st.skus[l.SKUID]; found && !sku.Price.Equal(l.Price) {
			l.Price = sku.Price
			repriced++
		}
	}
	views := s.st.cartViews(userID)
	s.mu.Unlock()

	invalid := 0
	for _, v := range views {
		if !v.IsValid {
			invalid++
		}
	}
	message := "购物车已刷新"
	if invalid > 0 || repriced > 0 {
		message = fmt.Sprintf("购物车已刷新，%d件商品价格变动，%d件商品失效", repriced, invalid)
	}
	ok(w, message, body{"items": views, "summary": summarize(views)})
}

func (s *Server) checkoutPreview(w http.ResponseWriter, r *http.Request) {
	var req models.CheckoutPreviewRequest
	if !decode(w, r, &req) {
		return
	}
	wanted := make(map[string]bool, len(req.ItemIDs))
	for _, id := range req.ItemIDs {
		wanted[id] = true
	}

	s.mu.Lock()
	views := s.st.cartViews(currentUser(r))
	s.mu.Unlock()

	items := []lineView{}
	total := decimal.Decimal{}
	for _, v := range views {
		if !v.IsValid || (len(wanted) > 0 && !wanted[v.ID]) {
			continue
		}
		items = append(items, v)
		total = total.Add(v.CurrentPrice.Mul(decimal.NewFromInt(int64(v.Quantity))))
	}
	if len(items) == 0 {
		fail(w, codeBadRequest, "没有可结算的商品")
		return
	}

	shipping := shippingFee
	if total.GreaterThanOrEqual(freeShipping) {
		shipping = decimal.Decimal{}
	}
	coupon := decimal.Decimal{}
	if req.CouponID == welcomeCoupon && total.GreaterThan(welcomeDiscount) {
		coupon = welcomeDiscount
	}
	ok(w, "success", body{"data": body{
		"items":              items,
		"product_total":      total,
		"promotion_discount": decimal.Decimal{},
		"coupon_discount":    coupon,
		"shipping_fee":       shipping,
		"final_amount":       total.Sub(coupon).Add(shipping),
	}})
}

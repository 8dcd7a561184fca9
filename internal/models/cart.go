package models

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// CartItem is one (product, sku) line held by the server-side cart.
// Selected is client-only state used for batch operations and is never sent
// to the server except as part of the gathered id list of a batch delete.
type CartItem struct {
	ID            string          `json:"id"`
	ProductID     string          `json:"product_id"`
	SKUID         string          `json:"sku_id"`
	Title         string          `json:"product_title"`
	Image         string          `json:"product_image"`
	SKUName       string          `json:"sku_name"`
	Price         decimal.Decimal `json:"price"`
	Quantity      int             `json:"quantity"`
	Stock         int             `json:"stock"`
	Valid         bool            `json:"is_valid"`
	InvalidReason string          `json:"invalid_reason,omitempty"`
	Selected      bool            `json:"selected"`
}

// Subtotal is price × quantity.
func (i CartItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CartSummary is the cart aggregate. The server figure is authoritative; Summarize
// computes the same figure locally.
type CartSummary struct {
	TotalItems      int             `json:"total_items"`
	TotalQuantity   int             `json:"total_quantity"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	HasInvalidItems bool            `json:"has_invalid_items"`
}

// CartPayload is the body of the cart list and cart refresh endpoints.
type CartPayload struct {
	Message string       `json:"message,omitempty"`
	Items   []CartItem   `json:"items"`
	Summary *CartSummary `json:"summary,omitempty"`
}

// Field precedence for cart lines. The first present, non-null field wins.
var (
	cartItemIDFields       = []string{"id"}
	cartProductIDFields    = []string{"product_id", "productId"}
	cartSKUIDFields        = []string{"sku_id", "skuId"}
	cartTitleFields        = []string{"product_title", "productTitle", "title"}
	cartImageFields        = []string{"product_image", "productImage", "image"}
	cartSKUNameFields      = []string{"sku_name", "skuName"}
	cartPriceFields        = []string{"current_price", "currentPrice", "price"}
	cartQuantityFields     = []string{"quantity"}
	cartStockFields        = []string{"stock"}
	cartValidFields        = []string{"is_valid", "isValid"}
	cartInvalidReasonField = []string{"invalid_reason", "invalidReason"}
)

// NormalizeCartItem builds a CartItem from one server line object, reading
// each field by the precedence above. Prices and counts may be numbers or
// strings. A line without a validity flag is valid. Selected starts equal to
// Valid, and quantities and stock never go below zero.
func NormalizeCartItem(raw json.RawMessage) (CartItem, error) {
	o, err := decodeObject(raw)
	if err != nil {
		return CartItem{}, fmt.Errorf("cart item: %w", err)
	}

	item := CartItem{
		ID:            o.str(cartItemIDFields...),
		ProductID:     o.str(cartProductIDFields...),
		SKUID:         o.str(cartSKUIDFields...),
		Title:         o.str(cartTitleFields...),
		Image:         o.str(cartImageFields...),
		SKUName:       o.str(cartSKUNameFields...),
		InvalidReason: o.str(cartInvalidReasonField...),
		Valid:         true,
	}
	if price, ok := o.dec(cartPriceFields...); ok {
		item.Price = price
	}
	if q, ok := o.integer(cartQuantityFields...); ok && q > 0 {
		item.Quantity = q
	}
	if s, ok := o.integer(cartStockFields...); ok && s > 0 {
		item.Stock = s
	}
	if v, ok := o.boolean(cartValidFields...); ok {
		item.Valid = v
	}
	item.Selected = item.Valid
	return item, nil
}

// NormalizeCartItems normalizes a JSON array of cart lines.
func NormalizeCartItems(raw json.RawMessage) ([]CartItem, error) {
	var lines []json.RawMessage
	if err := json.Unmarshal(raw, &lines); err != nil {
		return nil, fmt.Errorf("cart items: %w", err)
	}
	items := make([]CartItem, 0, len(lines))
	for _, line := range lines {
		item, err := NormalizeCartItem(line)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// NormalizeCartSummary builds a CartSummary from snake_case or camelCase fields.
func NormalizeCartSummary(raw json.RawMessage) (CartSummary, error) {
	o, err := decodeObject(raw)
	if err != nil {
		return CartSummary{}, fmt.Errorf("cart summary: %w", err)
	}
	var s CartSummary
	s.TotalItems, _ = o.integer("total_items", "totalItems")
	s.TotalQuantity, _ = o.integer("total_quantity", "totalQuantity")
	s.TotalPrice, _ = o.dec("total_price", "totalPrice")
	s.HasInvalidItems, _ = o.boolean("has_invalid_items", "hasInvalidItems")
	return s, nil
}

// DecodeCartPayload reads the items and, when present, the summary of a cart
// list or refresh envelope.
func DecodeCartPayload(env *Envelope) (*CartPayload, error) {
	payload := &CartPayload{Message: env.Message, Items: []CartItem{}}

	if raw, ok := env.Raw("items"); ok {
		items, err := NormalizeCartItems(raw)
		if err != nil {
			return nil, err
		}
		payload.Items = items
	}
	if raw, ok := env.Raw("summary"); ok {
		summary, err := NormalizeCartSummary(raw)
		if err != nil {
			return nil, err
		}
		payload.Summary = &summary
	}
	return payload, nil
}

// Summarize computes the aggregate the server would return for items:
// valid lines count toward totals; any invalid line sets HasInvalidItems.
func Summarize(items []CartItem) CartSummary {
	var s CartSummary
	for _, item := range items {
		if !item.Valid {
			s.HasInvalidItems = true
			continue
		}
		s.TotalItems++
		s.TotalQuantity += item.Quantity
		s.TotalPrice = s.TotalPrice.Add(item.Subtotal())
	}
	return s
}

// AddItemRequest is the body of POST /cart/items. Identities are sent as strings.
type AddItemRequest struct {
	ProductID string `json:"product_id"`
	SKUID     string `json:"sku_id"`
	Quantity  int    `json:"quantity"`
}

// UpdateQuantityRequest is the body of PUT /cart/items/{id}/quantity.
type UpdateQuantityRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// BatchDeleteRequest is the body of POST /cart/items/batch-delete.
type BatchDeleteRequest struct {
	ItemIDs []string `json:"item_ids"`
}

// CheckoutPreviewRequest is the body of POST /cart/checkout-preview.
// An empty ItemIDs previews every valid line.
type CheckoutPreviewRequest struct {
	ItemIDs   []string `json:"item_ids,omitempty"`
	AddressID string   `json:"address_id,omitempty"`
	CouponID  string   `json:"coupon_id,omitempty"`
}

// CheckoutPreview is the server-computed price breakdown for a set of lines.
type CheckoutPreview struct {
	Items             []CartItem      `json:"items"`
	ProductTotal      decimal.Decimal `json:"product_total"`
	PromotionDiscount decimal.Decimal `json:"promotion_discount"`
	CouponDiscount    decimal.Decimal `json:"coupon_discount"`
	ShippingFee       decimal.Decimal `json:"shipping_fee"`
	FinalAmount       decimal.Decimal `json:"final_amount"`
}

// DecodeCheckoutPreview normalizes the data object of a checkout preview envelope.
func DecodeCheckoutPreview(raw json.RawMessage) (*CheckoutPreview, error) {
	o, err := decodeObject(raw)
	if err != nil {
		return nil, fmt.Errorf("checkout preview: %w", err)
	}
	preview := &CheckoutPreview{Items: []CartItem{}}
	if lines, ok := present(o, "items"); ok {
		if preview.Items, err = NormalizeCartItems(lines); err != nil {
			return nil, err
		}
	}
	preview.ProductTotal, _ = o.dec("product_total", "productTotal")
	preview.PromotionDiscount, _ = o.dec("promotion_discount", "promotionDiscount")
	preview.CouponDiscount, _ = o.dec("coupon_discount", "couponDiscount")
	preview.ShippingFee, _ = o.dec("shipping_fee", "shippingFee")
	preview.FinalAmount, _ = o.dec("final_amount", "finalAmount")
	return preview, nil
}

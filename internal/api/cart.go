package api

import (
	"context"

	"storefront/internal/models"
)

// Cart wraps the /cart endpoints.
type Cart struct {
	c Caller
}

// AddItem adds quantity of a (product, sku) line. The server accumulates
// quantities for a line already in the cart.
func (c *Cart) AddItem(ctx context.Context, req models.AddItemRequest) error {
	_, err := c.c.Post(ctx, "/cart/items", req)
	return err
}

// UpdateQuantity sets the quantity of a line. quantity must be positive.
func (c *Cart) UpdateQuantity(ctx context.Context, itemID string, quantity int) error {
	_, err := c.c.Put(ctx, "/cart/items/"+segment(itemID)+"/quantity",
		models.UpdateQuantityRequest{ItemID: itemID, Quantity: quantity})
	return err
}

// RemoveItem deletes one line.
func (c *Cart) RemoveItem(ctx context.Context, itemID string) error {
	_, err := c.c.Delete(ctx, "/cart/items/"+segment(itemID))
	return err
}

// RemoveItems deletes several lines at once.
func (c *Cart) RemoveItems(ctx context.Context, itemIDs []string) error {
	_, err := c.c.Post(ctx, "/cart/items/batch-delete", models.BatchDeleteRequest{ItemIDs: itemIDs})
	return err
}

// Clear empties the cart.
func (c *Cart) Clear(ctx context.Context) error {
	_, err := c.c.Delete(ctx, "/cart")
	return err
}

// Get fetches the cart lines and summary.
func (c *Cart) Get(ctx context.Context) (*models.CartPayload, error) {
	env, err := c.c.Get(ctx, "/cart", nil)
	if err != nil {
		return nil, err
	}
	return models.DecodeCartPayload(env)
}

// Summary fetches the server-computed aggregate. It is nil when the response
// carries none.
func (c *Cart) Summary(ctx context.Context) (*models.CartSummary, error) {
	env, err := c.c.Get(ctx, "/cart/summary", nil)
	if err != nil {
		return nil, err
	}
	raw, ok := env.Raw("data")
	if !ok {
		return nil, nil
	}
	summary, err := models.NormalizeCartSummary(raw)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// Refresh re-prices and re-validates the cart against the catalog and
// returns the revalidated lines and summary.
func (c *Cart) Refresh(ctx context.Context) (*models.CartPayload, error) {
	env, err := c.c.Post(ctx, "/cart/refresh", nil)
	if err != nil {
		return nil, err
	}
	return models.DecodeCartPayload(env)
}

// CheckoutPreview computes the price breakdown of a set of lines.
func (c *Cart) CheckoutPreview(ctx context.Context, req models.CheckoutPreviewRequest) (*models.CheckoutPreview, error) {
	env, err := c.c.Post(ctx, "/cart/checkout-preview", req)
	if err != nil {
		return nil, err
	}
	raw, ok := env.Raw("data")
	if !ok {
		return nil, models.ErrMissingField
	}
	return models.DecodeCheckoutPreview(raw)
}

package api

import (
	"context"
	"net/url"

	"storefront/internal/models"
)

// Products wraps the catalog endpoints.
type Products struct {
	c Caller
}

func productQuery(q models.ProductQuery) url.Values {
	values := url.Values{}
	if q.Keyword != "" {
		values.Set("keyword", q.Keyword)
	}
	if q.CategoryID != "" {
		values.Set("category_id", q.CategoryID)
	}
	if q.BrandID != "" {
		values.Set("brand_id", q.BrandID)
	}
	setPositive(values, "page", q.Page, 1)
	setPositive(values, "page_size", q.PageSize, 20)
	return values
}

func (p *Products) page(ctx context.Context, path string, q models.ProductQuery) (*models.ProductPage, error) {
	env, err := p.c.Get(ctx, path, productQuery(q))
	if err != nil {
		return nil, err
	}
	var page models.ProductPage
	if err := env.Decode(&page, "data"); err != nil {
		return nil, err
	}
	if page.Products == nil {
		page.Products = []models.Product{}
	}
	return &page, nil
}

// ListProducts lists products by category or brand.
func (p *Products) ListProducts(ctx context.Context, q models.ProductQuery) (*models.ProductPage, error) {
	return p.page(ctx, "/product/products", q)
}

// Search lists products matching q.Keyword.
func (p *Products) Search(ctx context.Context, q models.ProductQuery) (*models.ProductPage, error) {
	return p.page(ctx, "/product/search", q)
}

// GetProduct fetches one product with its SKUs.
func (p *Products) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	env, err := p.c.Get(ctx, "/product/products/"+segment(id), nil)
	if err != nil {
		return nil, err
	}
	var product models.Product
	if err := env.Decode(&product, "data"); err != nil {
		return nil, err
	}
	return &product, nil
}

// GetSKU fetches one SKU.
func (p *Products) GetSKU(ctx context.Context, id string) (*models.SKU, error) {
	env, err := p.c.Get(ctx, "/product/skus/"+segment(id), nil)
	if err != nil {
		return nil, err
	}
	var sku models.SKU
	if err := env.Decode(&sku, "data"); err != nil {
		return nil, err
	}
	return &sku, nil
}

// ListCategories fetches the category list.
func (p *Products) ListCategories(ctx context.Context) ([]models.Category, error) {
	env, err := p.c.Get(ctx, "/product/categories", nil)
	if err != nil {
		return nil, err
	}
	categories := []models.Category{}
	if err := env.Decode(&categories, "data"); err != nil {
		return nil, err
	}
	return categories, nil
}

// ListBrands fetches the brand list.
func (p *Products) ListBrands(ctx context.Context) ([]models.Brand, error) {
	env, err := p.c.Get(ctx, "/product/brands", nil)
	if err != nil {
		return nil, err
	}
	brands := []models.Brand{}
	if err := env.Decode(&brands, "data"); err != nil {
		return nil, err
	}
	return brands, nil
}

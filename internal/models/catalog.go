package models

import "github.com/shopspring/decimal"

// Product is a catalog entry (SPU).
type Product struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Subtitle   string          `json:"subtitle,omitempty"`
	MainImage  string          `json:"main_image"`
	Price      decimal.Decimal `json:"price"`
	CategoryID string          `json:"category_id,omitempty"`
	BrandID    string          `json:"brand_id,omitempty"`
	Status     int             `json:"status"`
	SKUs       []SKU           `json:"skus,omitempty"`
}

// SKU is a purchasable variant of a product.
type SKU struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	Status    int             `json:"status"`
}

// Category is a node of the category tree.
type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parent_id,omitempty"`
	Level    int    `json:"level,omitempty"`
}

// Brand is a product brand.
type Brand struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Logo string `json:"logo,omitempty"`
}

// ProductQuery filters GET /product/products and GET /product/search.
type ProductQuery struct {
	Keyword    string
	CategoryID string
	BrandID    string
	Page       int
	PageSize   int
}

// ProductPage is one page of products.
type ProductPage struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
}

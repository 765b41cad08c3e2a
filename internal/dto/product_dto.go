package dto

type CreateProductRequest struct {
	Name         string  `json:"name" validate:"required"`
	SKU          *string `json:"sku"`
	CategoryID   *string `json:"category_id" validate:"omitempty,uuid"`
	PriceCents   int64   `json:"price_cents" validate:"min=0"`
	CostCents    int64   `json:"cost_cents" validate:"min=0"`
	ReorderLevel int     `json:"reorder_level" validate:"min=0"`
}

// UpdateProductRequest uses pointers so that omitted fields are left untouched.
type UpdateProductRequest struct {
	Name         *string `json:"name"`
	SKU          *string `json:"sku"`
	CategoryID   *string `json:"category_id" validate:"omitempty,uuid"`
	PriceCents   *int64  `json:"price_cents" validate:"omitempty,min=0"`
	CostCents    *int64  `json:"cost_cents" validate:"omitempty,min=0"`
	ReorderLevel *int    `json:"reorder_level" validate:"omitempty,min=0"`
	Active       *bool   `json:"active"`
}

type ProductResponse struct {
	ID           string  `json:"id"`
	SKU          *string `json:"sku"`
	Name         string  `json:"name"`
	CategoryID   *string `json:"category_id"`
	Category     string  `json:"category,omitempty"`
	PriceCents   int64   `json:"price_cents"`
	CostCents    int64   `json:"cost_cents"`
	StockQty     int     `json:"stock_qty"`
	ReorderLevel int     `json:"reorder_level"`
	Active       bool    `json:"active"`
	CreatedAt    string  `json:"created_at"`
}

// ProductFilter narrows product listings.
// Active: "false" = inactive only, "all" = everything, default = active only.
type ProductFilter struct {
	Name       string `form:"name"`
	CategoryID string `form:"category_id"`
	Active     string `form:"active"`
	Page       int    `form:"page,default=1"  validate:"min=1"`
	Limit      int    `form:"limit,default=20" validate:"min=1,max=100"`
}

type ProductListResponse struct {
	Data  []ProductResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

type StockResponse struct {
	ProductID string `json:"product_id"`
	StockQty  int    `json:"stock_qty"`
}

// StockAuditResponse compares the incrementally maintained counter against a
// full replay of the ledger. Consistent is false only if the two diverge,
// which would indicate a write outside the movement transaction.
type StockAuditResponse struct {
	ProductID  string `json:"product_id"`
	CounterQty int    `json:"counter_qty"`
	ReplayQty  int    `json:"replay_qty"`
	Consistent bool   `json:"consistent"`
}

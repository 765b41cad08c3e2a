package dto

type AlertResponse struct {
	ID          string  `json:"id"`
	ProductID   string  `json:"product_id"`
	Product     string  `json:"product,omitempty"`
	CurrentQty  int     `json:"current_qty"`
	Threshold   int     `json:"threshold"`
	Status      string  `json:"status"`
	IsManual    bool    `json:"is_manual"`
	StockBefore int     `json:"stock_before"`
	StockAfter  int     `json:"stock_after"`
	CreatedAt   string  `json:"created_at"`
	ResolvedAt  *string `json:"resolved_at,omitempty"`
}

type CreateManualAlertRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
}

type MarkSeenResponse struct {
	Marked int64 `json:"marked"`
}

type UnseenCountResponse struct {
	Count int64 `json:"count"`
}

package dto

type RecordMovementRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	// Qty carries the sign: negative for OUT, positive for IN, either for ADJ.
	Qty            int     `json:"qty" validate:"required"`
	Reason         string  `json:"reason" validate:"required,oneof=IN OUT ADJ"`
	UnitPriceCents *int64  `json:"unit_price_cents" validate:"omitempty,min=0"`
	UnitCostCents  *int64  `json:"unit_cost_cents" validate:"omitempty,min=0"`
	Note           *string `json:"note"`
}

type MovementResponse struct {
	ID             string  `json:"id"`
	ProductID      string  `json:"product_id"`
	Product        string  `json:"product,omitempty"`
	Qty            int     `json:"qty"`
	Reason         string  `json:"reason"`
	UnitPriceCents *int64  `json:"unit_price_cents,omitempty"`
	UnitCostCents  *int64  `json:"unit_cost_cents,omitempty"`
	Note           *string `json:"note,omitempty"`
	ActorID        string  `json:"actor_id"`
	StockBefore    int     `json:"stock_before"`
	StockAfter     int     `json:"stock_after"`
	CreatedAt      string  `json:"created_at"`
}

// MovementResult is what recordMovement returns to the caller: the appended
// event, the new balance, and the alert that was opened by this movement (nil
// when no threshold crossing occurred or an open alert already existed).
type MovementResult struct {
	Movement MovementResponse `json:"movement"`
	StockQty int              `json:"stock_qty"`
	Alert    *AlertResponse   `json:"alert,omitempty"`
}

type MovementFilter struct {
	ProductID string `form:"product_id"`
	Reason    string `form:"reason"`
	Page      int    `form:"page,default=1"   validate:"min=1"`
	Limit     int    `form:"limit,default=100" validate:"min=1,max=500"`
}

type MovementListResponse struct {
	Data  []MovementResponse `json:"data"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

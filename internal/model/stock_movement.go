package model

import (
	"time"

	"github.com/google/uuid"
)

// Movement reasons. OUT is a sale (negative qty), IN a purchase/restock
// (positive qty), ADJ a manual correction with either sign.
const (
	MovementIn  = "IN"
	MovementOut = "OUT"
	MovementAdj = "ADJ"
)

// StockMovement is one signed quantity event in the append-only ledger.
// Rows are immutable: there is no update or delete path anywhere in the
// codebase, and the product balance is defined as the sum of Qty per product.
type StockMovement struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index:idx_stock_movements_product_created,priority:1"`
	Qty       int       `gorm:"not null"` // sign carries direction; CHECK qty <> 0 (schema patch)
	Reason    string    `gorm:"not null"` // "IN" | "OUT" | "ADJ"
	// UnitPriceCents is set only for OUT, UnitCostCents only for IN.
	UnitPriceCents *int64
	UnitCostCents  *int64
	Note           *string
	ActorID        uuid.UUID `gorm:"type:uuid;not null"`
	StockBefore    int       `gorm:"not null"`
	StockAfter     int       `gorm:"not null"`
	CreatedAt      time.Time `gorm:"index:idx_stock_movements_product_created,priority:2"`

	Product *Product `gorm:"foreignKey:ProductID"`
}

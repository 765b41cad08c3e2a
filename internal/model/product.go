package model

import (
	"time"

	"github.com/google/uuid"
)

// Product is the registry entry for a sellable item. StockQty is the
// incrementally maintained balance counter: it is only ever written inside
// the same transaction that appends the corresponding StockMovement, so a
// committed read always equals the ledger sum.
type Product struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SKU        *string    `gorm:"uniqueIndex"`
	Name       string     `gorm:"index;not null"`
	CategoryID *uuid.UUID `gorm:"type:uuid;index"`
	// All money is integer cents — no floating point anywhere near prices.
	PriceCents   int64 `gorm:"not null;default:0"`
	CostCents    int64 `gorm:"not null;default:0"`
	StockQty     int   `gorm:"not null;default:0"`
	ReorderLevel int   `gorm:"not null;default:0"` // CHECK reorder_level >= 0 (schema patch)
	Active       bool  `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Category *Category `gorm:"foreignKey:CategoryID"`
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// Alert lifecycle: open → resolved (terminal). Resolution is always an
// explicit admin action — restocking above the threshold never closes an
// alert, so alerts don't flap around the reorder level.
const (
	AlertOpen     = "open"
	AlertResolved = "resolved"
)

// LowStockAlert records that a product's balance reached its reorder level.
// At most one open alert may exist per product; the partial unique index
// uq_low_stock_alerts_open (see infra.NewDatabase) enforces this at the
// storage layer even under concurrent writers.
type LowStockAlert struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index:idx_alerts_product_status,priority:1"`
	// CurrentQty and Threshold are snapshots taken at creation time. The
	// product's reorder_level may change afterwards; the alert keeps the
	// value it was triggered against.
	CurrentQty  int        `gorm:"not null"`
	Threshold   int        `gorm:"not null"`
	Status      string     `gorm:"not null;default:'open';index:idx_alerts_product_status,priority:2"`
	StockBefore int        `gorm:"not null"`
	StockAfter  int        `gorm:"not null"`
	IsManual    bool       `gorm:"not null;default:false"`
	CreatedAt   time.Time  `gorm:"index"`
	ResolvedAt  *time.Time
	ResolvedBy  *uuid.UUID `gorm:"type:uuid"`

	// Notification bookkeeping for the async email pipeline.
	NotifiedAt      *time.Time
	NotifyAttempts  int `gorm:"not null;default:0"`
	NextRetryAt     *time.Time
	LastNotifyError *string

	Product *Product `gorm:"foreignKey:ProductID"`
}

package infra

import (
	"fmt"

	"github.com/zitodamiano1998-max/cpsm-shop/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate
// to create / update all tables, then applies the idempotent SQL patches that
// GORM cannot express (the open-alert partial unique index and the ledger
// check constraints).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}

	return db, nil
}

// RunMigrations applies the schema. Also used by integration tests against a
// throwaway container database.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Staff{},
		&model.Category{},
		&model.Product{},
		&model.StockMovement{},
		&model.LowStockAlert{},
		&model.AlertSeen{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL that AutoMigrate cannot produce.
// Each statement is guarded so re-running on an already-patched schema is a
// no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// At most one open alert per product. This is the storage-level
		// backstop for the per-product lock: a concurrent writer that
		// slips past the in-transaction existence check fails here with
		// SQLSTATE 23505 and its insert is ignored.
		{"partial unique index on open alerts", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'uq_low_stock_alerts_open') THEN
    CREATE UNIQUE INDEX uq_low_stock_alerts_open
        ON low_stock_alerts (product_id)
        WHERE status = 'open';
  END IF;
END $$`},
		// Ledger shape constraints, belt to the service-level suspenders.
		{"check reorder_level >= 0", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_products_reorder_level') THEN
    ALTER TABLE products ADD CONSTRAINT chk_products_reorder_level CHECK (reorder_level >= 0);
  END IF;
END $$`},
		{"check qty <> 0", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_stock_movements_qty') THEN
    ALTER TABLE stock_movements ADD CONSTRAINT chk_stock_movements_qty CHECK (qty <> 0);
  END IF;
END $$`},
		{"check movement sign matches reason", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_stock_movements_sign') THEN
    ALTER TABLE stock_movements ADD CONSTRAINT chk_stock_movements_sign CHECK (
      (reason = 'OUT' AND qty < 0) OR
      (reason = 'IN'  AND qty > 0) OR
      (reason = 'ADJ')
    );
  END IF;
END $$`},
	}

	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("schema patch %q: %w", p.descr, err)
		}
	}
	return nil
}

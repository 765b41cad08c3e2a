package repository

import (
	"context"
	"time"

	"github.com/zitodamiano1998-max/cpsm-shop/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AlertRepository interface {
	// CreateTx inserts a new alert inside the movement transaction. If a
	// concurrent writer already opened one for the same product, the insert
	// fails against uq_low_stock_alerts_open with SQLSTATE 23505.
	CreateTx(tx *gorm.DB, a *model.LowStockAlert) error

	// FindOpenByProductTx reads the current open alert under the product
	// row lock — the fast path of the dedup check.
	FindOpenByProductTx(tx *gorm.DB, productID uuid.UUID) (*model.LowStockAlert, error)

	FindByID(ctx context.Context, id uuid.UUID) (*model.LowStockAlert, error)
	List(ctx context.Context, status string) ([]model.LowStockAlert, error)

	// Resolve flips the alert to resolved only while it is still open; the
	// returned row count is 0 when another admin won the race.
	Resolve(ctx context.Context, id, actorID uuid.UUID) (int64, error)

	// MarkAllSeen stamps a seen mark for every open alert the staff member
	// has not seen yet; conflicts are silently skipped so calling it twice
	// is a no-op the second time.
	MarkAllSeen(ctx context.Context, staffID uuid.UUID) (int64, error)
	UnseenCount(ctx context.Context, staffID uuid.UUID) (int64, error)

	// Notification bookkeeping for the async email pipeline.
	MarkNotified(ctx context.Context, id uuid.UUID) error
	RecordNotifyFailure(ctx context.Context, id uuid.UUID, reason string, nextRetry time.Time) error
	ListPendingNotify(ctx context.Context, now time.Time, limit int) ([]model.LowStockAlert, error)
}

type alertRepo struct{ db *gorm.DB }

func NewAlertRepository(db *gorm.DB) AlertRepository { return &alertRepo{db: db} }

func (r *alertRepo) CreateTx(tx *gorm.DB, a *model.LowStockAlert) error {
	return tx.Create(a).Error
}

func (r *alertRepo) FindOpenByProductTx(tx *gorm.DB, productID uuid.UUID) (*model.LowStockAlert, error) {
	var a model.LowStockAlert
	err := tx.Where("product_id = ? AND status = ?", productID, model.AlertOpen).First(&a).Error
	return &a, err
}

func (r *alertRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.LowStockAlert, error) {
	var a model.LowStockAlert
	err := r.db.WithContext(ctx).Preload("Product").First(&a, id).Error
	return &a, err
}

func (r *alertRepo) List(ctx context.Context, status string) ([]model.LowStockAlert, error) {
	q := r.db.WithContext(ctx).Preload("Product").Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var alerts []model.LowStockAlert
	err := q.Find(&alerts).Error
	return alerts, err
}

func (r *alertRepo) Resolve(ctx context.Context, id, actorID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.LowStockAlert{}).
		Where("id = ? AND status = ?", id, model.AlertOpen).
		Updates(map[string]interface{}{
			"status":      model.AlertResolved,
			"resolved_at": time.Now().UTC(),
			"resolved_by": actorID,
		})
	return res.RowsAffected, res.Error
}

func (r *alertRepo) MarkAllSeen(ctx context.Context, staffID uuid.UUID) (int64, error) {
	// Single statement so two concurrent calls for the same staff member
	// cannot double-insert: the unique index absorbs the conflict.
	res := r.db.WithContext(ctx).Exec(`
		INSERT INTO alert_seen_marks (id, staff_id, alert_id, seen_at)
		SELECT gen_random_uuid(), ?, a.id, now()
		FROM low_stock_alerts a
		WHERE a.status = ?
		ON CONFLICT (staff_id, alert_id) DO NOTHING`,
		staffID, model.AlertOpen)
	return res.RowsAffected, res.Error
}

func (r *alertRepo) UnseenCount(ctx context.Context, staffID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.LowStockAlert{}).
		Where("status = ?", model.AlertOpen).
		Where("NOT EXISTS (SELECT 1 FROM alert_seen_marks m WHERE m.alert_id = low_stock_alerts.id AND m.staff_id = ?)", staffID).
		Count(&n).Error
	return n, err
}

func (r *alertRepo) MarkNotified(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.LowStockAlert{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"notified_at":   time.Now().UTC(),
			"next_retry_at": nil,
		}).Error
}

func (r *alertRepo) RecordNotifyFailure(ctx context.Context, id uuid.UUID, reason string, nextRetry time.Time) error {
	return r.db.WithContext(ctx).Model(&model.LowStockAlert{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"notify_attempts":   gorm.Expr("notify_attempts + 1"),
			"next_retry_at":     nextRetry,
			"last_notify_error": reason,
		}).Error
}

func (r *alertRepo) ListPendingNotify(ctx context.Context, now time.Time, limit int) ([]model.LowStockAlert, error) {
	var alerts []model.LowStockAlert
	err := r.db.WithContext(ctx).
		Where("notified_at IS NULL AND next_retry_at IS NOT NULL AND next_retry_at <= ?", now).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&alerts).Error
	return alerts, err
}

package tests

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/zitodamiano1998-max/cpsm-shop/internal/dto"
	"github.com/zitodamiano1998-max/cpsm-shop/internal/model"
	"github.com/zitodamiano1998-max/cpsm-shop/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// In-memory repository stubs shared by the unit tests in this package. They
// reproduce the behavior the services rely on, including the SQLSTATE errors
// the real implementations surface: 55P03 when the product row lock is held
// and 23505 when the single-open-alert index rejects an insert.

// ── ProductRepository stub ───────────────────────────────────────────────────

type stubProductRepo struct {
	products map[uuid.UUID]*model.Product

	// lockHeld simulates a concurrent transaction holding the row lock.
	lockHeld bool

	// afterFind runs once after the next FindByID snapshot is taken,
	// emulating a write that commits between a read and its write-back.
	afterFind func()
}

func newStubProductRepo() *stubProductRepo {
	return &stubProductRepo{products: make(map[uuid.UUID]*model.Product)}
}

func (r *stubProductRepo) Create(_ context.Context, p *model.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	r.products[p.ID] = p
	return nil
}

func (r *stubProductRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	if r.afterFind != nil {
		fn := r.afterFind
		r.afterFind = nil
		fn()
	}
	return &cp, nil
}

func (r *stubProductRepo) List(_ context.Context, filter dto.ProductFilter) ([]model.Product, int64, error) {
	var result []model.Product
	for _, p := range r.products {
		switch filter.Active {
		case "all":
		case "false":
			if p.Active {
				continue
			}
		default:
			if !p.Active {
				continue
			}
		}
		result = append(result, *p)
	}
	return result, int64(len(result)), nil
}

func (r *stubProductRepo) ListLowStock(_ context.Context) ([]model.Product, error) {
	var result []model.Product
	for _, p := range r.products {
		if p.Active && p.StockQty <= p.ReorderLevel {
			result = append(result, *p)
		}
	}
	return result, nil
}

// Update mirrors the real repository: stock_qty and created_at are omitted
// from metadata saves, so the committed counter survives a stale snapshot.
func (r *stubProductRepo) Update(_ context.Context, p *model.Product) error {
	cur, ok := r.products[p.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *p
	cp.StockQty = cur.StockQty
	cp.CreatedAt = cur.CreatedAt
	r.products[p.ID] = &cp
	return nil
}

func (r *stubProductRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	p, ok := r.products[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.Active = false
	return nil
}

func (r *stubProductRepo) Reactivate(_ context.Context, id uuid.UUID) error {
	p, ok := r.products[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.Active = true
	return nil
}

func (r *stubProductRepo) LockByIDTx(_ *gorm.DB, id uuid.UUID) (*model.Product, error) {
	if r.lockHeld {
		return nil, &pgconn.PgError{Code: "55P03", Message: "could not obtain lock on row"}
	}
	p, ok := r.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (r *stubProductRepo) UpdateStockTx(_ *gorm.DB, id uuid.UUID, delta int) error {
	p, ok := r.products[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.StockQty += delta
	return nil
}

// DB returns nil so runTx invokes the callback directly (no real transaction).
func (r *stubProductRepo) DB() *gorm.DB { return nil }

var _ repository.ProductRepository = (*stubProductRepo)(nil)

// ── MovementRepository stub ──────────────────────────────────────────────────

type stubMovementRepo struct {
	movements []*model.StockMovement
}

func newStubMovementRepo() *stubMovementRepo { return &stubMovementRepo{} }

func (r *stubMovementRepo) CreateTx(_ *gorm.DB, m *model.StockMovement) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.CreatedAt = time.Now()
	r.movements = append(r.movements, m)
	return nil
}

func (r *stubMovementRepo) List(_ context.Context, filter dto.MovementFilter) ([]model.StockMovement, int64, error) {
	var result []model.StockMovement
	for _, m := range r.movements {
		if filter.ProductID != "" && m.ProductID.String() != filter.ProductID {
			continue
		}
		if filter.Reason != "" && m.Reason != filter.Reason {
			continue
		}
		result = append(result, *m)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, int64(len(result)), nil
}

func (r *stubMovementRepo) SumQtyByProduct(_ context.Context, productID uuid.UUID) (int, error) {
	sum := 0
	for _, m := range r.movements {
		if m.ProductID == productID {
			sum += m.Qty
		}
	}
	return sum, nil
}

var _ repository.MovementRepository = (*stubMovementRepo)(nil)

// ── AlertRepository stub ─────────────────────────────────────────────────────

type stubAlertRepo struct {
	alerts map[uuid.UUID]*model.LowStockAlert
	seen   map[uuid.UUID]map[uuid.UUID]bool // staff → alert → seen

	// forceUniqueViolation makes the next CreateTx fail with 23505 even when
	// no open alert is visible, simulating a concurrent insert race.
	forceUniqueViolation bool
}

func newStubAlertRepo() *stubAlertRepo {
	return &stubAlertRepo{
		alerts: make(map[uuid.UUID]*model.LowStockAlert),
		seen:   make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

func (r *stubAlertRepo) CreateTx(_ *gorm.DB, a *model.LowStockAlert) error {
	if r.forceUniqueViolation {
		r.forceUniqueViolation = false
		return &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint \"uq_low_stock_alerts_open\""}
	}
	// Emulate the partial unique index on (product_id) WHERE status = 'open'.
	for _, existing := range r.alerts {
		if existing.ProductID == a.ProductID && existing.Status == model.AlertOpen {
			return &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint \"uq_low_stock_alerts_open\""}
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	cp := *a
	r.alerts[a.ID] = &cp
	return nil
}

func (r *stubAlertRepo) FindOpenByProductTx(_ *gorm.DB, productID uuid.UUID) (*model.LowStockAlert, error) {
	for _, a := range r.alerts {
		if a.ProductID == productID && a.Status == model.AlertOpen {
			return a, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubAlertRepo) FindByID(_ context.Context, id uuid.UUID) (*model.LowStockAlert, error) {
	a, ok := r.alerts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return a, nil
}

func (r *stubAlertRepo) List(_ context.Context, status string) ([]model.LowStockAlert, error) {
	var result []model.LowStockAlert
	for _, a := range r.alerts {
		if status != "" && a.Status != status {
			continue
		}
		result = append(result, *a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (r *stubAlertRepo) Resolve(_ context.Context, id, actorID uuid.UUID) (int64, error) {
	a, ok := r.alerts[id]
	if !ok || a.Status != model.AlertOpen {
		return 0, nil
	}
	now := time.Now()
	a.Status = model.AlertResolved
	a.ResolvedAt = &now
	a.ResolvedBy = &actorID
	return 1, nil
}

func (r *stubAlertRepo) MarkAllSeen(_ context.Context, staffID uuid.UUID) (int64, error) {
	if r.seen[staffID] == nil {
		r.seen[staffID] = make(map[uuid.UUID]bool)
	}
	var marked int64
	for id, a := range r.alerts {
		if a.Status != model.AlertOpen || r.seen[staffID][id] {
			continue
		}
		r.seen[staffID][id] = true
		marked++
	}
	return marked, nil
}

func (r *stubAlertRepo) UnseenCount(_ context.Context, staffID uuid.UUID) (int64, error) {
	var count int64
	for id, a := range r.alerts {
		if a.Status == model.AlertOpen && !r.seen[staffID][id] {
			count++
		}
	}
	return count, nil
}

func (r *stubAlertRepo) MarkNotified(_ context.Context, id uuid.UUID) error {
	a, ok := r.alerts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	now := time.Now()
	a.NotifiedAt = &now
	return nil
}

func (r *stubAlertRepo) RecordNotifyFailure(_ context.Context, id uuid.UUID, reason string, nextRetry time.Time) error {
	a, ok := r.alerts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	a.NotifyAttempts++
	a.NextRetryAt = &nextRetry
	a.LastNotifyError = &reason
	return nil
}

func (r *stubAlertRepo) ListPendingNotify(_ context.Context, now time.Time, limit int) ([]model.LowStockAlert, error) {
	var result []model.LowStockAlert
	for _, a := range r.alerts {
		if a.Status == model.AlertOpen && a.NotifiedAt == nil && a.NextRetryAt != nil && !a.NextRetryAt.After(now) {
			result = append(result, *a)
			if len(result) == limit {
				break
			}
		}
	}
	return result, nil
}

var _ repository.AlertRepository = (*stubAlertRepo)(nil)

// ── StaffRepository stub ─────────────────────────────────────────────────────

type stubStaffRepo struct {
	staff map[uuid.UUID]*model.Staff
}

func newStubStaffRepo() *stubStaffRepo {
	return &stubStaffRepo{staff: make(map[uuid.UUID]*model.Staff)}
}

func (r *stubStaffRepo) Create(_ context.Context, s *model.Staff) error {
	for _, existing := range r.staff {
		if existing.Username == s.Username {
			return errors.New("username already taken")
		}
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.staff[s.ID] = s
	return nil
}

func (r *stubStaffRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Staff, error) {
	s, ok := r.staff[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (r *stubStaffRepo) FindByUsername(_ context.Context, username string) (*model.Staff, error) {
	for _, s := range r.staff {
		if s.Username == username && s.Active {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubStaffRepo) List(_ context.Context, includeInactive bool) ([]model.Staff, error) {
	var result []model.Staff
	for _, s := range r.staff {
		if !includeInactive && !s.Active {
			continue
		}
		result = append(result, *s)
	}
	return result, nil
}

func (r *stubStaffRepo) Update(_ context.Context, s *model.Staff) error {
	r.staff[s.ID] = s
	return nil
}

func (r *stubStaffRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	s, ok := r.staff[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.Active = false
	return nil
}

func (r *stubStaffRepo) Reactivate(_ context.Context, id uuid.UUID) error {
	s, ok := r.staff[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.Active = true
	return nil
}

var _ repository.StaffRepository = (*stubStaffRepo)(nil)

// ── CategoryRepository stub ──────────────────────────────────────────────────

type stubCategoryRepo struct {
	categories map[uuid.UUID]*model.Category
	products   *stubProductRepo // for CountProducts
}

func newStubCategoryRepo(products *stubProductRepo) *stubCategoryRepo {
	return &stubCategoryRepo{categories: make(map[uuid.UUID]*model.Category), products: products}
}

func (r *stubCategoryRepo) Create(_ context.Context, c *model.Category) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.categories[c.ID] = c
	return nil
}

func (r *stubCategoryRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Category, error) {
	c, ok := r.categories[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}

func (r *stubCategoryRepo) List(_ context.Context) ([]model.Category, error) {
	result := make([]model.Category, 0, len(r.categories))
	for _, c := range r.categories {
		result = append(result, *c)
	}
	return result, nil
}

func (r *stubCategoryRepo) Update(_ context.Context, c *model.Category) error {
	r.categories[c.ID] = c
	return nil
}

func (r *stubCategoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.categories, id)
	return nil
}

func (r *stubCategoryRepo) CountProducts(_ context.Context, id uuid.UUID) (int64, error) {
	if r.products == nil {
		return 0, nil
	}
	var count int64
	for _, p := range r.products.products {
		if p.CategoryID != nil && *p.CategoryID == id {
			count++
		}
	}
	return count, nil
}

var _ repository.CategoryRepository = (*stubCategoryRepo)(nil)

// ── Helpers ──────────────────────────────────────────────────────────────────

func seedProduct(repo *stubProductRepo, name string, stock, reorderLevel int) *model.Product {
	sku := "SKU-" + uuid.New().String()[:8]
	p := &model.Product{
		ID:           uuid.New(),
		SKU:          &sku,
		Name:         name,
		PriceCents:   1500,
		CostCents:    900,
		StockQty:     stock,
		ReorderLevel: reorderLevel,
		Active:       true,
		CreatedAt:    time.Now(),
	}
	repo.products[p.ID] = p
	return p
}

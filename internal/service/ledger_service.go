package service

import (
	"context"
	"errors"
	"time"

	"github.com/zitodamiano1998-max/cpsm-shop/internal/dto"
	"github.com/zitodamiano1998-max/cpsm-shop/internal/model"
	"github.com/zitodamiano1998-max/cpsm-shop/internal/repository"
	"github.com/zitodamiano1998-max/cpsm-shop/internal/worker"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// LedgerService is the write path for stock: it validates a movement against
// the actor's role and the ledger shape rules, then appends the movement,
// updates the balance counter, and evaluates the low-stock threshold as one
// atomic unit per product.
type LedgerService interface {
	RecordMovement(ctx context.Context, actor Actor, req dto.RecordMovementRequest) (*dto.MovementResult, error)
	ListMovements(ctx context.Context, filter dto.MovementFilter) (*dto.MovementListResponse, error)
	CurrentStock(ctx context.Context, productID uuid.UUID) (*dto.StockResponse, error)
	AuditStock(ctx context.Context, productID uuid.UUID) (*dto.StockAuditResponse, error)
}

type ledgerService struct {
	productRepo  repository.ProductRepository
	movementRepo repository.MovementRepository
	alertRepo    repository.AlertRepository
	rdb          *redis.Client
	dispatcher   *worker.Dispatcher
}

func NewLedgerService(
	productRepo repository.ProductRepository,
	movementRepo repository.MovementRepository,
	alertRepo repository.AlertRepository,
	rdb *redis.Client,
	dispatcher *worker.Dispatcher,
) LedgerService {
	return &ledgerService{
		productRepo:  productRepo,
		movementRepo: movementRepo,
		alertRepo:    alertRepo,
		rdb:          rdb,
		dispatcher:   dispatcher,
	}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// Short TTL: the cache is invalidated on every movement commit, so the TTL
// only bounds staleness when that invalidation itself fails.
const stockCacheTTL = 5 * time.Second

func stockCacheKey(id uuid.UUID) string { return "stock:" + id.String() }

// ── RecordMovement ───────────────────────────────────────────────────────────
// Ordering inside the transaction matters:
//  1. lock the product row (FOR UPDATE NOWAIT) — serializes per product
//  2. append the movement with stock_before/stock_after captured under lock
//  3. bump the balance counter
//  4. evaluate the threshold; insert an alert only if none is open
// Either all four commit or none do. A lost lock race surfaces as
// ErrContention before anything was written.

func (s *ledgerService) RecordMovement(ctx context.Context, actor Actor, req dto.RecordMovementRequest) (*dto.MovementResult, error) {
	if err := authorizeMovement(actor, req); err != nil {
		return nil, err
	}
	if err := validateShape(req); err != nil {
		return nil, err
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return nil, ErrUnknownProduct
	}

	var (
		movement     model.StockMovement
		openedAlert  *model.LowStockAlert
		productAfter model.Product
	)

	txErr := runTx(ctx, s.productRepo.DB(), func(tx *gorm.DB) error {
		p, err := s.productRepo.LockByIDTx(tx, productID)
		if err != nil {
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				return ErrUnknownProduct
			case isLockNotAvailable(err):
				return ErrContention
			default:
				return err
			}
		}

		stockBefore := p.StockQty
		stockAfter := stockBefore + req.Qty

		movement = model.StockMovement{
			ProductID:      p.ID,
			Qty:            req.Qty,
			Reason:         req.Reason,
			UnitPriceCents: req.UnitPriceCents,
			UnitCostCents:  req.UnitCostCents,
			Note:           req.Note,
			ActorID:        actor.ID,
			StockBefore:    stockBefore,
			StockAfter:     stockAfter,
		}
		if err := s.movementRepo.CreateTx(tx, &movement); err != nil {
			return err
		}

		if err := s.productRepo.UpdateStockTx(tx, p.ID, req.Qty); err != nil {
			return err
		}

		alert, err := s.openAlertIfNeeded(tx, p, stockBefore, stockAfter)
		if err != nil {
			return err
		}
		openedAlert = alert

		productAfter = *p
		productAfter.StockQty = stockAfter
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	// Post-commit side effects are best-effort: the ledger write stands
	// regardless of cache or queue availability.
	s.invalidateStockCache(ctx, productID)
	if openedAlert != nil && s.dispatcher != nil {
		if err := s.dispatcher.EnqueueAlertNotice(ctx, worker.AlertNoticePayload{AlertID: openedAlert.ID.String()}); err != nil {
			log.Warn().Err(err).Str("alert_id", openedAlert.ID.String()).Msg("failed to enqueue alert notice")
		}
	}

	result := &dto.MovementResult{
		Movement: movementToResponse(&movement, productAfter.Name),
		StockQty: movement.StockAfter,
	}
	if openedAlert != nil {
		r := alertToResponse(openedAlert, productAfter.Name)
		result.Alert = &r
	}
	return result, nil
}

// authorizeMovement enforces the role policy before anything touches the DB.
// Desk accounts register sales only: reason OUT with a negative qty.
func authorizeMovement(actor Actor, req dto.RecordMovementRequest) error {
	if actor.IsAdmin() {
		return nil
	}
	if actor.Role != model.RoleDesk {
		return ErrRoleRestriction
	}
	if req.Reason != model.MovementOut || req.Qty >= 0 {
		return ErrRoleRestriction
	}
	return nil
}

// validateShape enforces the sign/reason invariants:
// OUT ⇒ qty < 0, IN ⇒ qty > 0, ADJ either sign, qty never zero.
// unit_price_cents belongs to OUT only, unit_cost_cents to IN only.
func validateShape(req dto.RecordMovementRequest) error {
	if req.Qty == 0 {
		return ErrInvalidMovement
	}
	switch req.Reason {
	case model.MovementOut:
		if req.Qty >= 0 || req.UnitCostCents != nil {
			return ErrInvalidMovement
		}
	case model.MovementIn:
		if req.Qty <= 0 || req.UnitPriceCents != nil {
			return ErrInvalidMovement
		}
	case model.MovementAdj:
		if req.UnitPriceCents != nil || req.UnitCostCents != nil {
			return ErrInvalidMovement
		}
	default:
		return ErrInvalidMovement
	}
	return nil
}

// openAlertIfNeeded creates a low-stock alert when the movement landed the
// balance at or below the reorder level and no open alert exists. The caller
// holds the product row lock, so the existence check is race-free against
// other movements; the partial unique index is the backstop for anything
// that slipped through (e.g. a concurrent manual alert).
func (s *ledgerService) openAlertIfNeeded(tx *gorm.DB, p *model.Product, stockBefore, stockAfter int) (*model.LowStockAlert, error) {
	if stockAfter > p.ReorderLevel {
		return nil, nil
	}

	if _, err := s.alertRepo.FindOpenByProductTx(tx, p.ID); err == nil {
		// Open alert exists — leave it untouched even if stock fell further.
		return nil, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	alert := &model.LowStockAlert{
		ProductID:   p.ID,
		CurrentQty:  stockAfter,
		Threshold:   p.ReorderLevel,
		Status:      model.AlertOpen,
		StockBefore: stockBefore,
		StockAfter:  stockAfter,
		IsManual:    false,
	}
	if err := s.alertRepo.CreateTx(tx, alert); err != nil {
		if isUniqueViolation(err) {
			// Lost the insert race — the other writer's alert stands and
			// the movement itself still commits.
			return nil, nil
		}
		return nil, err
	}
	return alert, nil
}

// ── Reads ────────────────────────────────────────────────────────────────────
// Read paths never take the per-product lock; they see the latest committed
// counter (optionally through a short-lived redis cache).

func (s *ledgerService) CurrentStock(ctx context.Context, productID uuid.UUID) (*dto.StockResponse, error) {
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, stockCacheKey(productID)).Int(); err == nil {
			return &dto.StockResponse{ProductID: productID.String(), StockQty: cached}, nil
		}
	}

	p, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, ErrUnknownProduct
	}

	if s.rdb != nil {
		if err := s.rdb.Set(ctx, stockCacheKey(productID), p.StockQty, stockCacheTTL).Err(); err != nil {
			log.Debug().Err(err).Msg("stock cache set failed")
		}
	}
	return &dto.StockResponse{ProductID: productID.String(), StockQty: p.StockQty}, nil
}

// AuditStock replays the full ledger and compares it to the counter. The two
// can only diverge if something wrote stock_qty outside the movement
// transaction — which this codebase never does.
func (s *ledgerService) AuditStock(ctx context.Context, productID uuid.UUID) (*dto.StockAuditResponse, error) {
	p, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, ErrUnknownProduct
	}
	replay, err := s.movementRepo.SumQtyByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return &dto.StockAuditResponse{
		ProductID:  productID.String(),
		CounterQty: p.StockQty,
		ReplayQty:  replay,
		Consistent: p.StockQty == replay,
	}, nil
}

func (s *ledgerService) ListMovements(ctx context.Context, filter dto.MovementFilter) (*dto.MovementListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 100
	}
	movements, total, err := s.movementRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]dto.MovementResponse, 0, len(movements))
	for _, m := range movements {
		name := ""
		if m.Product != nil {
			name = m.Product.Name
		}
		items = append(items, movementToResponse(&m, name))
	}
	return &dto.MovementListResponse{
		Data:  items,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

func (s *ledgerService) invalidateStockCache(ctx context.Context, productID uuid.UUID) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, stockCacheKey(productID)).Err(); err != nil {
		log.Warn().Err(err).Str("product_id", productID.String()).
			Msg("stock cache invalidation failed, reads may be stale until TTL expiry")
	}
}

func movementToResponse(m *model.StockMovement, productName string) dto.MovementResponse {
	return dto.MovementResponse{
		ID:             m.ID.String(),
		ProductID:      m.ProductID.String(),
		Product:        productName,
		Qty:            m.Qty,
		Reason:         m.Reason,
		UnitPriceCents: m.UnitPriceCents,
		UnitCostCents:  m.UnitCostCents,
		Note:           m.Note,
		ActorID:        m.ActorID.String(),
		StockBefore:    m.StockBefore,
		StockAfter:     m.StockAfter,
		CreatedAt:      m.CreatedAt.Format(time.RFC3339),
	}
}

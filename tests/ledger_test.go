package tests

import (
	"context"
	"testing"

	"github.com/zitodamiano1998-max/cpsm-shop/internal/dto"
	"github.com/zitodamiano1998-max/cpsm-shop/internal/model"
	"github.com/zitodamiano1998-max/cpsm-shop/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adminActor() service.Actor {
	return service.Actor{ID: uuid.New(), Role: model.RoleAdmin}
}

func deskActor() service.Actor {
	return service.Actor{ID: uuid.New(), Role: model.RoleDesk}
}

func newLedgerFixture() (*stubProductRepo, *stubMovementRepo, *stubAlertRepo, service.LedgerService) {
	productRepo := newStubProductRepo()
	movementRepo := newStubMovementRepo()
	alertRepo := newStubAlertRepo()
	svc := service.NewLedgerService(productRepo, movementRepo, alertRepo, nil, nil)
	return productRepo, movementRepo, alertRepo, svc
}

func ptr(v int64) *int64 { return &v }

// ── Balance and movement shape ───────────────────────────────────────────────

func TestRecordMovementUpdatesBalance(t *testing.T) {
	productRepo, movementRepo, _, svc := newLedgerFixture()
	p := seedProduct(productRepo, "Farina 00 1kg", 0, 2)

	result, err := svc.RecordMovement(context.Background(), adminActor(), dto.RecordMovementRequest{
		ProductID:     p.ID.String(),
		Qty:           10,
		Reason:        model.MovementIn,
		UnitCostCents: ptr(90),
	})
	require.NoError(t, err)
	assert.Equal(t, 10, result.StockQty)
	assert.Equal(t, 0, result.Movement.StockBefore)
	assert.Equal(t, 10, result.Movement.StockAfter)
	assert.Equal(t, 10, productRepo.products[p.ID].StockQty)
	assert.Len(t, movementRepo.movements, 1)
}

func TestBalanceEqualsLedgerSum(t *testing.T) {
	productRepo, _, _, svc := newLedgerFixture()
	p := seedProduct(productRepo, "Passata 700g", 0, 1)
	actor := adminActor()
	ctx := context.Background()

	_, err := svc.RecordMovement(ctx, actor, dto.RecordMovementRequest{ProductID: p.ID.String(), Qty: 12, Reason: model.MovementIn})
	require.NoError(t, err)
	_, err = svc.RecordMovement(ctx, actor, dto.RecordMovementRequest{ProductID: p.ID.String(), Qty: -5, Reason: model.MovementOut})
	require.NoError(t, err)
	_, err = svc.RecordMovement(ctx, actor, dto.RecordMovementRequest{ProductID: p.ID.String(), Qty: -2, Reason: model.MovementAdj})
	require.NoError(t, err)

	audit, err := svc.AuditStock(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, audit.CounterQty)
	assert.Equal(t, 5, audit.ReplayQty)
	assert.True(t, audit.Consistent)
}

func TestAuditDetectsDrift(t *testing.T) {
	productRepo, _, _, svc := newLedgerFixture()
	p := seedProduct(productRepo, "Olio EVO 1L", 0, 1)

	_, err := svc.RecordMovement(context.Background(), adminActor(), dto.RecordMovementRequest{
		ProductID: p.ID.String(), Qty: 8, Reason: model.MovementIn,
	})
	require.NoError(t, err)

	// A write that bypasses the ledger transaction would leave the counter
	// out of sync with the replay.
	productRepo.products[p.ID].StockQty = 999

	audit, err := svc.AuditStock(context.Background(), p.ID)
	require.NoError(t, err)
	assert.False(t, audit.Consistent)
}

func TestZeroQtyRejected(t *testing.T) {
	productRepo, movementRepo, _, svc := newLedgerFixture()
	p := seedProduct(productRepo, "Sale grosso", 10, 2)

	_, err := svc.RecordMovement(context.Background(), adminActor(), dto.RecordMovementRequest{
		ProductID: p.ID.String(), Qty: 0, Reason: model.MovementAdj,
	})
	assert.ErrorIs(t, err, service.ErrInvalidMovement)
	assert.Empty(t, movementRepo.movements)
}

func TestOutRequiresNegativeQty(t *testing.T) {
	productRepo, _, _, svc := newLedgerFixture()
	p := seedProduct(productRepo, "Zucchero 1kg", 10, 2)

	_, err := svc.RecordMovement(context.Background(), adminActor(), dto.RecordMovementRequest{
		ProductID: p.ID.String(), Qty: 5, Reason: model.MovementOut,
	})
	assert.ErrorIs(t, err, service.ErrInvalidMovement)
}

func TestInRequiresPositiveQty(t *testing.T) {
	productRepo, _, _, svc := newLedgerFixture()
	p := seedProduct(productRepo, "Caffe 250g", 10, 2)

	_, err := svc.RecordMovement(context.Background(), adminActor(), dto.RecordMovementRequest{
		ProductID: p.ID.String(), Qty: -3, Reason: model.MovementIn,
	})
	assert.ErrorIs(t, err, service.ErrInvalidMovement)
}

func TestPriceOnlyOnOut(t *testing.T) {
	productRepo, _, _, svc := newLedgerFixture()
	p := seedProduct(productRepo, "Riso 1kg", 10, 2)
	ctx := context.Background()

	// unit_price_cents on an IN movement
	_, err := svc.RecordMovement(ctx, adminActor(), dto.RecordMovementRequest{
		ProductID: p.ID.String(), Qty: 5, Reason: model.MovementIn, UnitPriceCents: ptr(1200),
	})
	assert.ErrorIs(t, err, service.ErrInvalidMovement)

	// unit_cost_cents on an OUT movement
	_, err = svc.RecordMovement(ctx, adminActor(), dto.RecordMovementRequest{
		ProductID: p.ID.String(), Qty: -5, Reason: model.MovementOut, UnitCostCents: ptr(700),
	})
	assert.ErrorIs(t, err, service.ErrInvalidMovement)

	// ADJ carries neither
	_, err = svc.RecordMovement(ctx, adminActor(), dto.RecordMovementRequest{
		ProductID: p.ID.String(), Qty: -1, Reason: model.MovementAdj, UnitPriceCents: ptr(1200),
	})
	assert.ErrorIs(t, err, service.ErrInvalidMovement)
}

func TestUnknownProduct(t *testing.T) {
	_, _, _, svc := newLedgerFixture()

	_, err := svc.RecordMovement(context.Background(), adminActor(), dto.RecordMovementRequest{
		ProductID: uuid.New().String(), Qty: 5, Reason: model.MovementIn,
	})
	assert.ErrorIs(t, err, service.ErrUnknownProduct)
}

// ── Role policy ──────────────────────────────────────────────────────────────

func TestDeskRecordsSales(t *testing.T) {
	productRepo, _, _, svc := newLedgerFixture()
	p := seedProduct(productRepo, "Pane casereccio", 20, 3)

	result, err := svc.RecordMovement(context.Background(), deskActor(), dto.RecordMovementRequest{
		ProductID:      p.ID.String(),
		Qty:            -2,
		Reason:         model.MovementOut,
		UnitPriceCents: ptr(350),
	})
	require.NoError(t, err)
	assert.Equal(t, 18, result.StockQty)
}

func TestDeskCannotReceiveStock(t *testing.T) {
	productRepo, movementRepo, _, svc := newLedgerFixture()
	p := seedProduct(productRepo, "Mozzarella 125g", 5, 2)

	_, err := svc.RecordMovement(context.Background(), deskActor(), dto.RecordMovementRequest{
		ProductID: p.ID.String(), Qty: 10, Reason: model.MovementIn,
	})
	assert.ErrorIs(t, err, service.ErrRoleRestriction)
	// Nothing reached the ledger
	assert.Empty(t, movementRepo.movements)
	assert.Equal(t, 5, productRepo.products[p.ID].StockQty)
}

func TestDeskCannotAdjust(t *testing.T) {
	productRepo, _, _, svc := newLedgerFixture()
	p := seedProduct(productRepo, "Prosciutto crudo", 5, 2)

	_, err := svc.RecordMovement(context.Background(), deskActor(), dto.RecordMovementRequest{
		ProductID: p.ID.String(), Qty: -1, Reason: model.MovementAdj,
	})
	assert.ErrorIs(t, err, service.ErrRoleRestriction)
}

// ── Contention ───────────────────────────────────────────────────────────────

func TestLockContention(t *testing.T) {
	productRepo, movementRepo, _, svc := newLedgerFixture()
	p := seedProduct(productRepo, "Parmigiano 300g", 10, 2)
	productRepo.lockHeld = true

	_, err := svc.RecordMovement(context.Background(), adminActor(), dto.RecordMovementRequest{
		ProductID: p.ID.String(), Qty: -1, Reason: model.MovementOut,
	})
	assert.ErrorIs(t, err, service.ErrContention)
	assert.Empty(t, movementRepo.movements)
}

// ── Low-stock alerts on the write path ───────────────────────────────────────

func TestAlertOpensOnThresholdCross(t *testing.T) {
	productRepo, _, alertRepo, svc := newLedgerFixture()
	p := seedProduct(productRepo, "Latte intero 1L", 10, 5)

	result, err := svc.RecordMovement(context.Background(), adminActor(), dto.RecordMovementRequest{
		ProductID: p.ID.String(), Qty: -6, Reason: model.MovementOut,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Alert)
	assert.Equal(t, model.AlertOpen, result.Alert.Status)
	assert.Equal(t, 4, result.Alert.CurrentQty)
	assert.Equal(t, 5, result.Alert.Threshold)
	assert.Equal(t, 10, result.Alert.StockBefore)
	assert.Equal(t, 4, result.Alert.StockAfter)
	assert.False(t, result.Alert.IsManual)
	assert.Len(t, alertRepo.alerts, 1)
}

func TestAlertOpensAtExactThreshold(t *testing.T) {
	productRepo, _, _, svc := newLedgerFixture()
	p := seedProduct(productRepo, "Uova x6", 6, 5)

	// Landing exactly on the reorder level counts as low stock.
	result, err := svc.RecordMovement(context.Background(), adminActor(), dto.RecordMovementRequest{
		ProductID: p.ID.String(), Qty: -1, Reason: model.MovementOut,
	})
	require.NoError(t, err)
	assert.NotNil(t, result.Alert)
}

func TestNoSecondAlertWhileOpen(t *testing.T) {
	productRepo, _, alertRepo, svc := newLedgerFixture()
	p := seedProduct(productRepo, "Burro 250g", 10, 5)
	actor := adminActor()
	ctx := context.Background()

	first, err := svc.RecordMovement(ctx, actor, dto.RecordMovementRequest{ProductID: p.ID.String(), Qty: -6, Reason: model.MovementOut})
	require.NoError(t, err)
	require.NotNil(t, first.Alert)

	// Stock keeps falling, but the open alert already covers it.
	second, err := svc.RecordMovement(ctx, actor, dto.RecordMovementRequest{ProductID: p.ID.String(), Qty: -1, Reason: model.MovementOut})
	require.NoError(t, err)
	assert.Nil(t, second.Alert)
	assert.Len(t, alertRepo.alerts, 1)
}

func TestRestockDoesNotResolveAlert(t *testing.T) {
	productRepo, _, alertRepo, svc := newLedgerFixture()
	p := seedProduct(productRepo, "Yogurt bianco", 6, 5)
	actor := adminActor()
	ctx := context.Background()

	result, err := svc.RecordMovement(ctx, actor, dto.RecordMovementRequest{ProductID: p.ID.String(), Qty: -2, Reason: model.MovementOut})
	require.NoError(t, err)
	require.NotNil(t, result.Alert)

	// Restocking well above the threshold leaves the alert open.
	_, err = svc.RecordMovement(ctx, actor, dto.RecordMovementRequest{ProductID: p.ID.String(), Qty: 50, Reason: model.MovementIn})
	require.NoError(t, err)

	open, err := alertRepo.List(ctx, model.AlertOpen)
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestFreshAlertAfterResolve(t *testing.T) {
	productRepo, _, alertRepo, svc := newLedgerFixture()
	alertSvc := service.NewAlertService(alertRepo, productRepo, nil)
	p := seedProduct(productRepo, "Tonno 80g x3", 10, 5)
	admin := adminActor()
	ctx := context.Background()

	first, err := svc.RecordMovement(ctx, admin, dto.RecordMovementRequest{ProductID: p.ID.String(), Qty: -6, Reason: model.MovementOut})
	require.NoError(t, err)
	require.NotNil(t, first.Alert)

	_, err = alertSvc.Resolve(ctx, admin, uuid.MustParse(first.Alert.ID))
	require.NoError(t, err)

	// Still below threshold: the next movement opens a new alert.
	next, err := svc.RecordMovement(ctx, admin, dto.RecordMovementRequest{ProductID: p.ID.String(), Qty: -1, Reason: model.MovementOut})
	require.NoError(t, err)
	require.NotNil(t, next.Alert)
	assert.NotEqual(t, first.Alert.ID, next.Alert.ID)

	open, err := alertRepo.List(ctx, model.AlertOpen)
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestAlertInsertRaceDoesNotFailMovement(t *testing.T) {
	productRepo, movementRepo, alertRepo, svc := newLedgerFixture()
	p := seedProduct(productRepo, "Biscotti 400g", 6, 5)
	alertRepo.forceUniqueViolation = true

	// A concurrent writer wins the alert insert between our dedup check and
	// our insert. The movement must still land; we just report no new alert.
	result, err := svc.RecordMovement(context.Background(), adminActor(), dto.RecordMovementRequest{
		ProductID: p.ID.String(), Qty: -2, Reason: model.MovementOut,
	})
	require.NoError(t, err)
	assert.Nil(t, result.Alert)
	assert.Len(t, movementRepo.movements, 1)
	assert.Equal(t, 4, productRepo.products[p.ID].StockQty)
}

// ── Listing ──────────────────────────────────────────────────────────────────

func TestListMovementsFilters(t *testing.T) {
	productRepo, _, _, svc := newLedgerFixture()
	a := seedProduct(productRepo, "Acqua 6x1.5L", 0, 1)
	b := seedProduct(productRepo, "Vino rosso", 0, 1)
	actor := adminActor()
	ctx := context.Background()

	_, err := svc.RecordMovement(ctx, actor, dto.RecordMovementRequest{ProductID: a.ID.String(), Qty: 10, Reason: model.MovementIn})
	require.NoError(t, err)
	_, err = svc.RecordMovement(ctx, actor, dto.RecordMovementRequest{ProductID: b.ID.String(), Qty: 4, Reason: model.MovementIn})
	require.NoError(t, err)
	_, err = svc.RecordMovement(ctx, actor, dto.RecordMovementRequest{ProductID: a.ID.String(), Qty: -3, Reason: model.MovementOut})
	require.NoError(t, err)

	byProduct, err := svc.ListMovements(ctx, dto.MovementFilter{ProductID: a.ID.String()})
	require.NoError(t, err)
	assert.Len(t, byProduct.Data, 2)

	byReason, err := svc.ListMovements(ctx, dto.MovementFilter{Reason: model.MovementOut})
	require.NoError(t, err)
	assert.Len(t, byReason.Data, 1)
	assert.Equal(t, -3, byReason.Data[0].Qty)
}

func TestCurrentStockWithoutCache(t *testing.T) {
	productRepo, _, _, svc := newLedgerFixture()
	p := seedProduct(productRepo, "Gelato 500ml", 7, 2)

	resp, err := svc.CurrentStock(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, resp.StockQty)

	_, err = svc.CurrentStock(context.Background(), uuid.New())
	assert.ErrorIs(t, err, service.ErrUnknownProduct)
}

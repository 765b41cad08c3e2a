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

func newAlertFixture() (*stubProductRepo, *stubAlertRepo, service.AlertService) {
	productRepo := newStubProductRepo()
	alertRepo := newStubAlertRepo()
	svc := service.NewAlertService(alertRepo, productRepo, nil)
	return productRepo, alertRepo, svc
}

func seedOpenAlert(alertRepo *stubAlertRepo, p *model.Product) *model.LowStockAlert {
	a := &model.LowStockAlert{
		ProductID:   p.ID,
		CurrentQty:  p.StockQty,
		Threshold:   p.ReorderLevel,
		Status:      model.AlertOpen,
		StockBefore: p.StockQty,
		StockAfter:  p.StockQty,
	}
	if err := alertRepo.CreateTx(nil, a); err != nil {
		panic(err)
	}
	return a
}

// ── Resolution ───────────────────────────────────────────────────────────────

func TestResolveAlert(t *testing.T) {
	productRepo, alertRepo, svc := newAlertFixture()
	p := seedProduct(productRepo, "Caffe macinato", 2, 5)
	a := seedOpenAlert(alertRepo, p)
	admin := adminActor()

	resp, err := svc.Resolve(context.Background(), admin, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AlertResolved, resp.Status)
	assert.NotNil(t, resp.ResolvedAt)

	stored := alertRepo.alerts[a.ID]
	require.NotNil(t, stored.ResolvedBy)
	assert.Equal(t, admin.ID, *stored.ResolvedBy)
}

func TestResolveRequiresAdmin(t *testing.T) {
	productRepo, alertRepo, svc := newAlertFixture()
	p := seedProduct(productRepo, "Miele 500g", 1, 3)
	a := seedOpenAlert(alertRepo, p)

	_, err := svc.Resolve(context.Background(), deskActor(), a.ID)
	assert.ErrorIs(t, err, service.ErrRoleRestriction)
	assert.Equal(t, model.AlertOpen, alertRepo.alerts[a.ID].Status)
}

func TestResolveUnknownAlert(t *testing.T) {
	_, _, svc := newAlertFixture()

	_, err := svc.Resolve(context.Background(), adminActor(), uuid.New())
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestResolveTwice(t *testing.T) {
	productRepo, alertRepo, svc := newAlertFixture()
	p := seedProduct(productRepo, "Marmellata", 1, 3)
	a := seedOpenAlert(alertRepo, p)
	admin := adminActor()
	ctx := context.Background()

	_, err := svc.Resolve(ctx, admin, a.ID)
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, admin, a.ID)
	assert.ErrorIs(t, err, service.ErrAlreadyResolved)
}

// ── Manual creation ──────────────────────────────────────────────────────────

func TestCreateManualAlert(t *testing.T) {
	productRepo, alertRepo, svc := newAlertFixture()
	p := seedProduct(productRepo, "Detersivo piatti", 8, 3)

	resp, err := svc.CreateManual(context.Background(), adminActor(), dto.CreateManualAlertRequest{
		ProductID: p.ID.String(),
	})
	require.NoError(t, err)
	assert.True(t, resp.IsManual)
	assert.Equal(t, model.AlertOpen, resp.Status)
	// The snapshot is the balance at creation, even above the threshold.
	assert.Equal(t, 8, resp.CurrentQty)
	assert.Equal(t, 3, resp.Threshold)
	assert.Len(t, alertRepo.alerts, 1)
}

func TestCreateManualRequiresAdmin(t *testing.T) {
	productRepo, _, svc := newAlertFixture()
	p := seedProduct(productRepo, "Carta igienica x4", 8, 3)

	_, err := svc.CreateManual(context.Background(), deskActor(), dto.CreateManualAlertRequest{
		ProductID: p.ID.String(),
	})
	assert.ErrorIs(t, err, service.ErrRoleRestriction)
}

func TestCreateManualUnknownProduct(t *testing.T) {
	_, _, svc := newAlertFixture()

	_, err := svc.CreateManual(context.Background(), adminActor(), dto.CreateManualAlertRequest{
		ProductID: uuid.New().String(),
	})
	assert.ErrorIs(t, err, service.ErrUnknownProduct)
}

func TestCreateManualBlockedByOpenAlert(t *testing.T) {
	productRepo, alertRepo, svc := newAlertFixture()
	p := seedProduct(productRepo, "Sapone mani", 2, 5)
	seedOpenAlert(alertRepo, p)

	_, err := svc.CreateManual(context.Background(), adminActor(), dto.CreateManualAlertRequest{
		ProductID: p.ID.String(),
	})
	assert.ErrorIs(t, err, service.ErrAlertAlreadyOpen)
	assert.Len(t, alertRepo.alerts, 1)
}

func TestManualBlocksAutomaticToo(t *testing.T) {
	// The single-open-alert rule is uniform: a manual alert suppresses the
	// automatic one a later movement would have opened.
	productRepo, alertRepo, alertSvc := newAlertFixture()
	movementRepo := newStubMovementRepo()
	ledgerSvc := service.NewLedgerService(productRepo, movementRepo, alertRepo, nil, nil)
	p := seedProduct(productRepo, "Aceto balsamico", 10, 5)
	admin := adminActor()
	ctx := context.Background()

	_, err := alertSvc.CreateManual(ctx, admin, dto.CreateManualAlertRequest{ProductID: p.ID.String()})
	require.NoError(t, err)

	result, err := ledgerSvc.RecordMovement(ctx, admin, dto.RecordMovementRequest{
		ProductID: p.ID.String(), Qty: -6, Reason: model.MovementOut,
	})
	require.NoError(t, err)
	assert.Nil(t, result.Alert)
	assert.Len(t, alertRepo.alerts, 1)
}

// ── Seen marks ───────────────────────────────────────────────────────────────

func TestMarkAllSeenIdempotent(t *testing.T) {
	productRepo, alertRepo, svc := newAlertFixture()
	seedOpenAlert(alertRepo, seedProduct(productRepo, "Shampoo", 1, 3))
	seedOpenAlert(alertRepo, seedProduct(productRepo, "Bagnoschiuma", 0, 2))
	desk := deskActor()
	ctx := context.Background()

	first, err := svc.MarkAllSeen(ctx, desk)
	require.NoError(t, err)
	assert.Equal(t, int64(2), first.Marked)

	second, err := svc.MarkAllSeen(ctx, desk)
	require.NoError(t, err)
	assert.Equal(t, int64(0), second.Marked)

	count, err := svc.UnseenCount(ctx, desk)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count.Count)
}

func TestSeenStateIsPerStaffMember(t *testing.T) {
	productRepo, alertRepo, svc := newAlertFixture()
	seedOpenAlert(alertRepo, seedProduct(productRepo, "Dentifricio", 1, 3))
	seedOpenAlert(alertRepo, seedProduct(productRepo, "Spazzolino", 0, 2))
	alice := adminActor()
	bob := deskActor()
	ctx := context.Background()

	_, err := svc.MarkAllSeen(ctx, alice)
	require.NoError(t, err)

	aliceCount, err := svc.UnseenCount(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(0), aliceCount.Count)

	bobCount, err := svc.UnseenCount(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(2), bobCount.Count)
}

func TestNewAlertIsUnseenForEveryone(t *testing.T) {
	productRepo, alertRepo, svc := newAlertFixture()
	seedOpenAlert(alertRepo, seedProduct(productRepo, "Candeggina", 1, 3))
	desk := deskActor()
	ctx := context.Background()

	_, err := svc.MarkAllSeen(ctx, desk)
	require.NoError(t, err)

	seedOpenAlert(alertRepo, seedProduct(productRepo, "Ammorbidente", 0, 2))

	count, err := svc.UnseenCount(ctx, desk)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count.Count)
}

// ── Listing ──────────────────────────────────────────────────────────────────

func TestListAlertsByStatus(t *testing.T) {
	productRepo, alertRepo, svc := newAlertFixture()
	p1 := seedProduct(productRepo, "Pasta 500g", 1, 3)
	p2 := seedProduct(productRepo, "Pesto 190g", 0, 2)
	a1 := seedOpenAlert(alertRepo, p1)
	seedOpenAlert(alertRepo, p2)
	admin := adminActor()
	ctx := context.Background()

	_, err := svc.Resolve(ctx, admin, a1.ID)
	require.NoError(t, err)

	open, err := svc.List(ctx, model.AlertOpen)
	require.NoError(t, err)
	assert.Len(t, open, 1)

	resolved, err := svc.List(ctx, model.AlertResolved)
	require.NoError(t, err)
	assert.Len(t, resolved, 1)

	// "all" and the empty string both mean unfiltered.
	all, err := svc.List(ctx, "all")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	unfiltered, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, unfiltered, 2)

	_, err = svc.List(ctx, "bogus")
	assert.ErrorIs(t, err, service.ErrInvalidStatus)
}

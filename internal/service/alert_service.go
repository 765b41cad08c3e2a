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
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// AlertService owns the alert lifecycle outside the movement transaction:
// listing, manual creation, resolution, and per-actor seen state.
type AlertService interface {
	List(ctx context.Context, status string) ([]dto.AlertResponse, error)
	Resolve(ctx context.Context, actor Actor, alertID uuid.UUID) (*dto.AlertResponse, error)
	CreateManual(ctx context.Context, actor Actor, req dto.CreateManualAlertRequest) (*dto.AlertResponse, error)
	MarkAllSeen(ctx context.Context, actor Actor) (*dto.MarkSeenResponse, error)
	UnseenCount(ctx context.Context, actor Actor) (*dto.UnseenCountResponse, error)
}

type alertService struct {
	alertRepo   repository.AlertRepository
	productRepo repository.ProductRepository
	dispatcher  *worker.Dispatcher
}

func NewAlertService(alertRepo repository.AlertRepository, productRepo repository.ProductRepository, dispatcher *worker.Dispatcher) AlertService {
	return &alertService{alertRepo: alertRepo, productRepo: productRepo, dispatcher: dispatcher}
}

func (s *alertService) List(ctx context.Context, status string) ([]dto.AlertResponse, error) {
	switch status {
	case "", "all":
		status = "" // unfiltered
	case model.AlertOpen, model.AlertResolved:
	default:
		return nil, ErrInvalidStatus
	}
	alerts, err := s.alertRepo.List(ctx, status)
	if err != nil {
		return nil, err
	}
	out := make([]dto.AlertResponse, 0, len(alerts))
	for _, a := range alerts {
		name := ""
		if a.Product != nil {
			name = a.Product.Name
		}
		out = append(out, alertToResponse(&a, name))
	}
	return out, nil
}

// Resolve is the only transition out of open, and it is exclusively an admin
// action — restocking never resolves an alert. resolved is terminal.
func (s *alertService) Resolve(ctx context.Context, actor Actor, alertID uuid.UUID) (*dto.AlertResponse, error) {
	if !actor.IsAdmin() {
		return nil, ErrRoleRestriction
	}

	alert, err := s.alertRepo.FindByID(ctx, alertID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if alert.Status != model.AlertOpen {
		return nil, ErrAlreadyResolved
	}

	affected, err := s.alertRepo.Resolve(ctx, alertID, actor.ID)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// Another admin resolved it between the read and the update.
		return nil, ErrAlreadyResolved
	}

	resolved, err := s.alertRepo.FindByID(ctx, alertID)
	if err != nil {
		return nil, err
	}
	name := ""
	if resolved.Product != nil {
		name = resolved.Product.Name
	}
	resp := alertToResponse(resolved, name)
	return &resp, nil
}

// CreateManual opens an alert by explicit admin action, independent of any
// movement. The single-open-alert invariant applies uniformly: an existing
// open alert, manual or automatic, blocks creation.
func (s *alertService) CreateManual(ctx context.Context, actor Actor, req dto.CreateManualAlertRequest) (*dto.AlertResponse, error) {
	if !actor.IsAdmin() {
		return nil, ErrRoleRestriction
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return nil, ErrUnknownProduct
	}

	var alert model.LowStockAlert
	var productName string

	txErr := runTx(ctx, s.productRepo.DB(), func(tx *gorm.DB) error {
		// Same per-product lock as the movement path, so the balance
		// snapshot and the dedup check are consistent.
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
		productName = p.Name

		if _, err := s.alertRepo.FindOpenByProductTx(tx, p.ID); err == nil {
			return ErrAlertAlreadyOpen
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		alert = model.LowStockAlert{
			ProductID:   p.ID,
			CurrentQty:  p.StockQty,
			Threshold:   p.ReorderLevel,
			Status:      model.AlertOpen,
			StockBefore: p.StockQty,
			StockAfter:  p.StockQty,
			IsManual:    true,
		}
		if err := s.alertRepo.CreateTx(tx, &alert); err != nil {
			if isUniqueViolation(err) {
				return ErrAlertAlreadyOpen
			}
			return err
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	if s.dispatcher != nil {
		if err := s.dispatcher.EnqueueAlertNotice(ctx, worker.AlertNoticePayload{AlertID: alert.ID.String()}); err != nil {
			log.Warn().Err(err).Str("alert_id", alert.ID.String()).Msg("failed to enqueue alert notice")
		}
	}

	resp := alertToResponse(&alert, productName)
	return &resp, nil
}

// MarkAllSeen stamps every open alert the actor has not seen. Idempotent:
// the second call in a row marks nothing and returns no error.
func (s *alertService) MarkAllSeen(ctx context.Context, actor Actor) (*dto.MarkSeenResponse, error) {
	marked, err := s.alertRepo.MarkAllSeen(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	return &dto.MarkSeenResponse{Marked: marked}, nil
}

func (s *alertService) UnseenCount(ctx context.Context, actor Actor) (*dto.UnseenCountResponse, error) {
	count, err := s.alertRepo.UnseenCount(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	return &dto.UnseenCountResponse{Count: count}, nil
}

func alertToResponse(a *model.LowStockAlert, productName string) dto.AlertResponse {
	resp := dto.AlertResponse{
		ID:          a.ID.String(),
		ProductID:   a.ProductID.String(),
		Product:     productName,
		CurrentQty:  a.CurrentQty,
		Threshold:   a.Threshold,
		Status:      a.Status,
		IsManual:    a.IsManual,
		StockBefore: a.StockBefore,
		StockAfter:  a.StockAfter,
		CreatedAt:   a.CreatedAt.Format(time.RFC3339),
	}
	if a.ResolvedAt != nil {
		t := a.ResolvedAt.Format(time.RFC3339)
		resp.ResolvedAt = &t
	}
	return resp
}

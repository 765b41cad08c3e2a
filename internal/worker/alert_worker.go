package worker

// alert_worker.go
// Processes low-stock notification jobs from QueueAlertNotice: renders a
// low-stock summary PDF and emails it to the configured recipients through
// the SMTP circuit breaker. Failures are recorded on the alert row so the
// retry cron can re-enqueue them; jobs that exhaust the retry budget land
// in the DLQ.

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/zitodamiano1998-max/cpsm-shop/internal/infra"
	"github.com/zitodamiano1998-max/cpsm-shop/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	maxNotifyAttempts = 5
	retryBackoff      = 10 * time.Minute
)

type AlertNoticeWorker struct {
	mailer      *infra.Mailer
	breaker     *infra.CircuitBreaker
	alertRepo   repository.AlertRepository
	productRepo repository.ProductRepository
	rdb         *redis.Client
	recipients  []string
	pdfDir      string
}

func NewAlertNoticeWorker(
	mailer *infra.Mailer,
	breaker *infra.CircuitBreaker,
	alertRepo repository.AlertRepository,
	productRepo repository.ProductRepository,
	rdb *redis.Client,
	recipients []string,
	pdfDir string,
) *AlertNoticeWorker {
	return &AlertNoticeWorker{
		mailer:      mailer,
		breaker:     breaker,
		alertRepo:   alertRepo,
		productRepo: productRepo,
		rdb:         rdb,
		recipients:  recipients,
		pdfDir:      pdfDir,
	}
}

// Process sends one low-stock notification email.
func (w *AlertNoticeWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload AlertNoticePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("alert_worker: invalid payload")
		return
	}
	if len(w.recipients) == 0 {
		log.Warn().Msg("alert_worker: no recipients configured — skipping")
		return
	}

	alertID, err := uuid.Parse(payload.AlertID)
	if err != nil {
		log.Error().Str("alert_id", payload.AlertID).Msg("alert_worker: malformed alert id")
		return
	}

	alert, err := w.alertRepo.FindByID(ctx, alertID)
	if err != nil {
		log.Error().Err(err).Str("alert_id", payload.AlertID).Msg("alert_worker: alert not found")
		return
	}
	if alert.NotifiedAt != nil {
		return // already sent, e.g. re-enqueued by a stale cron scan
	}

	productName := ""
	if alert.Product != nil {
		productName = alert.Product.Name
	}

	// Attach the full low-stock picture, not just the triggering product —
	// whoever reorders wants the whole list.
	lowStock, err := w.productRepo.ListLowStock(ctx)
	if err != nil {
		log.Error().Err(err).Msg("alert_worker: low-stock listing failed")
		lowStock = nil
	}

	pdfPath := ""
	if len(lowStock) > 0 {
		pdfPath, err = infra.GenerateLowStockPDF(lowStock, w.pdfDir)
		if err != nil {
			log.Error().Err(err).Msg("alert_worker: pdf generation failed — sending without attachment")
			pdfPath = ""
		}
	}

	subject := fmt.Sprintf("Sottoscorta: %s (giacenza %d, soglia %d)", productName, alert.CurrentQty, alert.Threshold)
	body := fmt.Sprintf(
		"Il prodotto %q è sceso a %d unità (soglia di riordino %d).\n\nIn allegato l'elenco completo dei prodotti sottoscorta.",
		productName, alert.CurrentQty, alert.Threshold,
	)

	sendErr := w.breaker.Execute(func() error {
		return w.mailer.SendLowStockNotice(w.recipients, subject, body, pdfPath)
	})
	if sendErr == nil {
		if err := w.alertRepo.MarkNotified(ctx, alertID); err != nil {
			log.Error().Err(err).Str("alert_id", payload.AlertID).Msg("alert_worker: failed to mark notified")
		}
		log.Info().Str("alert_id", payload.AlertID).Msg("alert_worker: notification sent")
		return
	}

	attempts := alert.NotifyAttempts + 1
	if attempts >= maxNotifyAttempts {
		SendToDLQ(ctx, w.rdb, QueueAlertNotice, "alert_notice", raw, sendErr.Error(), attempts)
		// Clears next_retry_at so the cron stops re-enqueueing it.
		if err := w.alertRepo.MarkNotified(ctx, alertID); err != nil {
			log.Error().Err(err).Str("alert_id", payload.AlertID).Msg("alert_worker: failed to close out DLQ'd alert")
		}
		return
	}

	if err := w.alertRepo.RecordNotifyFailure(ctx, alertID, sendErr.Error(), time.Now().UTC().Add(retryBackoff)); err != nil {
		log.Error().Err(err).Str("alert_id", payload.AlertID).Msg("alert_worker: failed to record notify failure")
	}
	log.Warn().Err(sendErr).Str("alert_id", payload.AlertID).Int("attempts", attempts).Msg("alert_worker: send failed, will retry")
}

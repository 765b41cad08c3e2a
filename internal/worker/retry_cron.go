package worker

// retry_cron.go
// Periodically re-enqueues alerts whose notification failed and whose
// next_retry_at has passed. The worker itself records failures and sets
// next_retry_at; this cron only scans and pushes.

import (
	"context"
	"time"

	"github.com/zitodamiano1998-max/cpsm-shop/internal/repository"

	"github.com/rs/zerolog/log"
)

const retryScanBatch = 50

// StartNotifyRetryCron scans for pending notifications every interval until
// ctx is cancelled.
func StartNotifyRetryCron(ctx context.Context, alertRepo repository.AlertRepository, dispatcher *Dispatcher, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("notify retry cron shutting down")
				return
			case <-ticker.C:
				runRetryScan(ctx, alertRepo, dispatcher)
			}
		}
	}()
	log.Info().Dur("interval", interval).Msg("notify retry cron started")
}

func runRetryScan(ctx context.Context, alertRepo repository.AlertRepository, dispatcher *Dispatcher) {
	pending, err := alertRepo.ListPendingNotify(ctx, time.Now().UTC(), retryScanBatch)
	if err != nil {
		log.Error().Err(err).Msg("retry cron: scan failed")
		return
	}
	for _, alert := range pending {
		if err := dispatcher.EnqueueAlertNotice(ctx, AlertNoticePayload{AlertID: alert.ID.String()}); err != nil {
			log.Error().Err(err).Str("alert_id", alert.ID.String()).Msg("retry cron: enqueue failed")
			continue
		}
		log.Info().Str("alert_id", alert.ID.String()).Int("attempts", alert.NotifyAttempts).Msg("retry cron: notification re-enqueued")
	}
}

package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"content-paygate/internal/usecase"
)

// ExpiryWorker periodically moves pending intents past their expiry to the
// expired terminal state. Requests hitting an expired intent do the same
// transition inline; the worker keeps the table from accumulating stale
// pending rows that nobody ever verifies.
type ExpiryWorker struct {
	interval time.Duration
	batch    int
	uc       usecase.PaymentUseCase
	log      *zerolog.Logger
}

func NewExpiryWorker(interval time.Duration, batch int, uc usecase.PaymentUseCase, logger *zerolog.Logger) *ExpiryWorker {
	exprLog := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{
		interval: interval,
		batch:    batch,
		uc:       uc,
		log:      &exprLog,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting expiry worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping expiry worker")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.uc.ExpirePending(ctx, w.batch)
			if err != nil {
				w.log.Error().Err(err).Msg("expiry worker error")
			}
			if n > 0 {
				w.log.Info().Int("count", n).Msg("pending intents expired")
			}
		}
	}
}

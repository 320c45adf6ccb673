package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mindbridge/counselling-booking/internal/metrics"
)

// Worker drains the outbox on a fixed interval.
type Worker struct {
	repo      Repository
	sender    Sender
	batchSize int
	interval  time.Duration
	log       zerolog.Logger
}

func NewWorker(repo Repository, sender Sender, batchSize int, interval time.Duration, log zerolog.Logger) *Worker {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Worker{
		repo:      repo,
		sender:    sender,
		batchSize: batchSize,
		interval:  interval,
		log:       log.With().Str("component", "notify-worker").Logger(),
	}
}

// Run processes one batch immediately, then on every tick until ctx ends.
func (w *Worker) Run(ctx context.Context) {
	w.runOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("notify worker stopping")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Worker) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	sent, failed, err := w.ProcessBatch(runCtx)
	if err != nil {
		w.log.Error().Err(err).Msg("outbox run failed")
		return
	}
	if sent > 0 || failed > 0 {
		w.log.Info().
			Int("sent", sent).
			Int("failed", failed).
			Dur("elapsed", time.Since(start)).
			Msg("outbox run complete")
	}
}

// ProcessBatch delivers up to batchSize queued notifications and returns how
// many were sent and how many delivery attempts failed.
func (w *Worker) ProcessBatch(ctx context.Context) (sent, failed int, err error) {
	batch, err := w.repo.NextBatch(ctx, w.batchSize)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch outbox batch: %w", err)
	}

	for _, n := range batch {
		if serr := w.sender.Send(ctx, n); serr != nil {
			failed++
			metrics.IncNotification("failed")
			w.log.Warn().Err(serr).
				Str("notification_id", n.ID.String()).
				Int("attempts", n.Attempts+1).
				Msg("delivery failed")
			if merr := w.repo.MarkAttemptFailed(ctx, n.ID, maxAttempts); merr != nil {
				w.log.Error().Err(merr).Str("notification_id", n.ID.String()).Msg("mark failed")
			}
			continue
		}

		sent++
		metrics.IncNotification("sent")
		if merr := w.repo.MarkSent(ctx, n.ID); merr != nil {
			w.log.Error().Err(merr).Str("notification_id", n.ID.String()).Msg("mark sent")
		}
	}

	return sent, failed, nil
}

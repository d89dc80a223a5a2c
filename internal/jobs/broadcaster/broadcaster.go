package broadcaster

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"service_market/internal/domain"
	"service_market/internal/infra"
	"service_market/internal/infra/outbox"
)

// Broadcaster drains the outbox to the publisher in commit order.
// Delivery is at-least-once: a record is marked SENT before publishing and
// ACKED after, so a crash in between resends it.
type Broadcaster struct {
	outbox    *outbox.Outbox
	publisher domain.Publisher
	interval  time.Duration
	batch     int
	metrics   *infra.Metrics
}

// New creates a broadcaster polling every interval.
func New(ob *outbox.Outbox, publisher domain.Publisher, interval time.Duration, metrics *infra.Metrics) *Broadcaster {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	if metrics == nil {
		metrics = infra.GlobalMetrics
	}
	return &Broadcaster{
		outbox:    ob,
		publisher: publisher,
		interval:  interval,
		batch:     256,
		metrics:   metrics,
	}
}

// Run polls until ctx is done.
func (b *Broadcaster) Run(ctx context.Context) {
	slog.Info("Broadcaster started", slog.Duration("interval", b.interval))

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			slog.Info("Broadcaster stopping...")
			return
		case <-ticker.C:
		}

		if _, err := b.DrainOnce(ctx); err != nil {
			delay := infra.CalculateBackoff(failures)
			failures++
			slog.Warn("Outbox drain failed", slog.Any("error", err), slog.Duration("backoff", delay))
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}
		failures = 0
	}
}

// DrainOnce publishes one batch of pending events and prunes acked ones.
// It stops at the first retriable failure so events stay ordered.
func (b *Broadcaster) DrainOnce(ctx context.Context) (int, error) {
	sent := 0
	var publishErr error

	err := b.outbox.ScanPending(b.batch, func(seq uint64, rec outbox.Record) error {
		if err := b.outbox.UpdateState(seq, outbox.StateSent, rec.Retries); err != nil {
			return err
		}

		key := []byte(strconv.FormatUint(seq, 10))
		if err := b.publisher.Publish(ctx, key, rec.Payload); err != nil {
			b.metrics.RecordError()
			b.metrics.SetPublisherState(true)

			if domain.IsRetriable(err) {
				publishErr = err
				// back to NEW; retried next tick
				if uerr := b.outbox.UpdateState(seq, outbox.StateNew, rec.Retries+1); uerr != nil {
					return uerr
				}
				return errStop
			}

			slog.Error("Dropping undeliverable event", slog.Uint64("seq", seq), slog.Any("error", err))
			return b.outbox.UpdateState(seq, outbox.StateFailed, rec.Retries+1)
		}

		b.metrics.SetPublisherState(false)
		sent++
		return b.outbox.UpdateState(seq, outbox.StateAcked, rec.Retries)
	})
	if err != nil && !errors.Is(err, errStop) {
		return sent, err
	}

	if _, err := b.outbox.PruneAcked(); err != nil {
		return sent, err
	}
	return sent, publishErr
}

var errStop = errors.New("stop drain")

package scan

import (
	"context"

	"github.com/csmblade/panfm-go-rewrite/internal/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Worker drains the scan queue, bounded to maxConcurrent simultaneous
// nmap executions per device generation (spec §4.6 resource ceiling).
type Worker struct {
	store      *Store
	scanner    *Scanner
	sem        *semaphore.Weighted
}

func NewWorker(store *Store, scanner *Scanner, maxConcurrent int) *Worker {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Worker{store: store, scanner: scanner, sem: semaphore.NewWeighted(int64(maxConcurrent))}
}

// DrainOnce claims and runs every currently queued item, returning once
// the queue is empty. Individual scan failures are logged and recorded
// on their queue item; they never abort the drain.
func (w *Worker) DrainOnce(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for {
		item, err := w.store.ClaimNext(ctx)
		if err != nil {
			return err
		}
		if item == nil {
			break
		}

		if err := w.sem.Acquire(ctx, 1); err != nil {
			return err
		}
		item := item
		g.Go(func() error {
			defer w.sem.Release(1)
			w.runOne(ctx, *item)
			return nil
		})
	}

	return g.Wait()
}

func (w *Worker) runOne(ctx context.Context, item models.ScanQueueItem) {
	result, err := w.scanner.Run(ctx, item.TargetIP, item.Profile)
	if err != nil {
		log.Error().Err(err).Str("target", item.TargetIP).Msg("scan failed")
		_ = w.store.Complete(ctx, item.ID, 0, err.Error())
		return
	}
	result.DeviceID = item.DeviceID

	previous, err := w.store.PreviousResult(ctx, item.DeviceID, item.TargetIP, result.Time)
	if err != nil {
		log.Error().Err(err).Msg("load previous scan result failed")
	}

	resultID, err := w.store.SaveResult(ctx, *result)
	if err != nil {
		log.Error().Err(err).Msg("save scan result failed")
		_ = w.store.Complete(ctx, item.ID, 0, err.Error())
		return
	}

	if previous != nil {
		events := DetectChanges(item.DeviceID, item.TargetIP, *previous, *result)
		if len(events) > 0 {
			if err := w.store.RecordChangeEvents(ctx, events); err != nil {
				log.Error().Err(err).Msg("record scan change events failed")
			}
		}
	}

	_ = w.store.Complete(ctx, item.ID, resultID, "")
}

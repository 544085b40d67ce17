// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package download

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/dataset-engine/internal/logging"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

// DownloadMany filters refs and downloads the rest with at most Workers in
// flight. Details keep the filtered input order. Cancelling ctx stops new
// references from starting (they are reported as cancelled) while started
// ones run until they finish or hit the per-item timeout. History is
// flushed once the batch completes.
func (d *Dispatcher) DownloadMany(ctx context.Context, refs []types.DatasetReference, f Filters) types.BatchResult {
	selected := f.Apply(refs)
	batch := types.BatchResult{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Details:   make([]types.DownloadResult, len(selected)),
	}
	log := d.log.With(logging.String("run_id", batch.RunID))
	log.Info("batch started",
		logging.Int("references", len(refs)),
		logging.Int("selected", len(selected)),
		logging.Int("workers", d.workers))

	var g errgroup.Group
	g.SetLimit(d.workers)
	for i, ref := range selected {
		i, ref := i, ref
		if ctx.Err() != nil {
			batch.Details[i] = cancelled(ref)
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				batch.Details[i] = cancelled(ref)
				return nil
			}
			batch.Details[i] = d.runItem(ctx, ref, f.Force)
			return nil
		})
	}
	g.Wait()

	if err := d.history.Flush(context.WithoutCancel(ctx)); err != nil {
		log.Warn("flushing history failed", logging.Err(err))
	}

	batch.FinishedAt = time.Now().UTC()
	batch.Tally()
	log.Info("batch finished",
		logging.Int("success", batch.Success),
		logging.Int("skipped", batch.Skipped),
		logging.Int("failed", batch.Failed),
		logging.Int64("bytes", batch.TotalSize()),
		logging.Duration("elapsed", batch.FinishedAt.Sub(batch.StartedAt)))
	return batch
}

// runItem downloads one reference under the per-item timeout. The item
// context is detached from batch cancellation. A panic becomes a failed
// result, and an item that ignores its context past the timeout is
// abandoned so it cannot hold a worker.
func (d *Dispatcher) runItem(ctx context.Context, ref types.DatasetReference, force bool) types.DownloadResult {
	itemCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan types.DownloadResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				d.log.Error("download panicked",
					logging.String("key", IdempotencyKey(ref)), logging.Any("panic", r))
				done <- failed(ref, fmt.Errorf("panic: %v", r), time.Since(start))
			}
		}()
		done <- d.DownloadOne(itemCtx, ref, force)
	}()

	select {
	case res := <-done:
		return res
	case <-itemCtx.Done():
		// Give the item a moment to notice the deadline and report itself.
		select {
		case res := <-done:
			return res
		case <-time.After(abandonGrace):
		}
		d.log.Error("download abandoned after timeout",
			logging.String("key", IdempotencyKey(ref)), logging.Duration("timeout", d.timeout))
		return failed(ref, fmt.Errorf("timed out after %s", d.timeout), time.Since(start))
	}
}

// abandonGrace is how long runItem waits for an item after its deadline.
var abandonGrace = 5 * time.Second

func cancelled(ref types.DatasetReference) types.DownloadResult {
	return types.DownloadResult{Reference: ref, Status: types.StatusFailed, Error: ErrCancelled.Error()}
}

func failed(ref types.DatasetReference, err error, elapsed time.Duration) types.DownloadResult {
	return types.DownloadResult{Reference: ref, Status: types.StatusFailed, Error: err.Error(), Duration: elapsed}
}

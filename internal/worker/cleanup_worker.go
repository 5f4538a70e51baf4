package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/edupay/remit-orders/internal/observability"
	"github.com/edupay/remit-orders/internal/service"
)

// CleanupWorker periodically removes document uploads that were
// placed in storage but never submitted with an order.
type CleanupWorker struct {
	uploads   *service.UploadService
	retention time.Duration
	interval  time.Duration
	batchSize int32
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// NewCleanupWorker constructs a worker with a default hourly sweep.
func NewCleanupWorker(uploads *service.UploadService, retention time.Duration) *CleanupWorker {
	return &CleanupWorker{
		uploads:   uploads,
		retention: retention,
		interval:  time.Hour,
		batchSize: 100,
		stopCh:    make(chan struct{}),
	}
}

// WithInterval updates the sweep interval.
func (w *CleanupWorker) WithInterval(interval time.Duration) *CleanupWorker {
	if interval > 0 {
		w.interval = interval
	}
	return w
}

// WithBatchSize caps the number of uploads swept per run.
func (w *CleanupWorker) WithBatchSize(size int32) *CleanupWorker {
	if size > 0 {
		w.batchSize = size
	}
	return w
}

// Start blocks and sweeps at the configured interval.
func (w *CleanupWorker) Start(ctx context.Context) {
	zap.L().Info("upload cleanup worker starting",
		zap.Duration("interval", w.interval),
		zap.Duration("retention", w.retention))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Run once immediately at startup.
	w.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("upload cleanup worker context canceled")
			return
		case <-w.stopCh:
			zap.L().Info("upload cleanup worker stop signal received")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

// Stop stops the running worker loop.
func (w *CleanupWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Run starts the worker in a goroutine and returns a stop function.
func (w *CleanupWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

func (w *CleanupWorker) runOnce(ctx context.Context) {
	result, err := w.uploads.CleanupAbandoned(ctx, w.retention, w.batchSize)
	if err != nil {
		observability.IncrementWorkerRun("upload_cleanup", "failed")
		zap.L().Error("upload cleanup sweep failed", zap.Error(err))
		return
	}
	observability.IncrementWorkerRun("upload_cleanup", "success")
	observability.AddUploadsSwept("removed", result.Succeeded)
	observability.AddUploadsSwept("failed", len(result.Failures))
	if result.Partial() {
		zap.L().Warn("upload cleanup completed partially",
			zap.Int("total", result.Total),
			zap.Int("succeeded", result.Succeeded),
			zap.Int("failed", len(result.Failures)))
	}
}

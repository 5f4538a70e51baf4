package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/edupay/remit-orders/internal/observability"
	"github.com/edupay/remit-orders/internal/service"
)

// RateExpiryWorker sweeps quoted orders whose rate validity window
// has lapsed and forces them into RateExpired. Run one instance per
// deployment; a concurrent sweep would re-apply the same transition
// and duplicate its audit row.
type RateExpiryWorker struct {
	orders       *service.OrderService
	rateValidity time.Duration
	pollInterval time.Duration
	batchSize    int32
	stopCh       chan struct{}
	stopOnce     sync.Once
}

func NewRateExpiryWorker(orders *service.OrderService, rateValidity time.Duration) *RateExpiryWorker {
	return &RateExpiryWorker{
		orders:       orders,
		rateValidity: rateValidity,
		pollInterval: time.Minute,
		batchSize:    50,
		stopCh:       make(chan struct{}),
	}
}

// WithPollInterval sets the sweep interval.
func (w *RateExpiryWorker) WithPollInterval(interval time.Duration) *RateExpiryWorker {
	if interval > 0 {
		w.pollInterval = interval
	}
	return w
}

// WithBatchSize caps the number of orders expired per sweep.
func (w *RateExpiryWorker) WithBatchSize(size int32) *RateExpiryWorker {
	if size > 0 {
		w.batchSize = size
	}
	return w
}

// Start blocks and sweeps at the configured interval.
func (w *RateExpiryWorker) Start(ctx context.Context) {
	zap.L().Info("rate expiry worker starting",
		zap.Duration("interval", w.pollInterval),
		zap.Duration("rate_validity", w.rateValidity),
		zap.Int32("batch_size", w.batchSize))

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("rate expiry worker context canceled")
			return
		case <-w.stopCh:
			zap.L().Info("rate expiry worker stop signal received")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

// Stop stops the running worker loop.
func (w *RateExpiryWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Run starts the worker in a goroutine and returns a stop function.
func (w *RateExpiryWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

func (w *RateExpiryWorker) runOnce(ctx context.Context) {
	expired, err := w.orders.ExpireStaleQuotes(ctx, w.rateValidity, w.batchSize)
	if err != nil {
		observability.IncrementWorkerRun("rate_expiry", "failed")
		zap.L().Error("rate expiry sweep failed", zap.Error(err))
		return
	}
	observability.IncrementWorkerRun("rate_expiry", "success")
	if expired > 0 {
		zap.L().Info("expired stale quotes", zap.Int("count", expired))
	}
}

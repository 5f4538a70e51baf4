package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/edupay/remit-orders/internal/gateway"
	"github.com/edupay/remit-orders/internal/observability"
	"github.com/edupay/remit-orders/internal/ratecache"
)

// RateFeedWorker polls the partner rate feed and refreshes the cached
// reference rates before their TTL lapses.
type RateFeedWorker struct {
	feed     gateway.RateFeed
	cache    *ratecache.Cache
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewRateFeedWorker(feed gateway.RateFeed, cache *ratecache.Cache) *RateFeedWorker {
	return &RateFeedWorker{
		feed:     feed,
		cache:    cache,
		interval: time.Minute,
		stopCh:   make(chan struct{}),
	}
}

// WithInterval sets the poll interval. It should be shorter than the
// cache TTL so rates never lapse while the feed is healthy.
func (w *RateFeedWorker) WithInterval(interval time.Duration) *RateFeedWorker {
	if interval > 0 {
		w.interval = interval
	}
	return w
}

// Start blocks and polls at the configured interval.
func (w *RateFeedWorker) Start(ctx context.Context) {
	zap.L().Info("rate feed worker starting", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Prime the cache immediately at startup.
	w.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("rate feed worker context canceled")
			return
		case <-w.stopCh:
			zap.L().Info("rate feed worker stop signal received")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

// Stop stops the running worker loop.
func (w *RateFeedWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Run starts the worker in a goroutine and returns a stop function.
func (w *RateFeedWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

func (w *RateFeedWorker) runOnce(ctx context.Context) {
	rates, err := w.feed.FetchRates(ctx)
	if err != nil {
		observability.IncrementWorkerRun("rate_feed", "failed")
		zap.L().Warn("rate feed poll failed, serving cached rates until refresh", zap.Error(err))
		return
	}
	for currency, rate := range rates {
		if err := w.cache.SetRate(ctx, currency, rate); err != nil {
			observability.IncrementWorkerRun("rate_feed", "failed")
			zap.L().Error("rate cache update failed", zap.String("currency", currency), zap.Error(err))
			return
		}
	}
	observability.IncrementWorkerRun("rate_feed", "success")
}

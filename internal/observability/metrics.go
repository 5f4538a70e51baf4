package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce            sync.Once
	httpDurationHistogram   *prometheus.HistogramVec
	quoteComputedCounter    *prometheus.CounterVec
	statusTransitionCounter *prometheus.CounterVec
	docGenHistogram         *prometheus.HistogramVec
	uploadsSweptCounter     *prometheus.CounterVec
	workerRunCounter        *prometheus.CounterVec
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		quoteComputedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quote_computations_total",
			Help: "Quote breakdown computations by reason",
		}, []string{"reason"})

		statusTransitionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_status_transitions_total",
			Help: "Order status transition attempts by source and outcome",
		}, []string{"source", "outcome"})

		docGenHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "quote_document_generation_seconds",
			Help:    "Quote document render and store latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"result"})

		uploadsSweptCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "abandoned_uploads_swept_total",
			Help: "Abandoned upload sweep outcomes",
		}, []string{"result"})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		prometheus.MustRegister(
			httpDurationHistogram,
			quoteComputedCounter,
			statusTransitionCounter,
			docGenHistogram,
			uploadsSweptCounter,
			workerRunCounter,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func IncrementQuoteComputed(reason string) {
	if quoteComputedCounter == nil {
		return
	}
	quoteComputedCounter.WithLabelValues(reason).Inc()
}

func IncrementStatusTransition(source, outcome string) {
	if statusTransitionCounter == nil {
		return
	}
	statusTransitionCounter.WithLabelValues(source, outcome).Inc()
}

func ObserveDocumentGeneration(ok bool, duration time.Duration) {
	if docGenHistogram == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	docGenHistogram.WithLabelValues(result).Observe(duration.Seconds())
}

func AddUploadsSwept(result string, n int) {
	if uploadsSweptCounter == nil || n == 0 {
		return
	}
	uploadsSweptCounter.WithLabelValues(result).Add(float64(n))
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}

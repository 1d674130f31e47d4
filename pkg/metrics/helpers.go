package metrics

import "time"

const (
	OutcomeOK           = "ok"
	OutcomeHTTPError    = "http_error"
	OutcomeNetworkError = "network_error"
)

// UpstreamTimer measures one outbound call
type UpstreamTimer struct {
	operation string
	start     time.Time
}

func NewUpstreamTimer(operation string) *UpstreamTimer {
	return &UpstreamTimer{
		operation: operation,
		start:     time.Now(),
	}
}

// Observe records the duration and outcome of the call
func (t *UpstreamTimer) Observe(outcome string) {
	UpstreamRequestDuration.WithLabelValues(t.operation).Observe(time.Since(t.start).Seconds())
	UpstreamRequestsTotal.WithLabelValues(t.operation, outcome).Inc()
}

func RecordCacheHit(space string) {
	CacheHits.WithLabelValues(space).Inc()
}

func RecordCacheMiss(space string) {
	CacheMisses.WithLabelValues(space).Inc()
}

func RecordCacheError(space, operation string) {
	CacheErrors.WithLabelValues(space, operation).Inc()
}

func RecordRateLimited(operation string) {
	RateLimitRejections.WithLabelValues(operation).Inc()
}

func RecordProductsUpserted(source string, n int) {
	if n <= 0 {
		return
	}
	ProductsUpserted.WithLabelValues(source).Add(float64(n))
}

func RecordSeedStep(outcome string) {
	SeedStepsTotal.WithLabelValues(outcome).Inc()
}

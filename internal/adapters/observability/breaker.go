package observability

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// NewBreaker builds a circuit breaker for an external provider: it opens after 5
// consecutive failures (or a 60% failure rate over at least 10 requests) and probes
// again after cooldown. State changes are logged and exported.
func NewBreaker[T any](name string, cooldown time.Duration) *gobreaker.CircuitBreaker[T] {
	BreakerState.WithLabelValues(name).Set(0)
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			if c.ConsecutiveFailures >= 5 {
				return true
			}
			return c.Requests >= 10 && float64(c.TotalFailures)/float64(c.Requests) >= 0.6
		},
		OnStateChange: BreakerStateChanged,
	})
}

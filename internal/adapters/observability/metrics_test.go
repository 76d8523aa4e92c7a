package observability_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"

	"dubaihaus/internal/adapters/observability"
)

func TestMetricsRegistryAndHandler(t *testing.T) {
	reg := observability.InitRegistry()

	// record one sample per family so they show up
	observability.ObserveHTTP("/test", "GET", 200, 12*time.Millisecond)
	observability.ObserveSync("ok", 3, 1)
	observability.ObserveFallback("fx")
	observability.BreakerStateChanged("fx", gobreaker.StateClosed, gobreaker.StateOpen)

	mh := observability.MetricsHandler(reg)
	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	mh.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	out := string(body)
	for _, want := range []string{
		"dubaihaus_http_requests_total",
		`dubaihaus_sync_items_total{result="upserted"}`,
		`dubaihaus_degraded_responses_total{component="fx"}`,
		`dubaihaus_circuit_breaker_state{name="fx"} 2`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in output", want)
		}
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cb := observability.NewBreaker[int]("test-breaker", time.Minute)
	for i := 0; i < 5; i++ {
		_, _ = cb.Execute(func() (int, error) { return 0, io.ErrUnexpectedEOF })
	}
	if cb.State() != gobreaker.StateOpen {
		t.Fatalf("state = %s, want open", cb.State())
	}
	if _, err := cb.Execute(func() (int, error) { return 1, nil }); err != gobreaker.ErrOpenState {
		t.Fatalf("expected ErrOpenState, got %v", err)
	}
}

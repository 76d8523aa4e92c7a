package fx_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sony/gobreaker/v2"

	"dubaihaus/internal/adapters/fx"
)

func TestLatest_ParsesSnapshot(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/k3y/latest/AED" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"result":"success","base_code":"AED","conversion_rates":{"USD":0.2723,"eur":0.2511}}`))
	}))
	defer ts.Close()

	cl, err := fx.New(ts.URL, "k3y", "aed")
	if err != nil {
		t.Fatal(err)
	}
	base, rates, err := cl.Latest(context.Background())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if base != "AED" || rates["USD"] != 0.2723 || rates["EUR"] != 0.2511 || rates["AED"] != 1 {
		t.Fatalf("unexpected snapshot: %s %v", base, rates)
	}
}

func TestLatest_ProviderErrors(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"error result": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"result":"error","error-type":"invalid-key"}`))
		},
		"server error": func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
		"malformed":    func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`<html>`)) },
		"no rates":     func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"result":"success"}`)) },
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			ts := httptest.NewServer(h)
			defer ts.Close()
			cl, _ := fx.New(ts.URL, "k", "AED")
			if _, _, err := cl.Latest(context.Background()); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLatest_BreakerOpensAndStopsCalling(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	cl, _ := fx.New(ts.URL, "k", "AED")
	for i := 0; i < 5; i++ {
		_, _, _ = cl.Latest(context.Background())
	}
	_, _, err := cl.Latest(context.Background())
	if err != gobreaker.ErrOpenState {
		t.Fatalf("expected open breaker, got %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 5 {
		t.Fatalf("provider hit %d times, want 5", got)
	}
}

func TestNew_RequiresKey(t *testing.T) {
	if _, err := fx.New("http://x", "", "AED"); err == nil {
		t.Fatalf("expected error")
	}
}
